package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kilnforge/pipelinectl/internal/domain"
	"github.com/kilnforge/pipelinectl/internal/domain/feature"
	"github.com/kilnforge/pipelinectl/internal/specimport"
)

var _ specimport.FeatureStore = (*Store)(nil)

// CreateFeature inserts a new feature, allocating the next FEAT-NNN id.
func (s *Store) CreateFeature(ctx context.Context, req feature.CreateRequest) (*feature.Feature, error) {
	if req.Description == "" {
		return nil, fmt.Errorf("%w: description is required", domain.ErrValidation)
	}

	var created *feature.Feature
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := nextFeatureID(tx)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO features (
				id, category, description, notes, status,
				assigned_to, openspec_change_id, openspec_task_group, openspec_reference,
				created_at, updated_at
			) VALUES (?, ?, ?, '', ?, ?, ?, ?, ?, ?, ?)`,
			id, req.Category, req.Description, feature.StatusPending,
			req.AssignedTo, req.OpenSpecChangeID, req.OpenSpecTaskGroup, req.OpenSpecReference,
			formatTime(now), formatTime(now),
		); err != nil {
			return fmt.Errorf("insert feature: %w", err)
		}

		if err := replaceDependsOn(ctx, tx, id, req.DependsOn); err != nil {
			return err
		}
		if err := replaceStringList(ctx, tx, "feature_requirements", id, req.Requirements); err != nil {
			return err
		}
		if err := replaceStringList(ctx, tx, "feature_architecture_compliance", id, req.ArchitectureCompliance); err != nil {
			return err
		}
		if err := replaceStringList(ctx, tx, "feature_verification_steps", id, req.VerificationSteps); err != nil {
			return err
		}

		f, err := getFeatureTx(ctx, tx, id)
		if err != nil {
			return err
		}
		created = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ReplaceFeature upserts a feature verbatim by its original id, writing
// every field — including status, passes, reviewed_by, tested_by,
// pr_number, created_at, and updated_at — exactly as given rather than
// deriving them. This is what "feature export then feature import yields
// an identical feature set" requires: routing an imported feature through
// CreateFeature would allocate a fresh id and reset status to pending,
// discarding everything an export captured.
func (s *Store) ReplaceFeature(ctx context.Context, f feature.Feature) (*feature.Feature, error) {
	if f.ID == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	if f.Description == "" {
		return nil, fmt.Errorf("%w: description is required", domain.ErrValidation)
	}
	if !f.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, f.Status)
	}

	var replaced *feature.Feature
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		createdAt, updatedAt := f.CreatedAt, f.UpdatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO features (
				id, category, description, notes, status,
				assigned_to, reviewed_by, tested_by, passes,
				openspec_change_id, openspec_task_group, openspec_reference, pr_number,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.Category, f.Description, f.Notes, f.Status,
			f.AssignedTo, f.ReviewedBy, f.TestedBy, boolToInt(f.Passes),
			f.OpenSpecChangeID, f.OpenSpecTaskGroup, f.OpenSpecReference, f.PRNumber,
			formatTime(createdAt), formatTime(updatedAt),
		); err != nil {
			return fmt.Errorf("replace feature: %w", err)
		}

		if err := replaceDependsOn(ctx, tx, f.ID, f.DependsOn); err != nil {
			return err
		}
		if err := replaceStringList(ctx, tx, "feature_requirements", f.ID, f.Requirements); err != nil {
			return err
		}
		if err := replaceStringList(ctx, tx, "feature_architecture_compliance", f.ID, f.ArchitectureCompliance); err != nil {
			return err
		}
		if err := replaceStringList(ctx, tx, "feature_verification_steps", f.ID, f.VerificationSteps); err != nil {
			return err
		}

		got, err := getFeatureTx(ctx, tx, f.ID)
		if err != nil {
			return err
		}
		replaced = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replaced, nil
}

// UpdateFeatureFields updates a feature's category/description/requirements/
// verification steps/openspec_reference/notes in place, used by the Spec
// Importer on re-import. Status, passes, and depends_on are left untouched:
// those are owned by the scheduler and QA gate, and by whoever hand-edited
// dependencies.
func (s *Store) UpdateFeatureFields(ctx context.Context, id, category, description, openSpecReference, notes string, requirements, verificationSteps []string) (*feature.Feature, error) {
	var updated *feature.Feature
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE features SET category = ?, description = ?, openspec_reference = ?, notes = ?, updated_at = ? WHERE id = ?`,
			category, description, openSpecReference, notes, formatTime(time.Now().UTC()), id,
		)
		if err != nil {
			return fmt.Errorf("update feature: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return domain.ErrNotFound
		}

		if err := replaceStringList(ctx, tx, "feature_requirements", id, requirements); err != nil {
			return err
		}
		if err := replaceStringList(ctx, tx, "feature_verification_steps", id, verificationSteps); err != nil {
			return err
		}

		f, err := getFeatureTx(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Update applies a partial UpdateRequest to a feature.
func (s *Store) Update(ctx context.Context, id string, req feature.UpdateRequest) (*feature.Feature, error) {
	var updated *feature.Feature
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getFeatureTx(ctx, tx, id)
		if err != nil {
			return err
		}

		status := existing.Status
		if req.Status != nil {
			if !req.Status.Valid() {
				return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, *req.Status)
			}
			status = *req.Status
		}
		passes := existing.Passes
		if req.Passes != nil {
			passes = *req.Passes
		}
		notes := existing.Notes
		if req.Notes != nil {
			notes = *req.Notes
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE features SET status = ?, passes = ?, notes = ?, updated_at = ? WHERE id = ?`,
			status, boolToInt(passes), notes, formatTime(time.Now().UTC()), id,
		); err != nil {
			return fmt.Errorf("update feature: %w", err)
		}

		f, err := getFeatureTx(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AssignRole sets one of assigned_to/reviewed_by/tested_by.
func (s *Store) AssignRole(ctx context.Context, id, role, who string) error {
	column := map[string]string{
		"dev":    "assigned_to",
		"review": "reviewed_by",
		"qa":     "tested_by",
	}[role]
	if column == "" {
		return fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE features SET %s = ?, updated_at = ? WHERE id = ?`, column),
		who, formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetPRNumber records the hosted PR CLI's pull request number for a
// feature, once CreatePR succeeds against a PR CLI.
func (s *Store) SetPRNumber(ctx context.Context, id string, number int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE features SET pr_number = ?, updated_at = ? WHERE id = ?`,
		number, formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("set pr number: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetFeature returns a single feature by id.
func (s *Store) GetFeature(ctx context.Context, id string) (*feature.Feature, error) {
	return getFeatureByColumn(ctx, s.db, "id", id)
}

// FeatureByOpenSpecKey looks up a feature by its (change, task-group) key,
// returning nil (not an error) when no such feature exists — the Spec
// Importer's upsert path treats that as "create".
func (s *Store) FeatureByOpenSpecKey(ctx context.Context, changeID string, taskGroup int) (*feature.Feature, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id FROM features WHERE openspec_change_id = ? AND openspec_task_group = ?`,
		changeID, taskGroup,
	)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup by openspec key: %w", err)
	}
	return getFeatureByColumn(ctx, s.db, "id", id)
}

// ListFeatures returns every feature, ordered by id.
func (s *Store) ListFeatures(ctx context.Context) ([]feature.Feature, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM features ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	features := make([]feature.Feature, 0, len(ids))
	for _, id := range ids {
		f, err := getFeatureByColumn(ctx, s.db, "id", id)
		if err != nil {
			return nil, err
		}
		features = append(features, *f)
	}
	return features, nil
}

func nextFeatureID(tx *sql.Tx) (string, error) {
	var maxN int
	row := tx.QueryRow(`SELECT COALESCE(MAX(CAST(substr(id, 6) AS INTEGER)), 0) FROM features WHERE id LIKE 'FEAT-%'`)
	if err := row.Scan(&maxN); err != nil {
		return "", fmt.Errorf("allocate feature id: %w", err)
	}
	return fmt.Sprintf("FEAT-%03d", maxN+1), nil
}

func replaceDependsOn(ctx context.Context, tx *sql.Tx, id string, deps []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM feature_depends_on WHERE feature_id = ?`, id); err != nil {
		return fmt.Errorf("clear depends_on: %w", err)
	}
	for i, dep := range deps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feature_depends_on (feature_id, depends_on, position) VALUES (?, ?, ?)`,
			id, dep, i,
		); err != nil {
			return fmt.Errorf("insert depends_on: %w", err)
		}
	}
	return nil
}

func replaceStringList(ctx context.Context, tx *sql.Tx, table, id string, values []string) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE feature_id = ?`, table), id); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for i, v := range values {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (feature_id, position, value) VALUES (?, ?, ?)`, table),
			id, i, v,
		); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getFeatureByColumn(ctx context.Context, q querier, column, value string) (*feature.Feature, error) {
	row := q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, category, description, notes, status, assigned_to, reviewed_by, tested_by,
		       passes, openspec_change_id, openspec_task_group, openspec_reference, pr_number, created_at, updated_at
		FROM features WHERE %s = ?`, column), value)
	f, err := scanFeature(row)
	if err != nil {
		return nil, wrapNotFound(err)
	}

	f.DependsOn, err = queryStringList(ctx, q, "feature_depends_on", "depends_on", f.ID)
	if err != nil {
		return nil, err
	}
	f.Requirements, err = queryStringList(ctx, q, "feature_requirements", "value", f.ID)
	if err != nil {
		return nil, err
	}
	f.ArchitectureCompliance, err = queryStringList(ctx, q, "feature_architecture_compliance", "value", f.ID)
	if err != nil {
		return nil, err
	}
	f.VerificationSteps, err = queryStringList(ctx, q, "feature_verification_steps", "value", f.ID)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func getFeatureTx(ctx context.Context, tx *sql.Tx, id string) (*feature.Feature, error) {
	return getFeatureByColumn(ctx, tx, "id", id)
}

func scanFeature(row *sql.Row) (*feature.Feature, error) {
	var f feature.Feature
	var passes int
	var createdAt, updatedAt string
	if err := row.Scan(
		&f.ID, &f.Category, &f.Description, &f.Notes, &f.Status,
		&f.AssignedTo, &f.ReviewedBy, &f.TestedBy,
		&passes, &f.OpenSpecChangeID, &f.OpenSpecTaskGroup, &f.OpenSpecReference, &f.PRNumber,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	f.Passes = passes != 0
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

func queryStringList(ctx context.Context, q querier, table, column, featureID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE feature_id = ? ORDER BY position`, column, table), featureID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
