package specimport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact names recognized under a change directory.
const (
	ArtifactProposal = "proposal.md"
	ArtifactDesign   = "design.md"
	ArtifactTasks    = "tasks.md"
)

// ChangeSource discovers OpenSpec changes and their artifacts. Two
// implementations exist: a CLI-backed one in internal/adapter/openspec that
// shells out to the openspec binary, and the filesystem fallback in this
// file used when the CLI is not on PATH.
type ChangeSource interface {
	// ListChanges returns the names of active (unarchived) changes.
	ListChanges(ctx context.Context) ([]string, error)

	// ReadArtifact returns the content of one of proposal.md/design.md/
	// tasks.md for the named change. A missing artifact returns os.ErrNotExist.
	ReadArtifact(ctx context.Context, change, artifact string) ([]byte, error)

	// ReadSpecs returns the content of every specs/**/spec.md file
	// associated with the named change.
	ReadSpecs(ctx context.Context, change string) ([][]byte, error)

	// Archive marks a change as applied. Filesystem implementations move
	// the change directory under openspec/archive/.
	Archive(ctx context.Context, change string) error
}

// FSSource is the filesystem-fallback ChangeSource: it reads directly from
// <root>/openspec/changes/<name>/{proposal,design,tasks}.md and
// <root>/openspec/changes/<name>/specs/**/spec.md, used whenever the
// openspec CLI is not available on PATH.
type FSSource struct {
	Root string
}

func NewFSSource(root string) *FSSource {
	return &FSSource{Root: root}
}

func (s *FSSource) changesDir() string {
	return filepath.Join(s.Root, "openspec", "changes")
}

func (s *FSSource) ListChanges(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.changesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read changes dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *FSSource) ReadArtifact(_ context.Context, change, artifact string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.changesDir(), change, artifact))
}

func (s *FSSource) ReadSpecs(_ context.Context, change string) ([][]byte, error) {
	root := filepath.Join(s.changesDir(), change, "specs")

	var contents [][]byte
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || info.Name() != "spec.md" {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		contents = append(contents, data)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("walk specs dir: %w", err)
	}
	return contents, nil
}

func (s *FSSource) Archive(_ context.Context, change string) error {
	src := filepath.Join(s.changesDir(), change)
	archiveDir := filepath.Join(s.Root, "openspec", "archive")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	dst := filepath.Join(archiveDir, change)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("archive change %s: %w", change, err)
	}
	return nil
}
