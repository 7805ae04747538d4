package gitlocal

import (
	"github.com/kilnforge/pipelinectl/internal/git"
	"github.com/kilnforge/pipelinectl/internal/port/gitprovider"
)

func init() {
	gitprovider.Register(providerName, func(_ map[string]string) (gitprovider.Provider, error) {
		return &Provider{pool: git.NewPool(4)}, nil
	})
}
