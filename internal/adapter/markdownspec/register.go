package markdownspec

import "github.com/kilnforge/pipelinectl/internal/port/specprovider"

func init() {
	specprovider.Register(providerName, func(_ map[string]string) (specprovider.Provider, error) {
		return &Provider{}, nil
	})
}
