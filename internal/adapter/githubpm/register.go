package githubpm

import "github.com/kilnforge/pipelinectl/internal/port/prprovider"

func init() {
	prprovider.Register(providerName, func(_ map[string]string) (prprovider.Provider, error) {
		return newProvider(), nil
	})
}
