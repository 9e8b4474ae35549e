package demo

import (
	"specctl/internal/contextmgr"
)

const (
	// ModuleName is the context module providing the application components.
	ModuleName = "application"
	// ComponentGreeter is the name the Greeter is registered under.
	ComponentGreeter = "greeter"
)

// Module returns the application's component set.
func Module() contextmgr.Module {
	return contextmgr.Module{
		Name: ModuleName,
		Components: map[string]contextmgr.Provider{
			ComponentGreeter: func(contextmgr.Resolver) (any, error) {
				return &Greeter{}, nil
			},
		},
	}
}

// NewRegistry returns a registry containing the application module.
func NewRegistry() *contextmgr.Registry {
	r := contextmgr.NewRegistry()
	r.MustRegister(Module())
	return r
}
