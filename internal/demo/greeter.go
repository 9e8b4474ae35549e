// Package demo holds a small greeting application together with the
// acceptance classes that exercise it through a managed context.
package demo

import (
	"errors"
	"strings"
)

// ErrMissingName is returned by Greet for a blank name.
var ErrMissingName = errors.New("a name is required")

// Greeter produces greetings.
type Greeter struct{}

// HelloWorld returns the plain greeting.
func (g *Greeter) HelloWorld() string {
	return "Hello World"
}

// HelloWorldTo greets name. The greeting and the name are separated by two
// spaces.
func (g *Greeter) HelloWorldTo(name string) string {
	return g.HelloWorld() + "  " + name
}

// Greet is HelloWorldTo for callers that must not greet nobody.
func (g *Greeter) Greet(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrMissingName
	}
	return g.HelloWorldTo(name), nil
}
