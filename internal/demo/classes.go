package demo

import (
	"errors"

	"github.com/stretchr/testify/assert"

	"specctl/internal/contextmgr"
	"specctl/internal/descriptor"
	"specctl/internal/envgate"
	"specctl/internal/failure"
)

// Class names of the acceptance classes.
const (
	ApplicationContextSpec = "ApplicationContextSpec"
	GreetingSpec           = "GreetingSpec"
)

// greetingSpec is the test instance shared by both acceptance classes.
type greetingSpec struct {
	greeter *Greeter
}

func newGreetingSpec() (any, error) {
	return &greetingSpec{}, nil
}

// Inject implements contextmgr.Injectable.
func (s *greetingSpec) Inject(r contextmgr.Resolver) error {
	g, err := contextmgr.Resolve[*Greeter](r, ComponentGreeter)
	if err != nil {
		return err
	}
	s.greeter = g
	return nil
}

// check adapts an assertion body to a method body.
func check(fn func(s *greetingSpec, t assert.TestingT)) func(any) error {
	return func(instance any) error {
		c := failure.NewChecker()
		fn(instance.(*greetingSpec), c)
		return c.Err()
	}
}

func applicationContext() descriptor.ContextConfig {
	return descriptor.ContextConfig{Modules: []string{ModuleName}}
}

// acceptanceBase is inherited by every acceptance class.
func acceptanceBase() *descriptor.Class {
	return &descriptor.Class{
		Name: "AcceptanceBase",
		Befores: []descriptor.Fixture{{
			Name: "requireGreeter",
			Fn: func(instance any) error {
				if instance.(*greetingSpec).greeter == nil {
					return errors.New("greeter was not injected")
				}
				return nil
			},
		}},
	}
}

// NewApplicationContextSpec checks that the application context loads.
func NewApplicationContextSpec() *descriptor.Class {
	return &descriptor.Class{
		Name:    ApplicationContextSpec,
		New:     newGreetingSpec,
		Context: applicationContext(),
		Parent:  acceptanceBase(),
		Methods: []*descriptor.Method{
			{
				Name: "contextLoads",
				Body: check(func(s *greetingSpec, t assert.TestingT) {
					assert.NotNil(t, s.greeter)
				}),
			},
		},
	}
}

// NewGreetingSpec describes the greeting behaviour.
func NewGreetingSpec() *descriptor.Class {
	return &descriptor.Class{
		Name:    GreetingSpec,
		New:     newGreetingSpec,
		Context: applicationContext(),
		Parent:  acceptanceBase(),
		Methods: []*descriptor.Method{
			{
				Name: "helloWorld",
				Body: check(func(s *greetingSpec, t assert.TestingT) {
					assert.Equal(t, "Hello World", s.greeter.HelloWorld())
				}),
			},
			{
				Name: "helloWorldToName",
				Body: check(func(s *greetingSpec, t assert.TestingT) {
					assert.Equal(t, "Hello World  Alice", s.greeter.HelloWorldTo("Alice"))
				}),
			},
			{
				Name:    "farewell",
				Ignored: true,
				Body: func(any) error {
					return errors.New("farewells are not implemented")
				},
			},
			{
				Name:        "helloWorldOnLinux",
				Environment: &envgate.Constraint{Name: envgate.KeyOS, Value: "linux"},
				Body: check(func(s *greetingSpec, t assert.TestingT) {
					assert.Equal(t, "Hello World  Tux", s.greeter.HelloWorldTo("Tux"))
				}),
			},
			{
				Name:     "rejectsMissingName",
				Expected: descriptor.ExpectIs(ErrMissingName),
				Body: func(instance any) error {
					_, err := instance.(*greetingSpec).greeter.Greet("  ")
					return err
				},
			},
		},
	}
}

// Classes returns fresh descriptors of all acceptance classes.
func Classes() []*descriptor.Class {
	return []*descriptor.Class{
		NewApplicationContextSpec(),
		NewGreetingSpec(),
	}
}
