package runner

import (
	"specctl/internal/descriptor"
	"specctl/internal/statement"
)

// RuleComposer wraps the chain of a method with the rules its class
// declares.
type RuleComposer interface {
	ComposeRules(method *descriptor.Method, instance any, inner statement.Statement) statement.Statement
}

// RuleComposerFunc adapts a function to a RuleComposer.
type RuleComposerFunc func(method *descriptor.Method, instance any, inner statement.Statement) statement.Statement

// ComposeRules calls f.
func (f RuleComposerFunc) ComposeRules(method *descriptor.Method, instance any, inner statement.Statement) statement.Statement {
	return f(method, instance, inner)
}

// DefaultRuleComposer applies method rules in field order and then test
// rules in field order, so the last declared test rule is outermost.
type DefaultRuleComposer struct{}

func (DefaultRuleComposer) ComposeRules(method *descriptor.Method, instance any, inner statement.Statement) statement.Statement {
	fields := method.Class().AllFields()

	s := inner
	for _, f := range fields {
		if f.MethodRule != nil {
			s = f.MethodRule.Apply(s, method, instance)
		}
	}
	for _, f := range fields {
		if f.TestRule != nil {
			s = f.TestRule.Apply(s, method.ID())
		}
	}
	return s
}
