package descriptor

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specctl/internal/envgate"
	"specctl/internal/failure"
	"specctl/internal/statement"
)

func newInstance() (any, error) { return &struct{}{}, nil }

func noop(any) error { return nil }

func validClass() *Class {
	return &Class{
		Name: "GreetingSpec",
		New:  newInstance,
		Methods: []*Method{
			{Name: "helloWorld", Body: noop},
			{Name: "helloWorldTo", Body: noop},
		},
	}
}

func TestValidate_BindsMethodsToCopy(t *testing.T) {
	src := validClass()

	c, err := Validate(src)
	require.NoError(t, err)

	assert.NotSame(t, src, c)
	require.Len(t, c.Methods, 2)
	for _, m := range c.Methods {
		assert.Same(t, c, m.Class())
	}
	assert.Equal(t, "GreetingSpec.helloWorld", c.Methods[0].ID())

	// The caller's declaration is left untouched.
	assert.Nil(t, src.Methods[0].Class())
	assert.Equal(t, "helloWorld", src.Methods[0].ID())
}

func TestValidate_RejectsDisallowedRuleMarkers(t *testing.T) {
	tests := []struct {
		name   string
		marker RuleMarker
	}{
		{name: "class context rule", marker: MarkerClassContextRule},
		{name: "method context rule", marker: MarkerMethodContextRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validClass()
			c.Fields = []Field{{Name: "contextRule", Marker: tt.marker}}

			_, err := Validate(c)
			require.Error(t, err)

			var ce *failure.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "GreetingSpec", ce.Class)
			assert.Contains(t, err.Error(), tt.marker.String())
			assert.Contains(t, err.Error(), "[GreetingSpec]")
		})
	}
}

func TestValidate_RejectsInheritedRuleMarker(t *testing.T) {
	base := &Class{Name: "Base", Fields: []Field{{Name: "classRule", Marker: MarkerClassContextRule}}}
	c := validClass()
	c.Parent = base

	_, err := Validate(c)
	assert.ErrorIs(t, err, failure.ErrConfiguration)
}

func TestValidate_AllowsPlainFieldsAndRules(t *testing.T) {
	c := validClass()
	c.Fields = []Field{
		{Name: "plain"},
		{Name: "timeout", MethodRule: TimeoutRule(time.Second)},
	}

	_, err := Validate(c)
	assert.NoError(t, err)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	c := &Class{
		Name: "Broken",
		Methods: []*Method{
			{Name: "a", Body: noop},
			{Name: "a", Body: noop},
			{Name: "", Body: noop},
			{Name: "noBody"},
			nil,
			{Name: "badExpect", Body: noop, Expected: &ExpectedError{Name: "x"}},
			{Name: "badEnv", Body: noop, Environment: &envgate.Constraint{Name: "k", Value: "v", Values: []string{"w"}}},
		},
		Befores:     []Fixture{{Name: "setup"}},
		AfterClass:  []Hook{{Name: "shutdown"}},
		Environment: &envgate.Constraint{},
	}

	_, err := Validate(c)
	require.Error(t, err)

	var ce *failure.ConfigurationError
	require.ErrorAs(t, err, &ce)
	causes := failure.Causes(ce.Err)
	assert.Len(t, causes, 10)

	msg := err.Error()
	for _, want := range []string{
		"usable constructor",
		"declared more than once",
		"has no name",
		`"noBody" has no body`,
		"method #4 is nil",
		"without a matcher",
		`"badEnv" environment constraint`,
		`before fixture "setup"`,
		`class hook "shutdown"`,
		"class environment constraint",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidate_RejectsCyclicHierarchy(t *testing.T) {
	base := &Class{Name: "Base"}
	middle := &Class{Name: "Middle", Parent: base}
	base.Parent = middle

	c := validClass()
	c.Parent = middle

	_, err := Validate(c)
	var ce *failure.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "GreetingSpec", ce.Class)
	assert.ErrorIs(t, err, ErrCyclicHierarchy)
	assert.Contains(t, err.Error(), "[GreetingSpec Middle Base Middle]")

	self := validClass()
	self.Parent = self
	_, err = Validate(self)
	assert.ErrorIs(t, err, ErrCyclicHierarchy)
}

func TestValidate_Nil(t *testing.T) {
	_, err := Validate(nil)
	assert.ErrorIs(t, err, failure.ErrConfiguration)
}

func TestValidate_MethodOwnedByOtherClass(t *testing.T) {
	other, err := Validate(&Class{Name: "Other", New: newInstance, Methods: []*Method{{Name: "m", Body: noop}}})
	require.NoError(t, err)

	c := validClass()
	c.Methods = append(c.Methods, other.Methods[0])

	_, err = Validate(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already belongs to test class [Other]")
}

func TestInheritanceOrder(t *testing.T) {
	base := &Class{
		Name:        "Base",
		Fields:      []Field{{Name: "baseField"}},
		Befores:     []Fixture{{Name: "baseBefore", Fn: noop}},
		Afters:      []Fixture{{Name: "baseAfter", Fn: noop}},
		BeforeClass: []Hook{{Name: "baseBeforeClass", Fn: func() error { return nil }}},
		AfterClass:  []Hook{{Name: "baseAfterClass", Fn: func() error { return nil }}},
	}
	c := &Class{
		Name:        "Child",
		Parent:      base,
		Fields:      []Field{{Name: "childField"}},
		Befores:     []Fixture{{Name: "childBefore", Fn: noop}},
		Afters:      []Fixture{{Name: "childAfter", Fn: noop}},
		BeforeClass: []Hook{{Name: "childBeforeClass", Fn: func() error { return nil }}},
		AfterClass:  []Hook{{Name: "childAfterClass", Fn: func() error { return nil }}},
	}

	fieldNames := func(fs []Field) []string {
		var out []string
		for _, f := range fs {
			out = append(out, f.Name)
		}
		return out
	}
	fixtureNames := func(fs []Fixture) []string {
		var out []string
		for _, f := range fs {
			out = append(out, f.Name)
		}
		return out
	}
	hookNames := func(hs []Hook) []string {
		var out []string
		for _, h := range hs {
			out = append(out, h.Name)
		}
		return out
	}

	assert.Equal(t, []string{"baseField", "childField"}, fieldNames(c.AllFields()))
	assert.Equal(t, []string{"baseBefore", "childBefore"}, fixtureNames(c.AllBefores()))
	assert.Equal(t, []string{"childAfter", "baseAfter"}, fixtureNames(c.AllAfters()))
	assert.Equal(t, []string{"baseBeforeClass", "childBeforeClass"}, hookNames(c.AllBeforeClass()))
	assert.Equal(t, []string{"childAfterClass", "baseAfterClass"}, hookNames(c.AllAfterClass()))
}

func TestExpectIsAndAs(t *testing.T) {
	is := ExpectIs(fs.ErrNotExist)
	assert.Equal(t, "file does not exist", is.Name)
	assert.True(t, is.Match(failure.Assertion(fs.ErrNotExist)))
	assert.False(t, is.Match(errors.New("other")))

	as := ExpectAs[*fs.PathError]()
	assert.Equal(t, "*fs.PathError", as.Name)
	assert.True(t, as.Match(&fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}))
	assert.False(t, as.Match(fs.ErrNotExist))
}

func TestTimeoutRule(t *testing.T) {
	rule := TimeoutRule(5 * time.Millisecond)
	block := make(chan struct{})
	defer close(block)

	s := rule.Apply(statement.Func(func() error {
		<-block
		return nil
	}), nil, nil)

	var te *statement.TimeoutError
	assert.ErrorAs(t, s.Evaluate(), &te)
}

func TestRuleMarker_String(t *testing.T) {
	assert.Equal(t, "None", MarkerNone.String())
	assert.False(t, MarkerNone.Disallowed())
	assert.True(t, MarkerClassContextRule.Disallowed())
	assert.Equal(t, "RuleMarker(9)", RuleMarker(9).String())
}

func TestContextConfigKey(t *testing.T) {
	a := ContextConfig{Modules: []string{"application", "web"}}
	b := ContextConfig{Modules: []string{"application", "web"}, DirtiesContext: true}
	c := ContextConfig{Modules: []string{"web", "application"}}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}
