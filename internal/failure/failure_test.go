package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsMatchSentinels(t *testing.T) {
	root := errors.New("root")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "configuration", err: Configuration("GreetingSpec", root), sentinel: ErrConfiguration},
		{name: "hook", err: Hook("beforeTestMethod", "", root), sentinel: ErrHook},
		{name: "assertion", err: Assertion(root), sentinel: ErrAssertion},
		{name: "assumption", err: Assume("needs %s", "linux"), sentinel: ErrAssumption},
		{name: "unexpected success", err: &UnexpectedSuccess{Expected: "ErrX"}, sentinel: ErrUnexpectedSuccess},
		{name: "wrong kind", err: &WrongExceptionKind{Expected: "ErrX", Actual: root}, sentinel: ErrWrongExceptionKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestConfiguration_DoesNotDoubleWrap(t *testing.T) {
	first := Configuration("A", errors.New("bad"))
	second := Configuration("B", first)

	assert.Same(t, first, second)
	assert.Equal(t, "configuration error in test class [A]: bad", second.Error())
	assert.Nil(t, Configuration("A", nil))
}

func TestHookAndAssertion_KeepAssumptions(t *testing.T) {
	skip := Assume("not today")

	assert.Same(t, skip, Hook("before", "setup", skip))
	assert.Same(t, skip, Assertion(skip))
	assert.True(t, IsAssumption(skip))
}

func TestAssertion_KeepsExistingAssertion(t *testing.T) {
	af := Assertion(errors.New("nope"))
	assert.Same(t, af, Assertion(af))
}

func TestCapture_RecoversPanics(t *testing.T) {
	err := Capture(func() error { panic("kaboom") })

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.Contains(t, pe.Stack, "TestCapture_RecoversPanics")
}

func TestCapture_PanicWithErrorUnwraps(t *testing.T) {
	errGone := errors.New("gone")
	err := Capture(func() error { panic(fmt.Errorf("lookup: %w", errGone)) })

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, errGone)

	assert.NoError(t, Capture(func() error { panic("text") }).(*PanicError).Unwrap())
}

func TestCapture_PanicWithAssumptionIsSkip(t *testing.T) {
	err := Capture(func() error { panic(Assume("no network")) })
	assert.True(t, IsAssumption(err))
}

func TestAppendAndCauses(t *testing.T) {
	var err error
	err = Append(err, nil)
	assert.NoError(t, err)

	body := Assertion(errors.New("body"))
	teardown := Hook("afterTestMethod", "", errors.New("teardown"))
	err = Append(err, body)
	err = Append(err, teardown)

	causes := Causes(err)
	require.Len(t, causes, 2)
	assert.ErrorIs(t, err, ErrAssertion)
	assert.ErrorIs(t, err, ErrHook)
	assert.Equal(t, "(1) body; (2) afterTestMethod failed: teardown", Describe(err))
}

func TestOnlyAssumptions(t *testing.T) {
	assert.False(t, OnlyAssumptions(nil))
	assert.True(t, OnlyAssumptions(Append(Assume("a"), Assume("b"))))
	assert.False(t, OnlyAssumptions(Append(Assume("a"), errors.New("real"))))
}

func TestChecker_WorksWithTestifyAssert(t *testing.T) {
	c := NewChecker()
	assert.Equal(c, "Hello World", "Hello World")
	require.NoError(t, c.Err())

	assert.Equal(c, "Hello World", "Goodbye")
	assert.True(t, c.Failed())

	err := c.Err()
	assert.ErrorIs(t, err, ErrAssertion)
	assert.Contains(t, err.Error(), "Not equal")
}
