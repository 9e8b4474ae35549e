package statement

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"specctl/internal/failure"
)

// trace records the order in which statements are evaluated.
type trace struct {
	calls []string
}

func (tr *trace) step(name string, err error) Statement {
	return Func(func() error {
		tr.calls = append(tr.calls, name)
		return err
	})
}

func TestRunBefores_StopsAtFirstFailure(t *testing.T) {
	tr := &trace{}
	boom := errors.New("boom")

	s := RunBefores(tr.step("body", nil), tr.step("b1", nil), tr.step("b2", boom), tr.step("b3", nil))
	err := s.Evaluate()

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"b1", "b2"}, tr.calls)
}

func TestRunBefores_NoBeforesReturnsNext(t *testing.T) {
	next := Fail(errors.New("x"))
	assert.Equal(t, next, RunBefores(next))
}

func TestRunAfters_AlwaysRunsAndAccumulates(t *testing.T) {
	tr := &trace{}
	bodyErr := errors.New("body")
	a1Err := errors.New("a1")

	s := RunAfters(tr.step("body", bodyErr), tr.step("a1", a1Err), tr.step("a2", nil))
	err := s.Evaluate()

	assert.Equal(t, []string{"body", "a1", "a2"}, tr.calls)
	require.Len(t, failure.Causes(err), 2)
	assert.ErrorIs(t, err, bodyErr)
	assert.ErrorIs(t, err, a1Err)
}

func TestBeforeAndAfter(t *testing.T) {
	tr := &trace{}
	var seen error
	bodyErr := errors.New("body")

	s := After(
		Before(tr.step("body", bodyErr), func() error {
			tr.calls = append(tr.calls, "before")
			return nil
		}),
		func(testErr error) error {
			seen = testErr
			tr.calls = append(tr.calls, "after")
			return nil
		},
	)

	err := s.Evaluate()
	assert.ErrorIs(t, err, bodyErr)
	assert.ErrorIs(t, seen, bodyErr)
	assert.Equal(t, []string{"before", "body", "after"}, tr.calls)
}

func TestBefore_FailureSkipsNext(t *testing.T) {
	tr := &trace{}
	setupErr := errors.New("setup")

	err := Before(tr.step("body", nil), func() error { return setupErr }).Evaluate()

	assert.ErrorIs(t, err, setupErr)
	assert.Empty(t, tr.calls)
}

func TestExpect(t *testing.T) {
	errWanted := errors.New("wanted")
	isWanted := func(err error) bool { return errors.Is(err, errWanted) }

	tests := []struct {
		name     string
		inner    Statement
		sentinel error
	}{
		{name: "declared error passes", inner: Fail(errWanted)},
		{name: "wrapped declared error passes", inner: Fail(failure.Assertion(errWanted))},
		{name: "no error", inner: Noop, sentinel: failure.ErrUnexpectedSuccess},
		{name: "other error", inner: Fail(errors.New("other")), sentinel: failure.ErrWrongExceptionKind},
		{name: "assumption passes through", inner: Fail(failure.Assume("skip")), sentinel: failure.ErrAssumption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Expect(tt.inner, "wanted", isWanted).Evaluate()
			if tt.sentinel == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestOnce(t *testing.T) {
	count := 0
	s := Once(Func(func() error {
		count++
		return nil
	}))

	require.NoError(t, s.Evaluate())
	assert.ErrorIs(t, s.Evaluate(), ErrAlreadyEvaluated)
	assert.Equal(t, 1, count)
}

func TestTimeout_FinishesInTime(t *testing.T) {
	defer goleak.VerifyNone(t)

	err := Timeout(Func(func() error { return nil }), time.Second).Evaluate()
	assert.NoError(t, err)
}

func TestTimeout_Expires(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	err := Timeout(Func(func() error {
		<-release
		return nil
	}), 10*time.Millisecond).Evaluate()

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 10*time.Millisecond, te.Timeout)
}

func TestTimeout_ZeroDisables(t *testing.T) {
	next := Fail(errors.New("x"))
	assert.Equal(t, next, Timeout(next, 0))
}
