package contextmgr

import (
	"sort"

	"specctl/internal/descriptor"
	"specctl/internal/failure"
)

// TestContext is the state a TestContextManager shares with its listeners.
// It always reflects the callback currently being dispatched.
type TestContext struct {
	class *descriptor.Class
	cache *ContextCache

	instance any
	method   *descriptor.Method
	testErr  error

	// held is the container acquired from the cache for this class run.
	held *Container

	attributes map[string]any
}

func newTestContext(class *descriptor.Class, cache *ContextCache) *TestContext {
	return &TestContext{
		class:      class,
		cache:      cache,
		attributes: make(map[string]any),
	}
}

func (tc *TestContext) update(instance any, method *descriptor.Method, testErr error) {
	tc.instance = instance
	tc.method = method
	tc.testErr = testErr
}

// Class returns the test class.
func (tc *TestContext) Class() *descriptor.Class { return tc.class }

// Instance returns the current test instance, nil at class level.
func (tc *TestContext) Instance() any { return tc.instance }

// Method returns the current method, nil at class level and during instance
// preparation.
func (tc *TestContext) Method() *descriptor.Method { return tc.method }

// TestError returns the failure seen by an after callback, if any.
func (tc *TestContext) TestError() error { return tc.testErr }

// HasContainer reports whether this class run currently holds a managed
// context.
func (tc *TestContext) HasContainer() bool {
	return tc.held != nil
}

// Container returns the managed context for the class configuration. The
// first call acquires it from the cache; the class run holds it until
// MarkDirty or the end of the class.
func (tc *TestContext) Container() (*Container, error) {
	if tc.cache == nil {
		return nil, ErrNoContext
	}
	if tc.held != nil {
		return tc.held, nil
	}
	c, err := tc.cache.Acquire(tc.class.Context)
	if err != nil {
		return nil, err
	}
	tc.held = c
	return c, nil
}

// MarkDirty removes the managed context from the cache, so the next user
// loads a fresh one, and releases this run's hold on it. Other class runs
// still holding it keep using it until they release it.
func (tc *TestContext) MarkDirty() error {
	if tc.cache == nil {
		return nil
	}
	if tc.held == nil {
		return tc.cache.Evict(tc.class.Context)
	}
	held := tc.held
	err := tc.cache.evict(tc.class.Context.Key(), held)
	return failure.Append(err, tc.release())
}

// release gives the held context back to the cache.
func (tc *TestContext) release() error {
	if tc.held == nil {
		return nil
	}
	held := tc.held
	tc.held = nil
	return tc.cache.Release(held)
}

// SetAttribute stores a value for later callbacks of the same class run.
func (tc *TestContext) SetAttribute(name string, value any) {
	tc.attributes[name] = value
}

// Attribute returns a stored value.
func (tc *TestContext) Attribute(name string) (any, bool) {
	v, ok := tc.attributes[name]
	return v, ok
}

// RemoveAttribute deletes a stored value and returns it.
func (tc *TestContext) RemoveAttribute(name string) (any, bool) {
	v, ok := tc.attributes[name]
	delete(tc.attributes, name)
	return v, ok
}

// AttributeNames returns the stored attribute names, sorted.
func (tc *TestContext) AttributeNames() []string {
	names := make([]string, 0, len(tc.attributes))
	for name := range tc.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (tc *TestContext) className() string {
	if tc.class == nil {
		return ""
	}
	return tc.class.Name
}
