package envgate

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source exposes environment values by name.
type Source interface {
	Lookup(name string) (string, bool)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(name string) (string, bool)

// Lookup calls f.
func (f SourceFunc) Lookup(name string) (string, bool) { return f(name) }

// MapSource is a fixed set of values.
type MapSource map[string]string

// Lookup returns the value stored under name.
func (m MapSource) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Keys returns the keys in sorted order.
func (m MapSource) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Built-in keys answered by OSSource.
const (
	KeyOS        = "go.os"
	KeyArch      = "go.arch"
	KeyGoVersion = "go.version"
)

// For mocking in tests
var osLookupEnv = os.LookupEnv

// OSSource reads process environment variables. It also answers the go.os,
// go.arch and go.version built-ins.
type OSSource struct {
	// Prefix is prepended to every lookup, e.g. "SPECCTL_".
	Prefix string
}

// Lookup implements Source.
func (s OSSource) Lookup(name string) (string, bool) {
	switch name {
	case KeyOS:
		return runtime.GOOS, true
	case KeyArch:
		return runtime.GOARCH, true
	case KeyGoVersion:
		return runtime.Version(), true
	}
	return osLookupEnv(s.Prefix + envName(name))
}

// envName turns a dotted key such as "test.groups" into TEST_GROUPS.
func envName(name string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return strings.ToUpper(r.Replace(name))
}

// Chain consults each source in order and returns the first hit.
type Chain []Source

// Lookup implements Source.
func (c Chain) Lookup(name string) (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}

// LoadFileSource reads a flat YAML mapping of environment values. Nested
// mappings are flattened with dots: {test: {groups: unit}} yields
// "test.groups" = "unit".
func LoadFileSource(path string) (MapSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment file %s: %w", path, err)
	}
	return ParseFileSource(data)
}

// ParseFileSource parses the YAML document accepted by LoadFileSource.
func ParseFileSource(data []byte) (MapSource, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse environment file: %w", err)
	}
	out := MapSource{}
	flatten("", raw, out)
	return out, nil
}

func flatten(prefix string, in map[string]interface{}, out MapSource) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(key, val, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}
