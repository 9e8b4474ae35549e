package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"specctl/internal/envgate"
)

// Helper function to create a config file below dir
func writeConfigFile(t *testing.T, dir string, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, configFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// withPaths points the user and project layers at home and wd.
func withPaths(t *testing.T, home, wd string) {
	t.Helper()
	originalHome, originalWd := osUserHomeDir, osGetwd
	t.Cleanup(func() {
		osUserHomeDir, osGetwd = originalHome, originalWd
	})
	osUserHomeDir = func() (string, error) { return home, nil }
	osGetwd = func() (string, error) { return wd, nil }
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	tempDir := t.TempDir()
	withPaths(t, filepath.Join(tempDir, "home"), filepath.Join(tempDir, "wd"))

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, GetDefaultConfig(), cfg)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, SourceOS, cfg.Environment.Source)
	assert.Equal(t, "SPECCTL_", cfg.Environment.Prefix)
	assert.Equal(t, "default", cfg.Environment.ConfigMap.Namespace)
	assert.Equal(t, 1, cfg.Run.Parallel)
	assert.Equal(t, OutputConsole, cfg.Run.Output)
	assert.False(t, cfg.Run.FailFast)
}

func TestLoadConfig_Layers(t *testing.T) {
	tempDir := t.TempDir()
	home := filepath.Join(tempDir, "home")
	wd := filepath.Join(tempDir, "wd")
	withPaths(t, home, wd)

	writeConfigFile(t, filepath.Join(home, userConfigDir), `
logLevel: debug
environment:
  profile:
    test.groups: unit
    region: eu
run:
  parallel: 4
  failFast: true
`)
	writeConfigFile(t, filepath.Join(wd, projectConfigDir), `
environment:
  source: static
  profile:
    test.groups: integration
run:
  output: quiet
`)
	explicit := writeConfigFile(t, filepath.Join(tempDir, "explicit"), `
run:
  failFast: false
metrics:
  textfile: /tmp/specctl.prom
`)

	cfg, err := LoadConfig(explicit)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, SourceStatic, cfg.Environment.Source)
	assert.Equal(t, map[string]string{"test.groups": "integration", "region": "eu"}, cfg.Environment.Profile)
	assert.Equal(t, 4, cfg.Run.Parallel)
	assert.False(t, cfg.Run.FailFast, "explicit file turns fail-fast off again")
	assert.Equal(t, OutputQuiet, cfg.Run.Output)
	assert.Equal(t, "/tmp/specctl.prom", cfg.Metrics.Textfile)
}

func TestLoadConfig_Errors(t *testing.T) {
	tempDir := t.TempDir()
	home := filepath.Join(tempDir, "home")
	wd := filepath.Join(tempDir, "wd")

	t.Run("malformed yaml", func(t *testing.T) {
		withPaths(t, home, wd)
		writeConfigFile(t, filepath.Join(wd, projectConfigDir), "run: [unclosed")
		t.Cleanup(func() { os.RemoveAll(wd) })

		_, err := LoadConfig("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error loading project config")
	})

	t.Run("missing explicit file", func(t *testing.T) {
		withPaths(t, home, wd)
		_, err := LoadConfig(filepath.Join(tempDir, "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		withPaths(t, home, wd)
		explicit := writeConfigFile(t, filepath.Join(tempDir, "invalid"), "run:\n  output: xml\n")
		_, err := LoadConfig(explicit)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown output format "xml"`)
	})

	t.Run("home unavailable is only a warning", func(t *testing.T) {
		withPaths(t, home, wd)
		osUserHomeDir = func() (string, error) { return "", errors.New("no home") }
		_, err := LoadConfig("")
		assert.NoError(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "file without path", mutate: func(c *Config) { c.Environment.Source = SourceFile }, wantErr: "requires environment.file"},
		{name: "configmap without name", mutate: func(c *Config) { c.Environment.Source = SourceConfigMap }, wantErr: "requires environment.configMap.name"},
		{name: "unknown source", mutate: func(c *Config) { c.Environment.Source = "vault" }, wantErr: `unknown environment source "vault"`},
		{name: "negative parallel", mutate: func(c *Config) { c.Run.Parallel = -1 }, wantErr: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetUserConfigDir(t *testing.T) {
	withPaths(t, "/home/tester", "/work")
	dir, err := GetUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".config", "specctl"), dir)
}

func TestBuildSource(t *testing.T) {
	ctx := context.Background()

	t.Run("static uses only the profile", func(t *testing.T) {
		src, err := BuildSource(ctx, EnvironmentConfig{Source: SourceStatic, Profile: map[string]string{"a": "1"}})
		require.NoError(t, err)
		v, ok := src.Lookup("a")
		assert.True(t, ok)
		assert.Equal(t, "1", v)
		_, ok = src.Lookup("go.os")
		assert.False(t, ok)
	})

	t.Run("os source answers built-ins behind the profile", func(t *testing.T) {
		src, err := BuildSource(ctx, EnvironmentConfig{Source: SourceOS, Prefix: "SPECCTL_", Profile: map[string]string{"go.os": "plan9"}})
		require.NoError(t, err)
		v, _ := src.Lookup("go.os")
		assert.Equal(t, "plan9", v)
		_, ok := src.Lookup("go.arch")
		assert.True(t, ok)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "env.yaml")
		require.NoError(t, os.WriteFile(path, []byte("test:\n  groups: integration\n"), 0644))

		src, err := BuildSource(ctx, EnvironmentConfig{Source: SourceFile, File: path})
		require.NoError(t, err)
		v, ok := src.Lookup("test.groups")
		assert.True(t, ok)
		assert.Equal(t, "integration", v)
	})

	t.Run("configmap", func(t *testing.T) {
		original := newClientset
		t.Cleanup(func() { newClientset = original })

		var gotRef envgate.ConfigMapRef
		newClientset = func(ref envgate.ConfigMapRef) (kubernetes.Interface, error) {
			gotRef = ref
			return fake.NewSimpleClientset(&corev1.ConfigMap{
				ObjectMeta: metav1.ObjectMeta{Name: "specctl-env", Namespace: "ci"},
				Data:       map[string]string{"test.groups": "e2e"},
			}), nil
		}

		src, err := BuildSource(ctx, EnvironmentConfig{
			Source:    SourceConfigMap,
			ConfigMap: ConfigMapConfig{Namespace: "ci", Name: "specctl-env", Context: "kind-ci"},
		})
		require.NoError(t, err)
		assert.Equal(t, "kind-ci", gotRef.Context)
		v, _ := src.Lookup("test.groups")
		assert.Equal(t, "e2e", v)
	})

	t.Run("configmap connection failure", func(t *testing.T) {
		original := newClientset
		t.Cleanup(func() { newClientset = original })
		newClientset = func(envgate.ConfigMapRef) (kubernetes.Interface, error) {
			return nil, errors.New("no cluster")
		}

		_, err := BuildSource(ctx, EnvironmentConfig{Source: SourceConfigMap, ConfigMap: ConfigMapConfig{Name: "x"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to cluster")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := BuildSource(ctx, EnvironmentConfig{Source: "vault"})
		assert.Error(t, err)
	})
}
