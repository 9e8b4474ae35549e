package config

// Environment source kinds.
const (
	SourceOS        = "os"
	SourceStatic    = "static"
	SourceFile      = "file"
	SourceConfigMap = "configmap"
)

// Output formats of the run command.
const (
	OutputConsole = "console"
	OutputQuiet   = "quiet"
	OutputJSON    = "json"
)

// Config is the top-level configuration structure for specctl.
type Config struct {
	LogLevel    string            `yaml:"logLevel" default:"info"`
	Environment EnvironmentConfig `yaml:"environment"`
	Run         RunConfig         `yaml:"run"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// EnvironmentConfig selects where environment-gated tests look up values.
type EnvironmentConfig struct {
	// Source is one of "os", "static", "file" or "configmap".
	Source string `yaml:"source" default:"os"`
	// Prefix is prepended to names looked up in the process environment.
	Prefix string `yaml:"prefix" default:"SPECCTL_"`
	// Profile values are always consulted first. With the static source
	// they are the only values.
	Profile   map[string]string `yaml:"profile,omitempty"`
	File      string            `yaml:"file,omitempty"`
	ConfigMap ConfigMapConfig   `yaml:"configMap,omitempty"`
}

// ConfigMapConfig points at a Kubernetes ConfigMap holding environment values.
type ConfigMapConfig struct {
	Namespace  string `yaml:"namespace,omitempty" default:"default"`
	Name       string `yaml:"name,omitempty"`
	Kubeconfig string `yaml:"kubeconfig,omitempty"`
	Context    string `yaml:"context,omitempty"`
}

// RunConfig holds the defaults of the run command.
type RunConfig struct {
	Parallel    int    `yaml:"parallel" default:"1"`
	FailFast    bool   `yaml:"failFast"`
	Verbose     bool   `yaml:"verbose"`
	Output      string `yaml:"output" default:"console"`
	ReportPath  string `yaml:"reportPath,omitempty"`
	ClassFilter string `yaml:"classFilter,omitempty"`
}

// MetricsConfig controls the Prometheus textfile export of a run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}
