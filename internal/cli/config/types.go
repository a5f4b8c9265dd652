// Package config provides configuration management for the buildgraph CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`

	Program      string                   `koanf:"program"`
	Handlers     []string                 `koanf:"handlers"`
	HandlersFile string                   `koanf:"handlers_file"`
	Options      map[string]string        `koanf:"options"`
	StatePath    string                   `koanf:"state_path"`
	OutputFormat string                   `koanf:"output"`
	Verbose      bool                     `koanf:"verbose"`
	LogLevel     string                   `koanf:"log_level"`
	LogFormat    string                   `koanf:"log_format"`
	MaxDepth     int                      `koanf:"max_depth"`
	Trace        bool                     `koanf:"trace"`
	Culture      string                   `koanf:"culture"`
	Profile      string                   `koanf:"profile"`
	Profiles     map[string]ProfileConfig `koanf:"profiles"`
}

// ProfileConfig holds a named set of option overrides.
type ProfileConfig struct {
	Options map[string]string `koanf:"options"`
}

// Default configuration values.
const (
	DefaultProgram   = "buildgraph.bgc"
	DefaultStateFile = ".buildgraph/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=styled text, non-TTY=plain text
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultMaxDepth  = 1000
)

// configNames are the file names searched for, in order.
var configNames = []string{"buildgraph.yaml", "buildgraph.yml", "buildgraph.toml"}
