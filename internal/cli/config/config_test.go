package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("program", "", "")
	flags.StringSlice("handlers", nil, "")
	flags.String("state", "", "")
	flags.String("output", "", "")
	flags.String("profile", "", "")
	flags.Int("max-depth", 0, "")
	flags.StringArray("set", nil, "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultProgram), cfg.Program)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultMaxDepth, cfg.MaxDepth)
	assert.Empty(t, cfg.Handlers)
	assert.Empty(t, cfg.Options)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Files(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		handlers []string
		options  map[string]string
	}{
		{
			name: "yaml",
			file: "buildgraph.yaml",
			content: `program: out/graph.bgc
handlers: [Compile, Cook]
options:
  WithTools: false
  Platform: Win64
max_depth: 50
`,
			handlers: []string{"Compile", "Cook"},
			options:  map[string]string{"WithTools": "false", "Platform": "Win64"},
		},
		{
			name: "toml",
			file: "buildgraph.toml",
			content: `program = "out/graph.bgc"
handlers = ["Compile", "Cook"]
max_depth = 50

[options]
WithTools = false
Platform = "Win64"
`,
			handlers: []string{"Compile", "Cook"},
			options:  map[string]string{"WithTools": "false", "Platform": "Win64"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, tt.file), tt.content)
			t.Chdir(dir)

			cfg, err := LoadConfig("", nil)
			require.NoError(t, err)

			assert.Equal(t, filepath.Join(dir, tt.file), GetConfigFileUsed())
			assert.Equal(t, filepath.Join(dir, "out", "graph.bgc"), cfg.Program)
			assert.Equal(t, tt.handlers, cfg.Handlers)
			assert.Equal(t, tt.options, cfg.Options)
			assert.Equal(t, 50, cfg.MaxDepth)
		})
	}
}

func TestLoadConfig_SearchesUpward(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "buildgraph.yml"), "state_path: state/run.db\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "state", "run.db"), cfg.StatePath)
}

func TestLoadConfig_Precedence(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "buildgraph.yaml"), "output: json\nhandlers: [FromFile]\nmax_depth: 10\n")
	t.Chdir(dir)
	t.Setenv("BUILDGRAPH_OUTPUT", "table")
	t.Setenv("BUILDGRAPH_HANDLERS", "Env1, Env2")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--max-depth", "20", "--program", "local.bgc"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "table", cfg.OutputFormat, "env overrides file")
	assert.Equal(t, []string{"Env1", "Env2"}, cfg.Handlers, "comma separated env list")
	assert.Equal(t, 20, cfg.MaxDepth, "flag overrides file")
	assert.Equal(t, filepath.Join(dir, "local.bgc"), cfg.Program)

	ResetConfig()
	flags = newFlags()
	require.NoError(t, flags.Parse([]string{"--output", "text", "--handlers", "A,B"}))
	cfg, err = LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.OutputFormat, "flag overrides env")
	assert.Equal(t, []string{"A", "B"}, cfg.Handlers)
}

func TestLoadConfig_StateFlagMapsToStatePath(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--state", "custom.db"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom.db"), cfg.StatePath)
}

func TestLoadConfig_OptionLayers(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "buildgraph.yaml"), `options:
  Platform: Win64
  Config: Development
profiles:
  shipping:
    options:
      Config: Shipping
      Clean: "true"
`)
	t.Chdir(dir)

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--profile", "shipping", "--set", "Platform=Linux", "--set", "Extra=a=b"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Platform": "Linux",
		"Config":   "Shipping",
		"Clean":    "true",
		"Extra":    "a=b",
	}, cfg.Options)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		args    []string
		wantErr string
	}{
		{
			name:    "unknown profile",
			args:    []string{"--profile", "missing"},
			wantErr: `unknown profile "missing"`,
		},
		{
			name:    "bad set",
			args:    []string{"--set", "novalue"},
			wantErr: "invalid --set",
		},
		{
			name:    "bad yaml",
			file:    "options: [",
			wantErr: "error reading config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			dir := t.TempDir()
			if tt.file != "" {
				writeFile(t, filepath.Join(dir, "buildgraph.yaml"), tt.file)
			}
			t.Chdir(dir)

			flags := newFlags()
			require.NoError(t, flags.Parse(tt.args))

			_, err := LoadConfig("", flags)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Program:      "p.bgc",
			OutputFormat: "auto",
			LogLevel:     "info",
			LogFormat:    "text",
			MaxDepth:     10,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "upper case level", mutate: func(c *Config) { c.LogLevel = "DEBUG" }},
		{name: "no program", mutate: func(c *Config) { c.Program = "" }, wantErr: "program is required"},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "markdown" }, wantErr: "invalid output"},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "invalid log_level"},
		{name: "bad format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "invalid log_format"},
		{name: "negative depth", mutate: func(c *Config) { c.MaxDepth = -1 }, wantErr: "max_depth"},
		{name: "unknown profile", mutate: func(c *Config) { c.Profile = "x" }, wantErr: "unknown profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
