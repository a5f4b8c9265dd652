package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/buildgraph/internal/cli/config"
	"github.com/leapstack-labs/buildgraph/internal/cli/testutil"
	"github.com/leapstack-labs/buildgraph/internal/export"
	"github.com/leapstack-labs/buildgraph/internal/state"
)

// execute runs the CLI in dir and returns stdout and stderr.
func execute(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Chdir(dir)

	cmd := NewRootCmd()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func scheduledNodes(t *testing.T, data string) []string {
	t.Helper()
	var s export.Schedule
	require.NoError(t, json.Unmarshal([]byte(data), &s))
	var names []string
	for _, g := range s.Groups {
		for _, n := range g.Nodes {
			names = append(names, n.Name)
		}
	}
	return names
}

func TestRootCommand_Metadata(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "buildgraph", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"list", "check", "options", "export", "disasm", "run", "version", "completion"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "profile", "program", "handlers", "handlers-file", "state", "output", "set", "max-depth", "trace", "culture"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestList(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{
			name: "everything",
			args: []string{"list"},
			want: []string{"Agent: Compile Win64 (Win64)", "Node: C", "Agent: Tools", "Aggregate: Everything", "Report: Nightly"},
		},
		{
			name:    "profile turns tools off",
			args:    []string{"list", "--profile", "lean"},
			want:    []string{"Node: C"},
			notWant: []string{"Agent: Tools"},
		},
		{
			name:    "set turns tools off",
			args:    []string{"list", "--set", "withtools=false"},
			notWant: []string{"Agent: Tools"},
		},
		{
			name:    "target narrows to its inputs",
			args:    []string{"list", "C"},
			want:    []string{"Node: A", "Node: B", "Node: C"},
			notWant: []string{"Node: T", "Agent: Tools"},
		},
		{
			name: "dependencies",
			args: []string{"list", "--deps"},
			want: []string{"input> A, B", "after> A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, dir, tt.args...)
			require.NoError(t, err)
			testutil.AssertNoANSI(t, out)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
			for _, notWant := range tt.notWant {
				assert.NotContains(t, out, notWant)
			}
		})
	}
}

func TestList_JSONAndTable(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := execute(t, dir, "list", "-o", "json")
	require.NoError(t, err)
	var full map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &full))

	out, _, err = execute(t, dir, "list", "-o", "table", "--completed", "A")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "run early")
}

func TestCheck(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := execute(t, dir, "check", "-o", "json")
	require.NoError(t, err)

	var report struct {
		Waves    [][]string `json:"waves"`
		Errors   int        `json:"errors"`
		Warnings int        `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, [][]string{{"A", "T"}, {"B"}, {"C"}}, report.Waves)
	assert.Zero(t, report.Errors)
	assert.Equal(t, 1, report.Warnings)

	out, _, err = execute(t, dir, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "wave 1: A, T")
	assert.Contains(t, out, "A is slow")
	assert.Contains(t, out, "graph is valid")
}

func TestOptions(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	tests := []struct {
		name        string
		args        []string
		wantValue   string
		wantDefault bool
	}{
		{name: "default", args: nil, wantValue: "true", wantDefault: true},
		{name: "set", args: []string{"--set", "WithTools=false"}, wantValue: "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, dir, append([]string{"options", "-o", "json"}, tt.args...)...)
			require.NoError(t, err)

			var opts []struct {
				Name    string `json:"name"`
				Type    string `json:"type"`
				Value   string `json:"value"`
				Default bool   `json:"default"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &opts))
			require.Len(t, opts, 1)
			assert.Equal(t, "WithTools", opts[0].Name)
			assert.Equal(t, "bool", opts[0].Type)
			assert.Equal(t, tt.wantValue, opts[0].Value)
			assert.Equal(t, tt.wantDefault, opts[0].Default)
		})
	}
}

func TestExport(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := execute(t, dir, "export")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "T"}, scheduledNodes(t, out))

	out, _, err = execute(t, dir, "export", "--completed", "A,B")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "T"}, scheduledNodes(t, out))

	out, _, err = execute(t, dir, "export", "--kind", "markup")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<"))

	path := filepath.Join(dir, "out", "graph.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	out, _, err = execute(t, dir, "export", "--kind", "full", "--format", "yaml", "--out", path)
	require.NoError(t, err)
	assert.Empty(t, out)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Compile Win64")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestExport_Errors(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown kind", args: []string{"export", "--kind", "dot"}, wantErr: "unknown export kind"},
		{name: "unknown format", args: []string{"export", "--kind", "full", "--format", "xml"}, wantErr: "xml"},
		{name: "watch without out", args: []string{"export", "--watch"}, wantErr: "--watch requires --out"},
		{name: "unknown target", args: []string{"export", "Nope"}, wantErr: "Nope"},
		{name: "bad option", args: []string{"export", "--set", "WithTools=maybe"}, wantErr: "WithTools"},
		{name: "bad set", args: []string{"export", "--set", "WithTools"}, wantErr: "invalid --set"},
		{name: "unknown profile", args: []string{"export", "--profile", "huge"}, wantErr: "unknown profile"},
		{name: "bad output", args: []string{"export", "-o", "markdown"}, wantErr: "output"},
		{name: "no runs", args: []string{"export", "--from-run", "latest"}, wantErr: "no runs recorded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, dir, tt.args...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDisasm(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := execute(t, dir, "disasm")
	require.NoError(t, err)
	assert.Contains(t, out, "11 fragments")
	assert.Contains(t, out, "fragment 10")

	_, _, err = execute(t, dir, "disasm", filepath.Join(dir, "missing.bgc"))
	assert.ErrorContains(t, err, "failed to read program")
}

func TestRunLifecycle(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := execute(t, dir, "run", "start")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	_, _, err = execute(t, dir, "run", "complete", "A", "B")
	require.NoError(t, err)
	_, _, err = execute(t, dir, "run", "fail", "C", "--error", "link error", "--run", id)
	require.NoError(t, err)

	out, _, err = execute(t, dir, "export", "--from-run", id)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "T"}, scheduledNodes(t, out))

	out, _, err = execute(t, dir, "run", "status", "-o", "json")
	require.NoError(t, err)
	var status struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Nodes  []struct {
			Node   string `json:"node"`
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, id, status.ID)
	assert.Equal(t, "running", status.Status)
	require.Len(t, status.Nodes, 3)
	assert.Equal(t, "C", status.Nodes[2].Node)
	assert.Equal(t, "failed", status.Nodes[2].Status)
	assert.Equal(t, "link error", status.Nodes[2].Error)

	_, _, err = execute(t, dir, "run", "finish", "--status", "failed", "--error", "C failed")
	require.NoError(t, err)

	_, _, err = execute(t, dir, "run", "complete", "C")
	assert.ErrorIs(t, err, state.ErrRunFinished)

	out, _, err = execute(t, dir, "run", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "failed")
}

func TestRunErrors(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, _, err := execute(t, dir, "run", "status")
	assert.ErrorIs(t, err, state.ErrRunNotFound)

	_, _, err = execute(t, dir, "run", "status", "no-such-run")
	assert.ErrorIs(t, err, state.ErrRunNotFound)

	_, _, err = execute(t, dir, "run", "start")
	require.NoError(t, err)
	_, _, err = execute(t, dir, "run", "finish", "--status", "running")
	assert.ErrorContains(t, err, "invalid final status")
}

func TestVerboseLogging(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, errOut, err := execute(t, dir, "list", "-v", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Using config file:")
	assert.Contains(t, errOut, `"msg":"graph built"`)
	assert.Contains(t, errOut, `"level":"DEBUG"`)
}

func TestCompletion(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := execute(t, dir, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "buildgraph")

	_, _, err = execute(t, dir, "completion", "tcsh")
	assert.Error(t, err)
}
