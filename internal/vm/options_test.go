package vm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/buildgraph/internal/bytecode"
	tu "github.com/leapstack-labs/buildgraph/internal/testutil"
)

func boolOption(name string, def tu.Expr) tu.Expr {
	return func(f *bytecode.Fragment) {
		f.Op(bytecode.OpBoolOption).Str(name).Str("a flag")
		def(f)
	}
}

func intOption(name string, lo, hi, def tu.Expr) tu.Expr {
	return func(f *bytecode.Fragment) {
		f.Op(bytecode.OpIntOption).Str(name).Str("a number")
		tu.Emit(f, lo, hi, def)
	}
}

func strOption(name string, pattern, message, values, def tu.Expr) tu.Expr {
	return func(f *bytecode.Fragment) {
		f.Op(bytecode.OpStrOption).Str(name).Str("a string")
		tu.Emit(f, pattern, message, values, def)
	}
}

func listOption(name string, def tu.Expr) tu.Expr {
	return func(f *bytecode.Fragment) {
		f.Op(bytecode.OpListOption).Str(name).Str("a list")
		def(f)
	}
}

func TestOptions_Values(t *testing.T) {
	platforms := strOption("Platform", tu.Null(), tu.Null(), tu.Strs("Win64", "Linux"), tu.Str("Win64"))
	tests := []struct {
		name    string
		expr    tu.Expr
		options map[string]string
		want    Value
	}{
		{"bool default", boolOption("Clean", tu.Bool(true)), nil, Bool(true)},
		{"bool set", boolOption("Clean", throw("default evaluated")), map[string]string{"clean": "FALSE"}, Bool(false)},
		{"int default", intOption("Jobs", tu.Int(1), tu.Int(8), tu.Int(4)), nil, Int(4)},
		{"int set", intOption("Jobs", tu.Int(1), tu.Int(8), throw("default evaluated")), map[string]string{"Jobs": " 8 "}, Int(8)},
		{"int unbounded", intOption("Jobs", tu.Null(), tu.Null(), tu.Int(0)), map[string]string{"Jobs": "-100"}, Int(-100)},
		{"string default", platforms, nil, String("Win64")},
		{"string allowed ignoring case", platforms, map[string]string{"platform": "linux"}, String("linux")},
		{"string pattern", strOption("Branch", tu.Str("[A-Z][a-z]+"), tu.Null(), tu.Null(), tu.Str("Main")), map[string]string{"Branch": "Release"}, String("Release")},
		{"list default", join(listOption("Targets", tu.Strs("Game"))), nil, String("Game")},
		{"list split", join(listOption("Targets", tu.List())), map[string]string{"Targets": "Game; Editor+Server,,"}, String("Game,Editor,Server")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalRoot(t, Config{Options: tt.options}, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptions_ValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		expr       tu.Expr
		value      string
		wantReason string
	}{
		{"bool", boolOption("Opt", tu.Bool(false)), "maybe", "not a boolean"},
		{"int syntax", intOption("Opt", tu.Null(), tu.Null(), tu.Int(0)), "four", "not an integer"},
		{"int below minimum", intOption("Opt", tu.Int(1), tu.Null(), tu.Int(1)), "0", "less than the minimum of 1"},
		{"int above maximum", intOption("Opt", tu.Null(), tu.Int(10), tu.Int(1)), "11", "greater than the maximum of 10"},
		{"pattern", strOption("Opt", tu.Str("[a-z]+"), tu.Null(), tu.Null(), tu.Str("x")), "abc1", `does not match pattern "[a-z]+"`},
		{"pattern with message", strOption("Opt", tu.Str("[a-z]+"), tu.Str("use lower case"), tu.Null(), tu.Str("x")), "ABC", "use lower case"},
		{"allow list", strOption("Opt", tu.Null(), tu.Null(), tu.Strs("Win64", "Linux"), tu.Str("Win64")), "Mac", "must be one of Win64, Linux"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalRoot(t, Config{Options: map[string]string{"opt": tt.value}}, tt.expr)
			require.Error(t, err)

			var oe *OptionError
			require.True(t, errors.As(err, &oe))
			assert.Equal(t, "Opt", oe.Name)
			assert.Equal(t, tt.value, oe.Value)
			assert.Equal(t, tt.wantReason, oe.Reason)
			assert.True(t, IsUserError(err))
		})
	}
}

func TestOptions_Declared(t *testing.T) {
	w := bytecode.NewWriter()
	tu.Emit(w.Root(), tu.With(bytecode.OpBoolAnd,
		boolOption("Clean", tu.Bool(false)),
		tu.With(bytecode.OpIntEq,
			intOption("Jobs", tu.Null(), tu.Null(), tu.Int(4)),
			intOption("jobs", tu.Null(), tu.Null(), tu.Int(4)),
		),
	))

	in := newInterpreter(t, w, Config{Options: map[string]string{"JOBS": "2"}})
	_, err := in.Evaluate()
	require.NoError(t, err)

	assert.Equal(t, []OptionDecl{
		{Name: "Clean", Description: "a flag", Kind: KindBool, Value: "false", FromDefault: true},
		{Name: "jobs", Description: "a number", Kind: KindInt, Value: "2"},
	}, in.DeclaredOptions())
}

func TestNew_InvalidCulture(t *testing.T) {
	p, err := bytecode.Parse(bytecode.NewWriter().Bytes())
	require.NoError(t, err)
	_, err = New(p, Config{Culture: "not a culture!"})
	assert.Error(t, err)
}
