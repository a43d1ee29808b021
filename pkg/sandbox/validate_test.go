package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeutralizeImportsCommentsProvidedModules(t *testing.T) {
	src := "import math\nimport json\nx = math.pi"
	out, err := NeutralizeImports(src)
	require.NoError(t, err)
	assert.Equal(t, "# import math\n# import json\nx = math.pi", out)
}

func TestNeutralizeImportsFromSyntax(t *testing.T) {
	out, err := NeutralizeImports("from math import sqrt")
	require.NoError(t, err)
	assert.Equal(t, "# from math import sqrt", out)
}

func TestNeutralizeImportsLoadSyntax(t *testing.T) {
	out, err := NeutralizeImports(`load("json", "decode")`)
	require.NoError(t, err)
	assert.Equal(t, `# load("json", "decode")`, out)
}

func TestNeutralizeImportsUnchangedSource(t *testing.T) {
	src := "x = 1\ny = x + 1"
	out, err := NeutralizeImports(src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestNeutralizeImportsRejectsForbiddenModules(t *testing.T) {
	tests := []struct {
		name string
		src  string
		root string
		line int32
	}{
		{"import os", "import os", "os", 1},
		{"from subprocess", "from subprocess import run", "subprocess", 1},
		{"dotted submodule", "import urllib.request", "urllib", 1},
		{"load call", `load("socket", "connect")`, "socket", 1},
		{"later line", "x = 1\nimport sys", "sys", 2},
		{"indented", "    import pickle", "pickle", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NeutralizeImports(tt.src)
			var forbidden *ForbiddenConstructError
			require.ErrorAs(t, err, &forbidden)
			assert.Equal(t, tt.root, forbidden.Construct)
			assert.Equal(t, "module", forbidden.Kind)
			assert.Equal(t, tt.line, forbidden.Line)
		})
	}
}

func TestValidateRejectsForbiddenCalls(t *testing.T) {
	for _, call := range []string{"eval", "exec", "open", "getattr", "__import__"} {
		t.Run(call, func(t *testing.T) {
			f, err := fileOptions.Parse("script.star", "x = 1\n"+call+"(\"arg\")", 0)
			require.NoError(t, err)

			var forbidden *ForbiddenConstructError
			require.ErrorAs(t, Validate(f), &forbidden)
			assert.Equal(t, call, forbidden.Construct)
			assert.Equal(t, "call", forbidden.Kind)
			assert.EqualValues(t, 2, forbidden.Line)
		})
	}
}

func TestValidateRejectsLoadStatements(t *testing.T) {
	f, err := fileOptions.Parse("script.star", `load("helpers.star", "util")`, 0)
	require.NoError(t, err)

	var forbidden *ForbiddenConstructError
	require.ErrorAs(t, Validate(f), &forbidden)
	assert.Equal(t, "helpers", forbidden.Construct)
	assert.Equal(t, "module", forbidden.Kind)
}

func TestValidateRejectsForbiddenModuleAttribute(t *testing.T) {
	f, err := fileOptions.Parse("script.star", "cwd = os.getcwd()", 0)
	require.NoError(t, err)

	var forbidden *ForbiddenConstructError
	require.ErrorAs(t, Validate(f), &forbidden)
	assert.Equal(t, "os", forbidden.Construct)
	assert.Equal(t, "module", forbidden.Kind)
}

func TestValidateAcceptsCleanScript(t *testing.T) {
	src := `total = df["score"].sum()
df["scaled"] = df["score"] / total`
	f, err := fileOptions.Parse("script.star", src, 0)
	require.NoError(t, err)
	assert.NoError(t, Validate(f))
}

func TestForbiddenConstructErrorMessage(t *testing.T) {
	modErr := &ForbiddenConstructError{Construct: "os", Kind: "module", Line: 3}
	assert.Equal(t, `line 3: loading module "os" is not allowed in the sandbox`, modErr.Error())

	callErr := &ForbiddenConstructError{Construct: "eval", Kind: "call", Line: 1}
	assert.Equal(t, `line 1: call to "eval" is not allowed in the sandbox`, callErr.Error())
}
