package sandbox

import (
	"regexp"
	"strings"

	"go.starlark.net/syntax"
)

// forbiddenCalls are builtin-level escape hatches that scripts may not
// invoke, whatever namespace they would resolve in.
var forbiddenCalls = map[string]bool{
	"breakpoint": true,
	"compile":    true,
	"delattr":    true,
	"eval":       true,
	"exec":       true,
	"getattr":    true,
	"globals":    true,
	"input":      true,
	"locals":     true,
	"open":       true,
	"setattr":    true,
	"vars":       true,
	"__import__": true,
}

// forbiddenModules may never be loaded. The sandbox provides nothing that
// could satisfy them anyway; naming them here produces a precise error
// instead of an unknown-module one.
var forbiddenModules = map[string]bool{
	"ctypes":          true,
	"importlib":       true,
	"marshal":         true,
	"multiprocessing": true,
	"os":              true,
	"pathlib":         true,
	"pickle":          true,
	"requests":        true,
	"shelve":          true,
	"shutil":          true,
	"socket":          true,
	"subprocess":      true,
	"sys":             true,
	"threading":       true,
	"urllib":          true,
}

// providedModules are already bound in the script namespace. Import lines
// naming them are neutralized before parsing rather than rejected, so
// scripts written against the generated-code conventions run unchanged.
var providedModules = map[string]bool{
	"json": true,
	"math": true,
	"plot": true,
}

var (
	importLineRe = regexp.MustCompile(`^\s*(?:import|from)\s+([A-Za-z_][A-Za-z0-9_.]*)`)
	loadLineRe   = regexp.MustCompile(`^\s*load\(\s*["']([A-Za-z_][A-Za-z0-9_.]*)`)
)

// NeutralizeImports comments out lines that import or load modules the
// sandbox already provides, and rejects lines naming a forbidden module
// outright. It runs before parsing so that import syntax carried over from
// generated scripts never reaches the interpreter.
func NeutralizeImports(src string) (string, error) {
	lines := strings.Split(src, "\n")
	changed := false
	for i, line := range lines {
		name := importedModule(line)
		if name == "" {
			continue
		}
		root := rootModule(name)
		switch {
		case forbiddenModules[root]:
			return "", &ForbiddenConstructError{Construct: root, Kind: "module", Line: int32(i + 1)}
		case providedModules[root]:
			lines[i] = "# " + line
			changed = true
		}
	}
	if !changed {
		return src, nil
	}
	return strings.Join(lines, "\n"), nil
}

func importedModule(line string) string {
	if m := importLineRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := loadLineRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

func rootModule(name string) string {
	name = strings.TrimSuffix(name, ".star")
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// Validate walks the parsed script and rejects forbidden constructs.
// It runs after parsing and before execution; a failure here means no
// statement of the script has run.
func Validate(f *syntax.File) error {
	var verr error
	syntax.Walk(f, func(n syntax.Node) bool {
		if verr != nil {
			return false
		}
		switch node := n.(type) {
		case *syntax.LoadStmt:
			name := rootModule(strings.Trim(node.Module.Raw, `"'`))
			pos := node.Load
			verr = &ForbiddenConstructError{Construct: name, Kind: "module", Line: pos.Line}
			return false
		case *syntax.CallExpr:
			if ident, ok := node.Fn.(*syntax.Ident); ok && forbiddenCalls[ident.Name] {
				verr = &ForbiddenConstructError{Construct: ident.Name, Kind: "call", Line: ident.NamePos.Line}
				return false
			}
		case *syntax.DotExpr:
			// e.g. os.system reached through an alias would fail name
			// resolution anyway; still reject the well-known module roots
			// so the error names the real problem.
			if ident, ok := node.X.(*syntax.Ident); ok && forbiddenModules[ident.Name] {
				verr = &ForbiddenConstructError{Construct: ident.Name, Kind: "module", Line: ident.NamePos.Line}
				return false
			}
		}
		return true
	})
	return verr
}
