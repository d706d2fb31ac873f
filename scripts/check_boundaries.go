package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "github.com/cryptomx1/truth-unveiled-dao-sub004"

// civicContexts are the bounded contexts allowed under contexts/.
var civicContexts = map[string]bool{
	"civic-ballot":  true,
	"civic-polling": true,
	"civic-trust":   true,
}

// layerRule lists what a service layer may import beyond the standard library.
// Own layers are resolved against the importing service.
type layerRule struct {
	ownLayers []string
	extra     []string
}

var layerRules = map[string]layerRule{
	"domain": {
		ownLayers: []string{"domain"},
		extra:     []string{modulePath + "/internal/shared"},
	},
	"ports": {
		ownLayers: []string{"domain", "ports"},
		extra:     []string{modulePath + "/internal/shared"},
	},
	"application": {
		ownLayers: []string{"application", "domain", "ports"},
		extra: []string{
			modulePath + "/internal/shared",
			"golang.org/x/sync",
			"github.com/hashicorp/golang-lru/v2",
		},
	},
}

// runtimeInfra may only be reached from adapters, module wiring and cmd/.
var runtimeInfra = []string{
	modulePath + "/internal/platform",
	modulePath + "/internal/app",
}

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func main() {
	violations := collectViolations(".")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Import < b.Import
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// collectViolations checks every non-test Go file under root/contexts and
// root/internal/shared. Reported paths are relative to root.
func collectViolations(root string) []violation {
	var violations []violation
	for _, dir := range []string{"contexts", "internal/shared"} {
		_ = filepath.WalkDir(filepath.Join(root, dir), func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			violations = append(violations, checkFile(path, filepath.ToSlash(rel))...)
			return nil
		})
	}
	return violations
}

func checkFile(path string, rel string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: rel, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	if rule := placementRule(rel); rule != "" {
		violations = append(violations, violation{File: rel, Line: 1, Rule: rule})
	}
	check := importChecker(rel)
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line
		for _, rule := range check(importPath) {
			violations = append(violations, violation{File: rel, Line: line, Import: importPath, Rule: rule})
		}
	}
	return violations
}

func placementRule(rel string) string {
	parts := strings.Split(rel, "/")
	if parts[0] != "contexts" || len(parts) < 3 || civicContexts[parts[1]] {
		return ""
	}
	return "unknown bounded context " + parts[1]
}

// importChecker returns the import rules for the file at rel.
func importChecker(rel string) func(importPath string) []string {
	parts := strings.Split(rel, "/")
	if parts[0] == "internal" {
		return checkSharedImport
	}
	if len(parts) < 4 {
		return func(string) []string { return nil }
	}
	contextName, serviceName, layer := parts[1], parts[2], parts[3]
	service := fmt.Sprintf("%s/contexts/%s/%s", modulePath, contextName, serviceName)

	return func(importPath string) []string {
		var rules []string
		if hasPrefix(importPath, modulePath+"/contexts") && !hasPrefix(importPath, service) {
			rules = append(rules, "services must not import other services")
		}
		rule, layered := layerRules[layer]
		if !layered {
			return rules
		}
		if strings.Contains(importPath, "/adapters/") {
			rules = append(rules, layer+" must not import adapters")
		}
		if isAllowed(importPath, runtimeInfra) {
			rules = append(rules, layer+" must not import platform or app wiring")
		}
		allowed := append([]string{}, rule.extra...)
		for _, own := range rule.ownLayers {
			allowed = append(allowed, service+"/"+own)
		}
		if !isStdlib(importPath) && !isAllowed(importPath, allowed) {
			rules = append(rules, layer+" import is outside its allowlist")
		}
		return rules
	}
}

// checkSharedImport keeps the shared kernel free of contexts and runtime wiring.
func checkSharedImport(importPath string) []string {
	if hasPrefix(importPath, modulePath+"/contexts") {
		return []string{"shared kernel must not import contexts"}
	}
	if isAllowed(importPath, runtimeInfra) {
		return []string{"shared kernel must not import platform or app wiring"}
	}
	return nil
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
