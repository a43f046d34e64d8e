package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xab-mack/jvmdeps/internal/model"
	"github.com/xab-mack/jvmdeps/internal/util"
)

// Describe returns a one-line description of a diagnostic kind.
func Describe(k model.DiagnosticKind) string {
	switch k {
	case model.KindMissing:
		return "A class reference needs a target outside the declared dependency closure"
	case model.KindIntransitive:
		return "A class reference is satisfied only through a transitive dependency"
	case model.KindUnused:
		return "A declared dependency is never referenced"
	case model.KindUndeclaredPackage:
		return "A class reference resolves to a package the target does not declare"
	default:
		return string(k)
	}
}

// Text writes the human-readable report: one line per diagnostic, followed
// by recovered problems and a summary.
func Text(w io.Writer, res *model.CheckResult) {
	for _, d := range res.Diagnostics {
		loc := ""
		if d.Source != "" {
			loc = d.Source
			if d.Line > 0 {
				loc = fmt.Sprintf("%s:%d", d.Source, d.Line)
			}
			loc = " (" + loc + ")"
		}
		fmt.Fprintf(w, "[%s] %s: %s%s\n", d.Severity, d.Kind, d.Message, loc)
	}
	for _, p := range res.Problems {
		fmt.Fprintf(w, "[problem] %s %s: %s\n", p.Kind, p.Path, p.Err)
	}
	status := "ok"
	if res.Failed {
		status = "FAILED"
	}
	fmt.Fprintf(w, "Diagnostics: %d, problems: %d, status: %s (elapsed %s)\n",
		len(res.Diagnostics), len(res.Problems), status, res.Elapsed)
}

func JSON(res *model.CheckResult) ([]byte, error) {
	return json.MarshalIndent(res, "", "  ")
}

// Annotate fills in the line of each blamed diagnostic by searching its
// source file, relative to root, for the referenced class. Unreadable
// sources are left without a line.
func Annotate(diags []model.Diagnostic, root string) {
	if root == "" {
		return
	}
	contents := map[string]string{}
	for i := range diags {
		d := &diags[i]
		if !d.Blamed() || d.Line > 0 {
			continue
		}
		content, ok := contents[d.Source]
		if !ok {
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(d.Source)))
			if err == nil {
				content = string(data)
			}
			contents[d.Source] = content
		}
		d.Line = util.FindReference(content, d.Artifact.ClassName())
	}
}
