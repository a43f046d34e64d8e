package engine

import (
	"strings"
	"time"

	"github.com/xab-mack/jvmdeps/internal/config"
	"github.com/xab-mack/jvmdeps/internal/model"
)

const expiresLayout = "2006-01-02"

// ApplyIgnores filters diagnostics matched by an unexpired config ignore rule.
func ApplyIgnores(diags []model.Diagnostic, rules []config.IgnoreRule, now time.Time) []model.Diagnostic {
	if len(rules) == 0 {
		return diags
	}
	var out []model.Diagnostic
	for _, d := range diags {
		if isIgnored(d, rules, now) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func isIgnored(d model.Diagnostic, rules []config.IgnoreRule, now time.Time) bool {
	for _, ig := range rules {
		if expired(ig, now) {
			continue
		}
		if ig.Kind != "" && !strings.EqualFold(ig.Kind, string(d.Kind)) {
			continue
		}
		// target rules match by prefix so a rule can cover a whole subtree
		if ig.Target != "" && !strings.HasPrefix(string(d.Target), ig.Target) {
			continue
		}
		if ig.Dependency != "" && ig.Dependency != dependencyName(d) {
			continue
		}
		return true
	}
	return false
}

func dependencyName(d model.Diagnostic) string {
	if d.Package != nil {
		return d.Package.String()
	}
	return string(d.Dependency)
}

func expired(ig config.IgnoreRule, now time.Time) bool {
	if ig.Expires == "" {
		return false
	}
	t, err := time.Parse(expiresLayout, ig.Expires)
	if err != nil {
		return false
	}
	return !now.Before(t.AddDate(0, 0, 1))
}
