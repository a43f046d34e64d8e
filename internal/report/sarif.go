package report

import (
	"encoding/json"

	"github.com/xab-mack/jvmdeps/internal/model"
)

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool          `json:"tool"`
	AutomationDetails *sarifAutomationID `json:"automationDetails,omitempty"`
	Results           []sarifResult      `json:"results"`
}

type sarifAutomationID struct {
	ID string `json:"id"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}
type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLoc        `json:"locations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}
type sarifLoc struct {
	Physical sarifPhys `json:"physicalLocation"`
}
type sarifPhys struct {
	ArtifactLocation sarifArt     `json:"artifactLocation"`
	Region           *sarifRegion `json:"region,omitempty"`
}
type sarifArt struct {
	URI string `json:"uri"`
}
type sarifRegion struct {
	StartLine int `json:"startLine"`
}

// ToSARIF renders the check result as a SARIF 2.1.0 log with one rule per
// diagnostic kind.
func ToSARIF(res *model.CheckResult) ([]byte, error) {
	rules := make([]sarifRule, 0, len(model.Kinds))
	for _, k := range model.Kinds {
		rules = append(rules, sarifRule{ID: string(k), ShortDescription: sarifMessage{Text: Describe(k)}})
	}
	results := make([]sarifResult, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		level := "warning"
		if d.Severity == model.SeverityError {
			level = "error"
		}
		r := sarifResult{
			RuleID:  string(d.Kind),
			Level:   level,
			Message: sarifMessage{Text: d.Message},
		}
		if d.Fingerprint != "" {
			r.PartialFingerprints = map[string]string{"jvmdeps/v1": d.Fingerprint}
		}
		if d.Source != "" {
			loc := sarifLoc{Physical: sarifPhys{ArtifactLocation: sarifArt{URI: d.Source}}}
			if d.Line > 0 {
				loc.Physical.Region = &sarifRegion{StartLine: d.Line}
			}
			r.Locations = []sarifLoc{loc}
		}
		results = append(results, r)
	}
	run := sarifRun{
		Tool:    sarifTool{Driver: sarifDriver{Name: "jvmdeps", Rules: rules}},
		Results: results,
	}
	if res.RunID != "" {
		run.AutomationDetails = &sarifAutomationID{ID: "jvmdeps/" + res.RunID}
	}
	s := sarif{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
	return json.MarshalIndent(s, "", "  ")
}
