package compliance

import (
	"strings"

	"aibom.dev/ledger/bom"
)

// Control maps one governance control to regulatory frameworks and the BOM
// fields that evidence it.
type Control struct {
	Name       string            `json:"control"`
	Frameworks map[string]string `json:"frameworks"`
	Fields     []string          `json:"fields"`
}

// Controls is the built-in mapping of controls to EU AI Act, NIST AI RMF and
// ISO/IEC 42001 clauses.
var Controls = []Control{
	{
		Name: "Traceability/Lineage",
		Frameworks: map[string]string{
			"EU_AI_Act": "Technical documentation & logs",
			"NIST_RMF":  "Map (inventory)",
			"ISO_42001": "Lifecycle management",
		},
		Fields: []string{"components[*].origin", "components[*].fingerprint", "parent_bom"},
	},
	{
		Name: "Risk management",
		Frameworks: map[string]string{
			"EU_AI_Act": "Risk management system",
			"NIST_RMF":  "Measure/Manage",
			"ISO_42001": "Risk assessments",
		},
		Fields: []string{"risk_assessment", "evaluations"},
	},
	{
		Name: "Human oversight",
		Frameworks: map[string]string{
			"EU_AI_Act": "Human oversight",
			"NIST_RMF":  "Govern",
			"ISO_42001": "Governance",
		},
		Fields: []string{"evaluations[*].notes", "created_by"},
	},
	{
		Name: "Transparency",
		Frameworks: map[string]string{
			"EU_AI_Act": "Information to users",
			"NIST_RMF":  "Map",
			"ISO_42001": "Transparency",
		},
		Fields: []string{"description", "license", "metadata"},
	},
	{
		Name: "Monitoring",
		Frameworks: map[string]string{
			"EU_AI_Act": "Post-market monitoring",
			"NIST_RMF":  "Manage",
			"ISO_42001": "Monitoring",
		},
		Fields: []string{"evaluations[*].run_at", "webhook logs"},
	},
}

// ControlResult is the outcome for one control.
type ControlResult struct {
	Control    string            `json:"control"`
	Satisfied  bool              `json:"satisfied"`
	Frameworks map[string]string `json:"frameworks"`
}

// Summary counts satisfied controls.
type Summary struct {
	Satisfied int `json:"satisfied"`
	Total     int `json:"total"`
}

// Report is a compliance dossier for one BOM.
type Report struct {
	Summary Summary         `json:"summary"`
	Details []ControlResult `json:"details"`
}

// BuildReport evaluates doc against Controls.
//
// Only required evidence is checked: component fields need a non-empty
// components list, risk_assessment and evaluations must be non-empty. Other
// fields are optional and never fail a control.
func BuildReport(doc bom.Document) Report {
	var r Report
	for _, c := range Controls {
		satisfied := true
		for _, f := range c.Fields {
			if !evidencePresent(doc, f) {
				satisfied = false
				break
			}
		}
		r.Details = append(r.Details, ControlResult{Control: c.Name, Satisfied: satisfied, Frameworks: c.Frameworks})
		if satisfied {
			r.Summary.Satisfied++
		}
	}
	r.Summary.Total = len(r.Details)
	return r
}

func evidencePresent(doc bom.Document, field string) bool {
	switch {
	case strings.HasPrefix(field, "components["):
		return len(doc.Components()) > 0
	case field == bom.FieldRiskAssessment:
		return truthy(doc[bom.FieldRiskAssessment])
	case field == bom.FieldEvaluations:
		return truthy(doc[bom.FieldEvaluations])
	default:
		return true
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
