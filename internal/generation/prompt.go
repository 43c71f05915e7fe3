// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
)

// phaseInstructions names the three discovery phases every batch call
// covers.
func phaseInstructions(component, rival string) string {
	return fmt.Sprintf(
		"Discover patterns, vocabulary, and differentiators that distinguish records of %s from records of %s.",
		component, rival)
}

// extractionPromptTmpl is the prompt sent to the Claude API for each
// batch. It carries the accumulated state so extraction stays stateful
// across batches within a run.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`You are a military-records disambiguation analyst building a resolver for the component "{{.Component}}" against its rival "{{.Rival}}".

{{.PhaseInstructions}}

Candidate kinds:
- pattern: a recurring textual structure indicating the component
- vocabulary: a term or abbreviation characteristic of the component
- differentiator: a signal that separates the component from the rival

For each candidate provide:
- key: a short stable identifier for the candidate
- kind: "pattern", "vocabulary", or "differentiator"
- meaning: what the candidate indicates and why it separates the component from the rival
- provenance: "observed" when grounded in the records below, "inferred" when drawn from general knowledge
- confidence: "low", "medium", or "high"
- citations: for observed candidates, objects with soldier_id, record_id, and the verbatim quote

Also flag hard cases: soldiers in this batch you found difficult to disambiguate. For each, provide soldier_id, layer ("collision_position", "complementarity", or "structural_ambiguity"), reason, and optional notes.

Constraints:
{{range .GroundingConstraints}}- {{.}}
{{end}}
{{if .StateSummary}}Accumulated context from earlier batches:
{{.StateSummary}}

{{end}}{{if .KnownJSON}}Candidates already discovered (refine or add, do not repeat unchanged):
{{.KnownJSON}}

{{end}}Records in this batch:
{{.RecordsBlock}}

Respond with a single JSON object: {"candidates": [...], "hard_cases": [...], "summary": "..."} where summary is an updated running synopsis of what the records so far reveal. Do not include any text outside the JSON object.
`))

// renderPrompt executes the extraction template for one request.
func renderPrompt(req Request) (string, error) {
	var records bytes.Buffer
	for _, g := range req.Batch.Groups {
		if g.Component != "" {
			fmt.Fprintf(&records, "soldier %s (component %s):\n", g.SoldierID, g.Component)
		} else {
			fmt.Fprintf(&records, "soldier %s:\n", g.SoldierID)
		}
		for _, rec := range g.Records {
			fmt.Fprintf(&records, "  [%s] %s\n", rec.ID, rec.Text)
		}
	}

	knownJSON := ""
	if len(req.Known) > 0 {
		data, err := json.Marshal(req.Known)
		if err != nil {
			return "", fmt.Errorf("marshaling known candidates: %w", err)
		}
		knownJSON = string(data)
	}

	var buf bytes.Buffer
	err := extractionPromptTmpl.Execute(&buf, struct {
		Component            string
		Rival                string
		PhaseInstructions    string
		GroundingConstraints []string
		StateSummary         string
		KnownJSON            string
		RecordsBlock         string
	}{
		Component:            req.Component,
		Rival:                req.Rival,
		PhaseInstructions:    req.PhaseInstructions,
		GroundingConstraints: req.GroundingConstraints,
		StateSummary:         req.StateSummary,
		KnownJSON:            knownJSON,
		RecordsBlock:         records.String(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
