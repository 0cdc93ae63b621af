package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Harshitk-cp/memora/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	outputPretty = "pretty"
	outputJSON   = "json"
	outputYAML   = "yaml"
)

func validOutput(f string) bool {
	switch f {
	case outputPretty, outputJSON, outputYAML:
		return true
	}
	return false
}

// render writes v as JSON or YAML. It reports false for the pretty format so
// the caller can print its own human-readable view.
func render(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case outputYAML:
		// Round-trip through JSON so YAML keys follow the json tags.
		raw, err := json.Marshal(v)
		if err != nil {
			return true, err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return true, err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func printFact(w io.Writer, f domain.Fact) {
	line := fmt.Sprintf("  - [%s] %s", f.FactType, f.Text)
	if f.Context != nil && *f.Context != "" {
		line += fmt.Sprintf(" (%s)", *f.Context)
	}
	if f.EventDate != nil {
		line += " @ " + f.EventDate.Format("2006-01-02")
	}
	if f.Activation != nil {
		line += fmt.Sprintf(" score=%.4f", *f.Activation)
	}
	fmt.Fprintln(w, line)
}

func printThinkResult(w io.Writer, res *domain.ThinkResult) {
	fmt.Fprintln(w, strings.TrimSpace(res.Text))
	fmt.Fprintln(w)

	total := 0
	for _, facts := range res.BasedOn {
		total += len(facts)
	}
	if total == 0 {
		fmt.Fprintln(w, "Based on: no memories")
		return
	}
	fmt.Fprintf(w, "Based on %d memories:\n", total)
	for _, t := range domain.AllFactTypes() {
		for _, f := range res.BasedOn[t] {
			printFact(w, f)
		}
	}
}

func printFacts(w io.Writer, facts []domain.Fact) {
	if len(facts) == 0 {
		fmt.Fprintln(w, "No memories found")
		return
	}
	fmt.Fprintf(w, "Found %d memories:\n", len(facts))
	for _, f := range facts {
		printFact(w, f)
	}
}

func printAgents(w io.Writer, agents []domain.Agent) {
	if len(agents) == 0 {
		fmt.Fprintln(w, "No agents")
		return
	}
	for _, a := range agents {
		fmt.Fprintf(w, "%s  %-24s %s\n", a.ID, a.ExternalID, a.Name)
	}
}
