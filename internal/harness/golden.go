package harness

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result for golden comparison: a header line with the
// scenario name, then one canonical JSON line per step.
func Snapshot(name string, result *Result) ([]byte, error) {
	var buf bytes.Buffer
	header, err := MarshalCanonical(map[string]any{"scenario": name})
	if err != nil {
		return nil, err
	}
	buf.Write(header)
	buf.WriteByte('\n')
	for _, ev := range result.Trace {
		line, err := MarshalCanonical(ev.canonicalMap())
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// canonicalMap keeps only the fields set for the step kind.
func (ev TraceEvent) canonicalMap() map[string]any {
	m := map[string]any{"step": ev.Step, "kind": ev.Kind}
	if ev.Error != "" {
		m["error"] = ev.Error
	}
	if ev.Kind == "update" {
		m["applied"] = ev.Applied
		m["skipped"] = ev.Skipped
		return m
	}
	if ev.Error != "" {
		return m
	}
	m["form"] = ev.Form
	switch ev.Form {
	case "SELECT":
		rows := make([]any, len(ev.Rows))
		for i, r := range ev.Rows {
			rows[i] = r
		}
		m["variables"] = ev.Variables
		m["rows"] = rows
	case "ASK":
		m["boolean"] = ev.Boolean != nil && *ev.Boolean
	case "CONSTRUCT":
		m["triples"] = ev.Triples
	}
	if ev.Partial {
		m["partial"] = true
	}
	return m
}

// RunWithGolden runs a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()
	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()
	snapshot, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}
