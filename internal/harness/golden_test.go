package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot(t *testing.T) {
	yes := true
	result := NewResult()
	result.AddTrace(TraceEvent{Step: 1, Kind: "update", Applied: 2})
	result.AddTrace(TraceEvent{Step: 2, Kind: "query", Form: "ASK", Boolean: &yes})
	result.AddTrace(TraceEvent{
		Step: 3, Kind: "query", Form: "SELECT",
		Variables: []string{"x"},
		Rows:      []map[string]string{{"x": "<urn:a>"}, {}},
		Partial:   true,
	})
	result.AddTrace(TraceEvent{Step: 4, Kind: "query", Error: "QUERY_TIMEOUT", Form: "SELECT"})

	got, err := Snapshot("demo", result)
	require.NoError(t, err)
	want := `{"scenario":"demo"}
{"applied":2,"kind":"update","skipped":0,"step":1}
{"boolean":true,"form":"ASK","kind":"query","step":2}
{"form":"SELECT","kind":"query","partial":true,"rows":[{"x":"<urn:a>"},{}],"step":3,"variables":["x"]}
{"error":"QUERY_TIMEOUT","kind":"query","step":4}
`
	assert.Equal(t, want, string(got))
}
