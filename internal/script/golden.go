package script

import (
	"bytes"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/sebdah/goldie/v2"
)

// json writes traces with field order preserved and no HTML escaping,
// so "<absent>" reads as is in golden files.
var json = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

// traceHeader is the first line of a marshaled trace.
type traceHeader struct {
	Script  string `json:"script"`
	Entries int    `json:"entries"`
}

// MarshalTrace renders a trace as JSON lines: a header line naming the
// script, then one line per entry.
func MarshalTrace(name string, trace []TraceEntry) ([]byte, error) {
	var buf bytes.Buffer

	line, err := json.Marshal(traceHeader{Script: name, Entries: len(trace)})
	if err != nil {
		return nil, err
	}
	buf.Write(line)
	buf.WriteByte('\n')

	for _, entry := range trace {
		line, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a script and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{script.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/script -update
//
// Step and assertion failures fail the test. The returned error covers
// setup failures only.
func RunWithGolden(t *testing.T, s *Script) error {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		return err
	}
	if !result.Pass {
		t.Errorf("script %s failed:\n%s", s.Name, strings.Join(result.Errors, "\n"))
	}

	return AssertGolden(t, s.Name, result)
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the script.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalTrace(name, result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
