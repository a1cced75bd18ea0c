package trace

import (
	"encoding/json"
	"fmt"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// Diff compares two traces and returns a readable delta. The bool reports
// whether the traces differ at all.
func Diff(left, right []Step, coloring bool) (string, bool, error) {
	leftJSON, err := json.Marshal(map[string][]Step{"steps": left})
	if err != nil {
		return "", false, err
	}
	rightJSON, err := json.Marshal(map[string][]Step{"steps": right})
	if err != nil {
		return "", false, err
	}

	differ := gojsondiff.New()
	delta, err := differ.Compare(leftJSON, rightJSON)
	if err != nil {
		return "", false, fmt.Errorf("diffing traces: %w", err)
	}
	if !delta.Modified() {
		return "", false, nil
	}

	// unmarshal for the formatter
	var leftObj interface{}
	if err := json.Unmarshal(leftJSON, &leftObj); err != nil {
		return "", true, err
	}
	cfg := formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       coloring,
	}
	out, err := formatter.NewAsciiFormatter(leftObj, cfg).Format(delta)
	if err != nil {
		return "", true, fmt.Errorf("formatting diff: %w", err)
	}
	return out, true, nil
}

// FirstDivergence returns the index of the first step that differs, or -1
// when the traces are identical.
func FirstDivergence(left, right []Step) int {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		a, _ := json.Marshal(&left[i])
		b, _ := json.Marshal(&right[i])
		if string(a) != string(b) {
			return i
		}
	}
	if len(left) != len(right) {
		return n
	}
	return -1
}
