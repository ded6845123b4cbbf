package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jarokaz/alphafold-sandbox/internal/features"
)

// Out is the result output from a pipeline run
type Out struct {
	// unix
	Time int64 `json:"time"`

	// RunID of the pipeline run that produced the features
	RunID string `json:"runId,omitempty"`

	// Features is the feature record
	Features features.Dict `json:"features"`
}

// Write a feature record to the fs at the output path
func Write(filename, runID string, d features.Dict) error {
	out := Out{
		Time:     time.Now().Unix(),
		RunID:    runID,
		Features: d,
	}

	output, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize the features: %w", err)
	}

	if err = os.WriteFile(filename, output, 0o644); err != nil {
		return fmt.Errorf("failed to write the features to %s: %w", filename, err)
	}
	return nil
}

// Read a feature record written by Write
func Read(filename string) (*Out, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read features from %s: %w", filename, err)
	}

	var out Out
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse features from %s: %w", filename, err)
	}
	return &out, nil
}

// Summary writes one line per feature (name, dtype and shape) in name order.
func Summary(w io.Writer, d features.Dict) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "feature\tdtype\tshape")
	for _, k := range d.Keys() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", k, d[k].DType, d[k].ShapeString())
	}
	return tw.Flush()
}
