package inspect

import (
	"bytes"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	sgdiff "github.com/sourcegraph/go-diff/diff"
)

// DiffStats counts changed lines
type DiffStats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Hunks   int `json:"hunks"`
}

// Diff returns a unified diff of two tree renderings; identical trees yield an empty diff
func Diff(before, after *Node) (string, DiffStats, error) {
	from, to := Format(before), Format(after)
	if from == to {
		return "", DiffStats{}, nil
	}
	patch, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(from),
		B:        difflib.SplitLines(to),
		FromFile: before.Path + " (before)",
		ToFile:   after.Path + " (after)",
		Context:  3,
	})
	if err != nil {
		return "", DiffStats{}, err
	}
	stats, err := statsOf(patch)
	return patch, stats, err
}

func statsOf(patch string) (DiffStats, error) {
	fileDiff, err := sgdiff.ParseFileDiff([]byte(patch))
	if err != nil {
		return DiffStats{}, fmt.Errorf("failed to parse diff: %w", err)
	}
	stats := DiffStats{Hunks: len(fileDiff.Hunks)}
	for _, hunk := range fileDiff.Hunks {
		for _, line := range bytes.Split(hunk.Body, []byte("\n")) {
			if len(line) == 0 {
				continue
			}
			switch line[0] {
			case '+':
				stats.Added++
			case '-':
				stats.Removed++
			}
		}
	}
	return stats, nil
}
