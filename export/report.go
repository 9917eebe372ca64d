package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/datasophos/NexusLIMS-sub001/strategy"
	"github.com/datasophos/NexusLIMS-sub001/types"
)

// BatchReport is the structured JSON report written by --report.
type BatchReport struct {
	Strategy     string       `json:"strategy"`
	Files        []FileReport `json:"files"`
	SuccessCount int          `json:"success_count"`
	FailureCount int          `json:"failure_count"`
}

// FileReport summarizes one (file, session) pair in the report.
type FileReport struct {
	File      string                `json:"file"`
	SessionID string                `json:"session_identifier"`
	Succeeded bool                  `json:"succeeded"`
	Results   []*types.ExportResult `json:"results"`
}

// BuildBatchReport composes a BatchReport from an ExportRecords result map.
// Files appear in input order; the per-file success flag follows the
// strategy's interpretation.
func BuildBatchReport(strat strategy.Strategy, files []string, sessions []types.SessionMeta, results map[string][]*types.ExportResult) *BatchReport {
	report := &BatchReport{Strategy: string(strat)}
	for i, file := range files {
		fileResults := results[file]
		fr := FileReport{
			File:      file,
			Succeeded: strategy.Succeeded(strat, fileResults),
			Results:   fileResults,
		}
		if i < len(sessions) {
			fr.SessionID = sessions[i].SessionID
		}
		for _, r := range fileResults {
			if r.Success {
				report.SuccessCount++
			} else {
				report.FailureCount++
			}
		}
		report.Files = append(report.Files, fr)
	}
	return report
}

// WriteBatchReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteBatchReport(report *BatchReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		if _, err := os.Stderr.Write(data); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}
