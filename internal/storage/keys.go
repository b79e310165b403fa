package storage

import "time"

// dateFormat is the run-date layout used in every derived key. Dates
// render in UTC with no time component.
const dateFormat = "2006-01-02"

// DeriveKey maps a task identity to its canonical storage key:
// {workflow}/{step}/{YYYY-MM-DD}. Deterministic for a given triple.
func DeriveKey(workflowID, stepID string, runDate time.Time) string {
	return workflowID + "/" + stepID + "/" + FormatRunDate(runDate)
}

// DeriveContainerKey maps a step to the container key holding its
// dated artifacts: {workflow}/{step}.
func DeriveContainerKey(workflowID, stepID string) string {
	return workflowID + "/" + stepID
}

// FormatRunDate renders a run date per the key naming convention.
func FormatRunDate(runDate time.Time) string {
	return runDate.UTC().Format(dateFormat)
}
