package llm

import _ "embed"

// The system prompt lives in a separate file so it can be edited without
// touching Go code.
//
//go:embed prompts/full_report.txt
var fullReportPrompt string

// FullReportPrompt returns the system prompt for the diagnostic report.
func FullReportPrompt() string { return fullReportPrompt }
