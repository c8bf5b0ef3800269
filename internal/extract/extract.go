// Package extract turns a free-form WORKING.md into a best-effort agent
// status. Every field is resolved by an ordered list of rules; the first rule
// that matches wins and a fixed default is used when none do. Extraction never
// fails.
package extract

import (
	"strings"
)

// Status is the coarse state inferred for an agent.
type Status string

const (
	StatusActive  Status = "active"
	StatusIdle    Status = "idle"
	StatusBlocked Status = "blocked"
)

// ParseStatus accepts a status name case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, true
	case StatusIdle:
		return StatusIdle, true
	case StatusBlocked:
		return StatusBlocked, true
	}
	return "", false
}

const (
	// DefaultTask is reported when no current task heading is found.
	DefaultTask = "No task assigned"

	maxTaskRunes     = 100
	taskLookahead    = 3
	maxOpportunities = 3
)

// Result is the structured view of one WORKING.md.
type Result struct {
	Status      Status `json:"status"`
	CurrentTask string `json:"currentTask"`
	Report      string `json:"report"`
}

// Rule inspects the text and returns a field value when it applies.
type Rule func(text string) (string, bool)

// Options tunes the rule set.
type Options struct {
	// LenientActive treats a checkmark alone as active instead of requiring
	// the ACTIVE marker next to it.
	LenientActive bool
}

// Extractor applies the ordered rule lists.
type Extractor struct {
	statusRules []Rule
	taskRules   []Rule
	reportRules []Rule
}

// New builds an extractor with the standard rules.
func New(opts Options) *Extractor {
	return &Extractor{
		statusRules: []Rule{activeRule(!opts.LenientActive), blockedRule},
		taskRules:   []Rule{currentTaskRule},
		reportRules: []Rule{recentReportRule, checkboxRule, datedEntryRule, opportunitiesRule},
	}
}

var defaultExtractor = New(Options{})

// Extract runs the default (strict) extractor.
func Extract(text string) Result {
	return defaultExtractor.Extract(text)
}

// Extract derives status, current task and report text from text.
func (e *Extractor) Extract(text string) Result {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return Result{
		Status:      Status(firstMatch(e.statusRules, text, string(StatusIdle))),
		CurrentTask: firstMatch(e.taskRules, text, DefaultTask),
		Report:      firstMatch(e.reportRules, text, ""),
	}
}

func firstMatch(rules []Rule, text, fallback string) string {
	for _, rule := range rules {
		if v, ok := rule(text); ok {
			return v
		}
	}
	return fallback
}
