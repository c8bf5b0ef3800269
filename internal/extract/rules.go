package extract

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	checkmarkGlyph = "✅"
	pauseGlyph     = "⏸" // matches with or without the emoji variation selector
	activeMarker   = "ACTIVE"
	blockedMarker  = "blocked"
)

var (
	headingRe     = regexp.MustCompile(`^\s{0,3}#{1,6}\s+(.*?)\s*#*\s*$`)
	listItemRe    = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)])\s+`)
	bulletRe      = regexp.MustCompile(`^\s*[-*+•]\s+(.+)$`)
	taskHeadingRe = regexp.MustCompile(`(?i)^current\s+(?:task|sprint)\s*:?$`)
	recentRe      = regexp.MustCompile(`(?i)\brecent\s+reports?\b`)
	checkboxRe    = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+\[[ xX]\][ \t]+(.+)$`)
	datedEntryRe  = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+][ \t]+|#{1,6}[ \t]+)?\**(\d{4}-\d{2}-\d{2}\b.*)$`)
	opportunityRe = regexp.MustCompile(`\d+\.\s+\*\*([^*\n]+)`)
)

func activeRule(requireMarker bool) Rule {
	return func(text string) (string, bool) {
		if !strings.Contains(text, checkmarkGlyph) {
			return "", false
		}
		if requireMarker && !strings.Contains(text, activeMarker) {
			return "", false
		}
		return string(StatusActive), true
	}
}

func blockedRule(text string) (string, bool) {
	if strings.Contains(text, pauseGlyph) || strings.Contains(text, blockedMarker) {
		return string(StatusBlocked), true
	}
	return "", false
}

// currentTaskRule takes the first plain line after a "Current Task" or
// "Current Sprint" heading, looking at most taskLookahead lines ahead.
func currentTaskRule(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		title, ok := headingTitle(line)
		if !ok || !taskHeadingRe.MatchString(title) {
			continue
		}
		for j := i + 1; j < len(lines) && j <= i+taskLookahead; j++ {
			candidate := strings.TrimSpace(lines[j])
			if candidate == "" || isHeading(candidate) || listItemRe.MatchString(candidate) {
				continue
			}
			return truncateRunes(candidate, maxTaskRunes), true
		}
	}
	return "", false
}

// recentReportRule returns the first bullet inside a "Recent Reports" section.
func recentReportRule(text string) (string, bool) {
	inSection := false
	for _, line := range strings.Split(text, "\n") {
		if title, ok := headingTitle(line); ok {
			inSection = recentRe.MatchString(title)
			continue
		}
		if !inSection {
			continue
		}
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

func checkboxRule(text string) (string, bool) {
	return firstSubmatch(checkboxRe, text)
}

func datedEntryRule(text string) (string, bool) {
	v, ok := firstSubmatch(datedEntryRe, text)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(strings.ReplaceAll(v, "**", "")), true
}

// opportunitiesRule summarises up to three numbered bold bullets.
func opportunitiesRule(text string) (string, bool) {
	matches := opportunityRe.FindAllStringSubmatch(text, maxOpportunities)
	var titles []string
	for _, m := range matches {
		if t := strings.TrimSpace(m[1]); t != "" {
			titles = append(titles, t)
		}
	}
	if len(titles) == 0 {
		return "", false
	}
	return fmt.Sprintf("Found %d opportunities: %s", len(titles), strings.Join(titles, ", ")), true
}

func firstSubmatch(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}

func headingTitle(line string) (string, bool) {
	m := headingRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func isHeading(line string) bool {
	_, ok := headingTitle(line)
	return ok
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
