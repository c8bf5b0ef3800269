package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExtract_Defaults(t *testing.T) {
	inputs := []string{
		"",
		"   \n\n\t",
		"random text without any structure",
		"## Current Task\n",
		"## Current Task\n- only a list item\n## Next\n",
		"\x00\xff\xfe garbage bytes",
		strings.Repeat("#", 5000),
	}

	for _, in := range inputs {
		got := Extract(in)
		assert.Equal(t, Result{Status: StatusIdle, CurrentTask: DefaultTask, Report: ""}, got, "input %q", in)
	}
}

func TestExtract_BlockedExample(t *testing.T) {
	got := Extract("## Current Task\nShip v2 onboarding\n\n⏸️ waiting on design\n")

	assert.Equal(t, Result{
		Status:      StatusBlocked,
		CurrentTask: "Ship v2 onboarding",
		Report:      "",
	}, got)
}

func TestExtract_StatusPrecedence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Status
	}{
		{"pause glyph", "⏸️ paused", StatusBlocked},
		{"pause glyph without selector", "⏸ paused", StatusBlocked},
		{"blocked substring", "currently blocked on review", StatusBlocked},
		{"active before blocked", "✅ ACTIVE\nwas blocked yesterday", StatusActive},
		{"blocked before active", "was blocked yesterday\n✅ ACTIVE", StatusActive},
		{"pause then active", "⏸️\n✅ status: ACTIVE", StatusActive},
		{"checkmark without marker falls through", "✅ done\nblocked on api", StatusBlocked},
		{"checkmark alone is idle", "✅ all done", StatusIdle},
		{"marker alone is idle", "ACTIVE sprint", StatusIdle},
		{"capitalised Blocked is not a marker", "Blocked", StatusIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text).Status)
		})
	}
}

func TestExtract_LenientActive(t *testing.T) {
	e := New(Options{LenientActive: true})

	assert.Equal(t, StatusActive, e.Extract("✅ all done").Status)
	assert.Equal(t, StatusActive, e.Extract("blocked\n✅").Status)
	assert.Equal(t, StatusBlocked, e.Extract("blocked").Status)
}

func TestExtract_CurrentTask(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"next line", "## Current Task\nWrite docs", "Write docs"},
		{"sprint heading", "### Current Sprint\n\nLaunch beta", "Launch beta"},
		{"case insensitive", "# current task:\nTriage inbox", "Triage inbox"},
		{"skips list and blank lines", "## Current Task\n\n- bullet\nReal task", "Real task"},
		{"lookahead limit", "## Current Task\n\n\n\nToo far", DefaultTask},
		{"skips headings", "## Current Task\n### Details\nNested task", "Nested task"},
		{"first matching heading wins", "## Current Task\nFirst\n## Current Sprint\nSecond", "First"},
		{"crlf", "## Current Task\r\nWindows task\r\n", "Windows task"},
		{"heading must name the task exactly", "## Not the Current Task\nDecoy", DefaultTask},
		{"heading with trailing words", "## Current Task List\nDecoy", DefaultTask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text).CurrentTask)
		})
	}
}

func TestExtract_CurrentTaskTruncated(t *testing.T) {
	long := strings.Repeat("é", 150)
	got := Extract("## Current Task\n" + long).CurrentTask

	assert.Equal(t, 100, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestExtract_Report(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "recent reports section",
			text: "## Recent Reports\n- Shipped pricing page\n- Older entry\n## Notes\n- [x] other",
			want: "Shipped pricing page",
		},
		{
			name: "checkbox bullet",
			text: "## Log\n- [x] Fixed login bug\n- [ ] Write tests",
			want: "Fixed login bug",
		},
		{
			name: "open checkbox",
			text: "* [ ] Draft newsletter",
			want: "Draft newsletter",
		},
		{
			name: "dated entry",
			text: "## History\n2024-06-01: Reviewed onboarding funnel",
			want: "2024-06-01: Reviewed onboarding funnel",
		},
		{
			name: "dated bullet with bold",
			text: "- **2024-06-02** deployed v2",
			want: "2024-06-02 deployed v2",
		},
		{
			name: "checkbox before dated entry",
			text: "2024-06-01 something\n- [x] done thing",
			want: "done thing",
		},
		{
			name: "opportunities",
			text: "1. **Game Previews** - idea\n2. **Push Alerts**\n3. **Leaderboards**\n4. **Ignored**",
			want: "Found 3 opportunities: Game Previews, Push Alerts, Leaderboards",
		},
		{
			name: "single opportunity",
			text: "1. **Referral Program**",
			want: "Found 1 opportunities: Referral Program",
		},
		{
			name: "nothing",
			text: "plain prose only",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text).Report)
		})
	}
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" Active ")
	assert.True(t, ok)
	assert.Equal(t, StatusActive, s)

	_, ok = ParseStatus("sleeping")
	assert.False(t, ok)
}

func TestRulesArePure(t *testing.T) {
	text := "## Current Task\nShip\n✅ ACTIVE\n- [x] done"
	first := Extract(text)
	second := Extract(text)
	assert.Equal(t, first, second)
}
