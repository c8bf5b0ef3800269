// Package notes aggregates what agents wrote down: findings in WORKING.md,
// recent note files, an activity feed and product ideas.
package notes

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"missioncontrol/internal/agent"
	"missioncontrol/internal/extract"
)

const (
	recentNotesLimit  = 5
	noteExcerptRunes  = 500
	progressLineLimit = 3
	minActivityRunes  = 6
	minIdeaRunes      = 11
	defaultCacheSize  = 256
	// DefaultIdeasAgent is the agent whose notes hold product ideas.
	DefaultIdeasAgent = "beacon"
)

var (
	sectionRe   = regexp.MustCompile(`^##\s+(.+?)\s*:?\s*$`)
	numberedRe  = regexp.MustCompile(`^\s*\d+\.`)
	activityTag = regexp.MustCompile(`^[\s\-*✅⏳🔄]+`)
)

var findingTypes = []struct {
	re   *regexp.Regexp
	kind string
}{
	{regexp.MustCompile(`(?i)^ideas?$`), "idea"},
	{regexp.MustCompile(`(?i)^research$`), "research"},
	{regexp.MustCompile(`(?i)^content$`), "content"},
	{regexp.MustCompile(`(?i)^code$`), "code"},
	{regexp.MustCompile(`(?i)^issues?$`), "issue"},
}

type Finding struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type Note struct {
	File      string    `json:"file"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentNotes is everything collected for one agent.
type AgentNotes struct {
	Agent       agent.Agent    `json:"agent"`
	Status      extract.Status `json:"status"`
	CurrentTask string         `json:"currentTask"`
	Findings    []Finding      `json:"findings"`
	RecentNotes []Note         `json:"recentNotes"`
	LastActive  *time.Time     `json:"lastActive"`
}

type Activity struct {
	Agent       string `json:"agent"`
	AgentID     string `json:"agentId"`
	AgentAvatar string `json:"agentAvatar"`
	Action      string `json:"action"`
	Time        string `json:"time"`
}

type Idea struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

type section struct {
	title string
	lines []string
}

// parsedFile is the cached view of one markdown file.
type parsedFile struct {
	content  string
	sections []section
}

type cacheKey struct {
	path  string
	size  int64
	mtime int64
}

// Reader walks the agent directories. Parsed files are cached by path, size
// and modification time, so edits are picked up on the next read.
type Reader struct {
	root       string
	roster     *agent.Roster
	extractor  *extract.Extractor
	ideasAgent string
	cache      *lru.Cache[cacheKey, *parsedFile]
	logger     *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithIdeasAgent selects whose notes feed the ideas list.
func WithIdeasAgent(id string) Option { return func(r *Reader) { r.ideasAgent = id } }

// WithExtractor overrides the status extractor.
func WithExtractor(e *extract.Extractor) Option { return func(r *Reader) { r.extractor = e } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(r *Reader) { r.logger = l } }

// NewReader returns a reader over root.
func NewReader(root string, roster *agent.Roster, opts ...Option) (*Reader, error) {
	cache, err := lru.New[cacheKey, *parsedFile](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create notes cache: %w", err)
	}
	r := &Reader{
		root:       root,
		roster:     roster,
		extractor:  extract.New(extract.Options{}),
		ideasAgent: DefaultIdeasAgent,
		cache:      cache,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Agents collects notes for every roster agent. Missing directories yield
// defaults rather than errors.
func (r *Reader) Agents() []AgentNotes {
	out := make([]AgentNotes, 0, r.roster.Len())
	for _, a := range r.roster.All() {
		n := AgentNotes{
			Agent:       a,
			Status:      extract.StatusIdle,
			CurrentTask: extract.DefaultTask,
			Findings:    []Finding{},
			RecentNotes: r.recentNotes(a.ID),
		}

		path := agent.MemoryFile(r.root, a.ID)
		if pf, info, ok := r.load(path); ok {
			res := r.extractor.Extract(pf.content)
			n.Status = res.Status
			n.CurrentTask = res.CurrentTask
			n.Findings = findings(pf)
			mt := info.ModTime().UTC()
			n.LastActive = &mt
		}
		out = append(out, n)
	}
	return out
}

// Activities builds the feed from "Recent Progress" and "Next Steps" sections.
func (r *Reader) Activities() []Activity {
	activities := []Activity{}
	for _, a := range r.roster.All() {
		pf, _, ok := r.load(agent.MemoryFile(r.root, a.ID))
		if !ok {
			continue
		}

		if lines, found := pf.section("recent progress"); found {
			taken := 0
			for _, line := range lines {
				if strings.TrimSpace(line) == "" {
					continue
				}
				if taken == progressLineLimit {
					break
				}
				taken++
				cleaned := strings.TrimSpace(activityTag.ReplaceAllString(line, ""))
				if len([]rune(cleaned)) >= minActivityRunes {
					activities = append(activities, activityFor(a, cleaned, "Recent"))
				}
			}
		}

		if lines, found := pf.section("next steps"); found {
			pending := 0
			for _, line := range lines {
				if numberedRe.MatchString(line) {
					pending++
				}
			}
			if pending > 0 {
				activities = append(activities, activityFor(a, fmt.Sprintf("Has %d pending tasks", pending), "Pending"))
			}
		}
	}
	return activities
}

// Ideas lists the bullets longer than ten characters in the ideas agent's notes.
func (r *Reader) Ideas() []Idea {
	ideas := []Idea{}
	if !r.roster.Contains(r.ideasAgent) {
		return ideas
	}

	dir := agent.NotesDir(r.root, r.ideasAgent)
	for _, name := range markdownFiles(dir) {
		pf, info, ok := r.load(filepath.Join(dir, name))
		if !ok {
			continue
		}
		for _, line := range strings.Split(pf.content, "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "- ") {
				continue
			}
			text := strings.TrimSpace(strings.TrimPrefix(line, "- "))
			if len([]rune(text)) >= minIdeaRunes {
				ideas = append(ideas, Idea{Text: text, Source: name, Timestamp: info.ModTime().UTC()})
			}
		}
	}
	return ideas
}

func (r *Reader) recentNotes(id string) []Note {
	dir := agent.NotesDir(r.root, id)

	type entry struct {
		name string
		info os.FileInfo
	}
	var entries []entry
	for _, name := range markdownFiles(dir) {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		entries = append(entries, entry{name, info})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].info.ModTime().After(entries[j].info.ModTime())
	})
	if len(entries) > recentNotesLimit {
		entries = entries[:recentNotesLimit]
	}

	notes := []Note{}
	for _, e := range entries {
		pf, _, ok := r.load(filepath.Join(dir, e.name))
		if !ok {
			continue
		}
		notes = append(notes, Note{
			File:      e.name,
			Content:   excerpt(pf.content, noteExcerptRunes),
			Timestamp: e.info.ModTime().UTC(),
		})
	}
	return notes
}

// load returns the parsed file, hitting the cache when size and mtime match.
func (r *Reader) load(path string) (*parsedFile, os.FileInfo, bool) {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("cannot stat notes file", "path", path, "error", err)
		}
		return nil, nil, false
	}

	key := cacheKey{path: path, size: info.Size(), mtime: info.ModTime().UnixNano()}
	if pf, ok := r.cache.Get(key); ok {
		return pf, info, true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("cannot read notes file", "path", path, "error", err)
		return nil, nil, false
	}
	pf := parse(string(data))
	r.cache.Add(key, pf)
	return pf, info, true
}

func parse(content string) *parsedFile {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	pf := &parsedFile{content: content}

	var cur *section
	for _, line := range strings.Split(content, "\n") {
		if m := sectionRe.FindStringSubmatch(line); m != nil {
			pf.sections = append(pf.sections, section{title: m[1]})
			cur = &pf.sections[len(pf.sections)-1]
			continue
		}
		if strings.HasPrefix(line, "# ") {
			cur = nil
			continue
		}
		if cur != nil {
			cur.lines = append(cur.lines, line)
		}
	}
	return pf
}

func (pf *parsedFile) section(title string) ([]string, bool) {
	for _, s := range pf.sections {
		if strings.EqualFold(s.title, title) {
			return s.lines, true
		}
	}
	return nil, false
}

func findings(pf *parsedFile) []Finding {
	out := []Finding{}
	for _, ft := range findingTypes {
		for _, s := range pf.sections {
			if !ft.re.MatchString(s.title) {
				continue
			}
			if body := strings.TrimSpace(strings.Join(s.lines, "\n")); body != "" {
				out = append(out, Finding{Type: ft.kind, Content: body})
			}
		}
	}
	return out
}

func activityFor(a agent.Agent, action, when string) Activity {
	return Activity{Agent: a.Name, AgentID: a.ID, AgentAvatar: a.Avatar, Action: action, Time: when}
}

func markdownFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	return names
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
