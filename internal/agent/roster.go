package agent

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Agent is one entry of the static roster.
type Agent struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Role   string `yaml:"role" json:"role"`
	Avatar string `yaml:"avatar,omitempty" json:"avatar,omitempty"`
}

// DefaultAgents returns the built-in roster.
func DefaultAgents() []Agent {
	return []Agent{
		{ID: "beacon", Name: "Beacon", Role: "Product Strategist", Avatar: "🎯"},
		{ID: "forge", Name: "Forge", Role: "Developer", Avatar: "🔨"},
		{ID: "echo", Name: "Echo", Role: "Content Creator", Avatar: "📢"},
		{ID: "scout", Name: "Scout", Role: "Researcher", Avatar: "🔭"},
		{ID: "sentinel", Name: "Sentinel", Role: "QA", Avatar: "🛡️"},
	}
}

// Roster is an immutable, ordered set of agents keyed by id.
type Roster struct {
	agents []Agent
	index  map[string]int
}

// NewRoster validates the agents and builds a roster. Ids must be unique and
// non-empty; a missing display name falls back to the capitalised id.
func NewRoster(agents []Agent) (*Roster, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("roster cannot be empty")
	}

	r := &Roster{
		agents: make([]Agent, 0, len(agents)),
		index:  make(map[string]int, len(agents)),
	}
	for _, a := range agents {
		a.ID = strings.TrimSpace(a.ID)
		if a.ID == "" {
			return nil, fmt.Errorf("agent id cannot be empty")
		}
		if strings.ContainsAny(a.ID, `/\`) || a.ID == "." || a.ID == ".." {
			return nil, fmt.Errorf("agent id %q is not a valid directory name", a.ID)
		}
		if _, dup := r.index[a.ID]; dup {
			return nil, fmt.Errorf("duplicate agent id %q", a.ID)
		}
		if strings.TrimSpace(a.Name) == "" {
			a.Name = strings.ToUpper(a.ID[:1]) + a.ID[1:]
		}
		r.index[a.ID] = len(r.agents)
		r.agents = append(r.agents, a)
	}
	return r, nil
}

// DefaultRoster returns the roster built from DefaultAgents.
func DefaultRoster() *Roster {
	r, err := NewRoster(DefaultAgents())
	if err != nil {
		panic(err)
	}
	return r
}

// All returns a copy of the agents in roster order.
func (r *Roster) All() []Agent {
	out := make([]Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

// Lookup finds an agent by id.
func (r *Roster) Lookup(id string) (Agent, bool) {
	i, ok := r.index[strings.TrimSpace(id)]
	if !ok {
		return Agent{}, false
	}
	return r.agents[i], true
}

// Contains reports whether id belongs to the roster.
func (r *Roster) Contains(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

// IDs returns agent ids in roster order.
func (r *Roster) IDs() []string {
	ids := make([]string, len(r.agents))
	for i, a := range r.agents {
		ids[i] = a.ID
	}
	return ids
}

// Len returns the number of agents.
func (r *Roster) Len() int { return len(r.agents) }

// Label renders "<avatar> <name>" for reports, or just the name without an avatar.
func (a Agent) Label() string {
	if a.Avatar == "" {
		return a.Name
	}
	return a.Avatar + " " + a.Name
}

// MemoryFile is the WORKING.md path for an agent under root.
func MemoryFile(root, id string) string {
	return filepath.Join(root, id, "memory", "WORKING.md")
}

// MemoryDir is the directory holding an agent's WORKING.md.
func MemoryDir(root, id string) string {
	return filepath.Join(root, id, "memory")
}

// NotesDir is the directory holding an agent's markdown notes.
func NotesDir(root, id string) string {
	return filepath.Join(root, id, "notes")
}
