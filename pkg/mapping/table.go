package mapping

import (
	"slices"
	"sort"
	"sync/atomic"

	"github.com/morezero/agent-router/pkg/discovery"
)

type snapshot struct {
	primary   map[string]discovery.AgentType
	suggested map[string][]discovery.AgentType
	entries   []Entry
}

// Table is a concurrency-safe domain mapping. Reads use an immutable snapshot;
// Replace swaps in a new one. The zero value is an empty table.
type Table struct {
	current atomic.Pointer[snapshot]
}

// NewTable builds a table from entries.
func NewTable(entries []Entry) *Table {
	t := &Table{}
	t.Replace(entries)
	return t
}

// NewTableFromConfig builds a table from a mapping file.
func NewTableFromConfig(cfg *MappingConfig) *Table {
	return NewTable(EntriesFromConfig(cfg))
}

// EntriesFromConfig flattens a mapping file into domain-sorted entries.
func EntriesFromConfig(cfg *MappingConfig) []Entry {
	if cfg == nil {
		return nil
	}
	entries := make([]Entry, 0, len(cfg.Mappings))
	for domain, e := range cfg.Mappings {
		entries = append(entries, Entry{Domain: domain, Primary: e.Primary, Suggested: slices.Clone(e.Suggested)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Domain < entries[j].Domain })
	return entries
}

// Replace atomically swaps the table contents. A later entry for the same
// domain overrides an earlier one.
func (t *Table) Replace(entries []Entry) {
	s := &snapshot{
		primary:   make(map[string]discovery.AgentType, len(entries)),
		suggested: make(map[string][]discovery.AgentType, len(entries)),
	}
	byDomain := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byDomain[e.Domain] = e
	}
	for domain, e := range byDomain {
		if e.Primary != "" {
			s.primary[domain] = discovery.AgentType(e.Primary)
		}
		types := make([]discovery.AgentType, 0, len(e.Suggested))
		for _, sug := range e.Suggested {
			types = append(types, discovery.AgentType(sug))
		}
		s.suggested[domain] = types
		s.entries = append(s.entries, Entry{Domain: domain, Primary: e.Primary, Suggested: slices.Clone(e.Suggested)})
	}
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].Domain < s.entries[j].Domain })
	t.current.Store(s)
}

func (t *Table) load() *snapshot {
	if s := t.current.Load(); s != nil {
		return s
	}
	return &snapshot{}
}

// PrimaryAgentType implements discovery.DomainMapping.
func (t *Table) PrimaryAgentType(domain string) (discovery.AgentType, bool) {
	at, ok := t.load().primary[domain]
	return at, ok
}

// SuggestedAgentTypes implements discovery.DomainMapping.
func (t *Table) SuggestedAgentTypes(domain string) []discovery.AgentType {
	return slices.Clone(t.load().suggested[domain])
}

// Entries lists the table sorted by domain.
func (t *Table) Entries() []Entry {
	return slices.Clone(t.load().entries)
}

// Len returns the number of mapped domains.
func (t *Table) Len() int {
	return len(t.load().entries)
}
