// Package mapping provides the domain → agent-type table used by the domain
// strategy, and loading of that table from JSON files.
package mapping

// DomainEntry maps one domain to agent types.
type DomainEntry struct {
	Primary   string   `json:"primary,omitempty"`
	Suggested []string `json:"suggested,omitempty"`
}

// MappingConfig is the root of a mapping file.
type MappingConfig struct {
	Name        string                 `json:"name"`
	Version     string                 `json:"version"`
	Description string                 `json:"description,omitempty"`
	Mappings    map[string]DomainEntry `json:"mappings"`
}

// Entry is a flattened mapping row, as listed by Table.Entries.
type Entry struct {
	Domain    string   `json:"domain"`
	Primary   string   `json:"primary,omitempty"`
	Suggested []string `json:"suggested"`
}
