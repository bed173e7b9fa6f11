package mapping

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

const logPrefix = "mapping:loader"

// LoadMappingConfig loads a mapping file. Paths are tried in order: explicit
// paths, then ROUTER_MAPPING_FILE, then config/mappings.json and
// mappings.json. When none can be read, the built-in default is returned.
func LoadMappingConfig(paths ...string) (*MappingConfig, error) {
	all := make([]string, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("ROUTER_MAPPING_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/mappings.json", "mappings.json")

	for _, p := range all {
		cfg, err := ReadMappingFile(p)
		if err != nil {
			if !os.IsNotExist(err) {
				slog.Warn(fmt.Sprintf("%s - Failed to load mapping file %s: %v", logPrefix, p, err))
			}
			continue
		}
		slog.Info(fmt.Sprintf("%s - Loaded %d domain mappings from %s", logPrefix, len(cfg.Mappings), p))
		return cfg, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default mapping config", logPrefix))
	return DefaultMappingConfig(), nil
}

// ReadMappingFile reads and parses a single mapping file.
func ReadMappingFile(path string) (*MappingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg MappingConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s - failed to parse %s: %w", logPrefix, path, err)
	}
	if cfg.Mappings == nil {
		cfg.Mappings = map[string]DomainEntry{}
	}
	return &cfg, nil
}

// DefaultMappingConfig returns the built-in mapping table.
func DefaultMappingConfig() *MappingConfig {
	return &MappingConfig{
		Name:        "agent-router-mappings",
		Version:     "1.0.0",
		Description: "Default domain to agent-type mappings",
		Mappings: map[string]DomainEntry{
			"pos-inventory": {
				Primary:   "BUSINESS_DOMAIN",
				Suggested: []string{"INTEGRATION", "DATA"},
			},
			"payments": {
				Primary:   "BUSINESS_DOMAIN",
				Suggested: []string{"SECURITY", "INTEGRATION"},
			},
			"testing": {
				Primary:   "QUALITY",
				Suggested: []string{"ARCHITECTURE"},
			},
			"architecture": {
				Primary:   "ARCHITECTURE",
				Suggested: []string{"BUSINESS_DOMAIN"},
			},
			"security": {
				Primary:   "SECURITY",
				Suggested: []string{"ARCHITECTURE"},
			},
			"webhooks": {
				Primary:   "INTEGRATION",
				Suggested: []string{"SECURITY"},
			},
			"reporting": {
				Primary:   "DATA",
				Suggested: []string{"BUSINESS_DOMAIN"},
			},
		},
	}
}
