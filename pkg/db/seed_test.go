package db

import "testing"

const seedTestPrefix = "db:seed_test"

func TestToMappingEntries(t *testing.T) {
	primary := "BUSINESS_DOMAIN"
	rows := []DomainMapping{
		{Domain: "pos-inventory", PrimaryType: &primary, SuggestedTypes: []string{"INTEGRATION"}},
		{Domain: "suggest-only", SuggestedTypes: []string{"DATA"}},
	}

	entries := ToMappingEntries(rows)
	if len(entries) != 2 {
		t.Fatalf("%s - len = %d, want 2", seedTestPrefix, len(entries))
	}
	if entries[0].Primary != "BUSINESS_DOMAIN" || entries[0].Suggested[0] != "INTEGRATION" {
		t.Errorf("%s - unexpected first entry %+v", seedTestPrefix, entries[0])
	}
	if entries[1].Primary != "" {
		t.Errorf("%s - expected empty primary for nil column, got %q", seedTestPrefix, entries[1].Primary)
	}
}

func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Errorf("%s - expected nil for empty string", seedTestPrefix)
	}
	if p := nullIfEmpty("x"); p == nil || *p != "x" {
		t.Errorf("%s - expected pointer to x", seedTestPrefix)
	}
}
