package mapping

import (
	"sync"
	"testing"

	"github.com/morezero/agent-router/pkg/discovery"
)

const tableTestPrefix = "mapping:table_test"

func TestTable_Lookups(t *testing.T) {
	tbl := NewTable([]Entry{
		{Domain: "pos-inventory", Primary: "BUSINESS_DOMAIN", Suggested: []string{"INTEGRATION", "DATA"}},
		{Domain: "suggest-only", Suggested: []string{"DATA"}},
	})

	at, ok := tbl.PrimaryAgentType("pos-inventory")
	if !ok || at != "BUSINESS_DOMAIN" {
		t.Errorf("%s - primary = %q (%v), want BUSINESS_DOMAIN", tableTestPrefix, at, ok)
	}
	if _, ok := tbl.PrimaryAgentType("suggest-only"); ok {
		t.Errorf("%s - expected no primary for suggest-only", tableTestPrefix)
	}
	sug := tbl.SuggestedAgentTypes("pos-inventory")
	if len(sug) != 2 || sug[0] != "INTEGRATION" || sug[1] != "DATA" {
		t.Errorf("%s - suggested = %v, want table order", tableTestPrefix, sug)
	}
	if got := tbl.SuggestedAgentTypes("unknown"); len(got) != 0 {
		t.Errorf("%s - expected no suggestions for unknown domain, got %v", tableTestPrefix, got)
	}
}

func TestTable_SuggestedIsCopy(t *testing.T) {
	tbl := NewTable([]Entry{{Domain: "d", Suggested: []string{"A", "B"}}})
	s := tbl.SuggestedAgentTypes("d")
	s[0] = "MUTATED"
	if tbl.SuggestedAgentTypes("d")[0] != "A" {
		t.Errorf("%s - caller mutation leaked into table", tableTestPrefix)
	}
}

func TestTable_ReplaceAndEntries(t *testing.T) {
	tbl := NewTable([]Entry{{Domain: "b", Primary: "B"}, {Domain: "a", Primary: "A"}})
	entries := tbl.Entries()
	if len(entries) != 2 || entries[0].Domain != "a" || entries[1].Domain != "b" {
		t.Fatalf("%s - entries not sorted by domain: %v", tableTestPrefix, entries)
	}

	tbl.Replace([]Entry{{Domain: "c", Primary: "C"}, {Domain: "c", Primary: "C2"}})
	if tbl.Len() != 1 {
		t.Errorf("%s - Len = %d, want 1", tableTestPrefix, tbl.Len())
	}
	if _, ok := tbl.PrimaryAgentType("a"); ok {
		t.Errorf("%s - replaced entry still visible", tableTestPrefix)
	}
	if at, _ := tbl.PrimaryAgentType("c"); at != "C2" {
		t.Errorf("%s - later duplicate should win, got %q", tableTestPrefix, at)
	}
}

func TestTable_ImplementsDomainMapping(t *testing.T) {
	var m discovery.DomainMapping = NewTableFromConfig(DefaultMappingConfig())
	if _, err := discovery.NewDomainStrategy(m); err != nil {
		t.Fatalf("%s - NewDomainStrategy: %v", tableTestPrefix, err)
	}
}

func TestTable_ConcurrentReplace(t *testing.T) {
	tbl := NewTable(nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tbl.Replace([]Entry{{Domain: "d", Primary: "P", Suggested: []string{"S"}}})
		}()
		go func() {
			defer wg.Done()
			if at, ok := tbl.PrimaryAgentType("d"); ok && at != "P" {
				t.Errorf("%s - torn read: %q", tableTestPrefix, at)
			}
		}()
	}
	wg.Wait()
}

func TestTable_ZeroValueIsEmpty(t *testing.T) {
	var tbl Table
	if _, ok := tbl.PrimaryAgentType("pos-inventory"); ok {
		t.Errorf("%s - zero table should have no primary", tableTestPrefix)
	}
	if got := tbl.SuggestedAgentTypes("pos-inventory"); len(got) != 0 {
		t.Errorf("%s - zero table suggested = %v, want none", tableTestPrefix, got)
	}
	if tbl.Len() != 0 || len(tbl.Entries()) != 0 {
		t.Errorf("%s - zero table should be empty", tableTestPrefix)
	}

	tbl.Replace([]Entry{{Domain: "d", Primary: "A"}})
	if at, ok := tbl.PrimaryAgentType("d"); !ok || at != "A" {
		t.Errorf("%s - primary after Replace = %q (%v), want A", tableTestPrefix, at, ok)
	}
}
