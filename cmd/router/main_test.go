package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/morezero/agent-router/pkg/router"
)

const mainTestPrefix = "cmd/router:main_test"

func TestUsage_ContainsCommands(t *testing.T) {
	required := []string{"serve", "migrate", "ensure-db", "clear", "seed", "mappings", "unmap", "route", "DATABASE_URL", "ROUTER_MAPPING_FILE"}
	for _, word := range required {
		if !strings.Contains(usage, word) {
			t.Errorf("%s - usage should contain %q", mainTestPrefix, word)
		}
	}
}

func TestDatabaseURLFor(t *testing.T) {
	got, err := databaseURLFor("postgres://u:p@localhost:5432/morezero?sslmode=disable", "router_test")
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", mainTestPrefix, err)
	}
	want := "postgres://u:p@localhost:5432/router_test?sslmode=disable"
	if got != want {
		t.Errorf("%s - databaseURLFor = %q, want %q", mainTestPrefix, got, want)
	}

	if _, err := databaseURLFor("", "x"); err == nil {
		t.Errorf("%s - expected error for empty DATABASE_URL", mainTestPrefix)
	}
}

func TestBuildRouteRequest(t *testing.T) {
	req, err := buildRouteRequest("pos-inventory", "write integration tests")
	if err != nil {
		t.Fatalf("%s - buildRouteRequest: %v", mainTestPrefix, err)
	}
	if req.Method != "route" || req.ID == "" {
		t.Errorf("%s - unexpected envelope %+v", mainTestPrefix, req)
	}
	var input router.RouteInput
	if err := json.Unmarshal(req.Params, &input); err != nil {
		t.Fatalf("%s - decode params: %v", mainTestPrefix, err)
	}
	if input.Domain != "pos-inventory" || input.Properties["objective"] != "write integration tests" {
		t.Errorf("%s - unexpected params %+v", mainTestPrefix, input)
	}

	req, err = buildRouteRequest("payments", "")
	if err != nil {
		t.Fatalf("%s - buildRouteRequest: %v", mainTestPrefix, err)
	}
	if strings.Contains(string(req.Params), "properties") {
		t.Errorf("%s - empty objective should omit properties: %s", mainTestPrefix, req.Params)
	}
}
