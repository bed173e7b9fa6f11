package commsutil

import (
	"testing"

	comms "github.com/nats-io/nats.go"
)

const connectTestPrefix = "commsutil:connect_test"

func TestConnect_InvalidURL(t *testing.T) {
	nc, err := Connect("invalid://not-a-comms-server", "router-test")
	if err == nil {
		nc.Close()
		t.Fatalf("%s - expected error for invalid URL", connectTestPrefix)
	}
	if nc != nil {
		t.Errorf("%s - expected nil connection on error", connectTestPrefix)
	}
}

func TestConnect_NameAndExtraOptions(t *testing.T) {
	url := startServer(t, 14235)
	nc, err := Connect(url, "router-test", comms.NoEcho())
	if err != nil {
		t.Fatalf("%s - Connect: %v", connectTestPrefix, err)
	}
	defer nc.Close()

	if nc.Opts.Name != "router-test" {
		t.Errorf("%s - name = %q, want router-test", connectTestPrefix, nc.Opts.Name)
	}
	if !nc.Opts.NoEcho {
		t.Errorf("%s - extra option not applied", connectTestPrefix)
	}
	if nc.Opts.MaxReconnect != -1 {
		t.Errorf("%s - MaxReconnect = %d, want -1", connectTestPrefix, nc.Opts.MaxReconnect)
	}
}
