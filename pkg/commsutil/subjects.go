package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectRoute     = "cap.router.route.v1"
	SubjectHeartbeat = "router.agents.heartbeat"
	SubjectRouted    = "router.routed"
)

// BuildRoutedSubject builds the per-domain routed event subject. Characters
// NATS treats as tokens or wildcards are replaced.
func BuildRoutedSubject(domain string) string {
	if domain == "" {
		domain = "_none"
	}
	return fmt.Sprintf("%s.%s", SubjectRouted, sanitizeToken(domain))
}

// BuildAgentSubject builds the subject an agent of the given type listens on.
func BuildAgentSubject(agentType, agentID string) string {
	return fmt.Sprintf("agent.%s.%s", sanitizeToken(strings.ToLower(agentType)), sanitizeToken(agentID))
}

func sanitizeToken(s string) string {
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(s)
}
