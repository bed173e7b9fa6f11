// Package events defines the routed event and the publishers that emit it.
package events

// AgentRoutedEvent is emitted after a request has been routed.
type AgentRoutedEvent struct {
	RequestID string `json:"requestId"`
	Domain    string `json:"domain"`
	SessionID string `json:"sessionId,omitempty"`
	Matched   bool   `json:"matched"`
	AgentID   string `json:"agentId,omitempty"`
	AgentType string `json:"agentType,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
	Timestamp string `json:"timestamp"`
}
