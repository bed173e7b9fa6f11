package discovery

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Property keys read from a request context.
const (
	PropObjective            = "objective"
	PropTask                 = "task"
	PropGoal                 = "goal"
	PropRequiredCapabilities = "required-capabilities"
	PropConfidenceThreshold  = "confidence-threshold"
	PropAgentVersion         = "agent-version"

	DefaultConfidenceThreshold = 70
)

// QueryContext is a read-only, flattened view of a request.
type QueryContext struct {
	Domain              string
	Objective           string
	HasObjective        bool
	Properties          map[string]any
	SessionID           string
	ConfidenceThreshold int
}

// ExtractQueryContext flattens req into a QueryContext. Properties are copied,
// so later changes to the request's map are not observed.
func ExtractQueryContext(req *Request) QueryContext {
	qc := QueryContext{
		Properties:          map[string]any{},
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
	if req == nil || req.Context == nil {
		return qc
	}
	rc := req.Context
	qc.Domain = rc.AgentDomain
	qc.SessionID = rc.SessionID
	if rc.Properties != nil {
		qc.Properties = maps.Clone(rc.Properties)
	}
	if v, ok := qc.Properties[PropObjective]; ok && v != nil {
		qc.Objective = stringOf(v)
		qc.HasObjective = true
	}
	if v, ok := qc.Properties[PropConfidenceThreshold]; ok {
		if n, ok := intOf(v); ok {
			qc.ConfidenceThreshold = n
		}
	}
	return qc
}

// Property returns the string form of a property and whether it was set.
func (qc QueryContext) Property(key string) (string, bool) {
	v, ok := qc.Properties[key]
	if !ok || v == nil {
		return "", false
	}
	return stringOf(v), true
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func intOf(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

// stringList reads a list-valued property. JSON-decoded requests carry []any;
// a comma-separated string is accepted as well.
func stringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if e == nil {
				continue
			}
			out = append(out, stringOf(e))
		}
		return out, true
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, len(out) > 0
	}
	return nil, false
}
