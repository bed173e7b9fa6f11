package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

const (
	objectiveLogPrefix = "discovery:objective"
	pointsPerMatch     = 10
)

// keywordCategory is a capability category and the objective patterns that
// indicate it.
type keywordCategory struct {
	name     string
	patterns []*regexp.Regexp
}

func category(name string, exprs ...string) keywordCategory {
	c := keywordCategory{name: name}
	for _, e := range exprs {
		c.patterns = append(c.patterns, regexp.MustCompile(`(?i)`+e))
	}
	return c
}

// objectiveCategories is ordered; scoring iterates it front to back.
var objectiveCategories = []keywordCategory{
	category("testing",
		`\btest(s|ing)?\b`, `\bcoverage\b`, `\bunit\b`, `\bintegration test`, `\bregression\b`, `\bassert`),
	category("architecture",
		`\barchitect(ure|ural)?\b`, `\bdesign\b`, `\bpattern(s)?\b`, `\brefactor`, `\bmodular`, `\bstructure\b`),
	category("security",
		`\bsecur(e|ity)\b`, `\bvulnerab`, `\bauth(entication|orization)?\b`, `\bencrypt`, `\bcompliance\b`, `\bpci\b`),
	category("performance",
		`\bperformance\b`, `\blatency\b`, `\bslow\b`, `\boptimi[sz]`, `\bthroughput\b`, `\bcach(e|ing)\b`),
	category("integration",
		`\bintegrat(e|ion)\b`, `\bapi\b`, `\bwebhook`, `\bsync(hroni[sz]e)?\b`, `\bconnector\b`, `\bthird[- ]party\b`),
	category("documentation",
		`\bdocument(ation)?\b`, `\breadme\b`, `\bguide\b`, `\bexplain`),
	category("deployment",
		`\bdeploy(ment)?\b`, `\brelease\b`, `\bci/cd\b`, `\bpipeline\b`, `\bdocker\b`, `\bkubernetes\b`),
	category("data",
		`\bdatabase\b`, `\bschema\b`, `\bmigration\b`, `\bquery\b`, `\bsql\b`, `\breport(ing)?\b`),
}

// ObjectiveStrategy scores candidates by keyword hits in the objective text.
type ObjectiveStrategy struct {
	categories []keywordCategory
}

// NewObjectiveStrategy builds an ObjectiveStrategy with the built-in categories.
func NewObjectiveStrategy() *ObjectiveStrategy {
	return &ObjectiveStrategy{categories: objectiveCategories}
}

func (s *ObjectiveStrategy) Name() string  { return "objective" }
func (s *ObjectiveStrategy) Priority() int { return PriorityObjective }

// CanHandle is true when the request has an objective, task or goal.
func (s *ObjectiveStrategy) CanHandle(req *Request) bool {
	qc := ExtractQueryContext(req)
	if qc.HasObjective {
		return true
	}
	for _, k := range []string{PropObjective, PropTask, PropGoal} {
		if _, ok := qc.Properties[k]; ok {
			return true
		}
	}
	return false
}

// Discover returns the candidate with the highest keyword score; ties keep the
// earlier candidate. Zero scores never match.
func (s *ObjectiveStrategy) Discover(_ context.Context, req *Request, candidates []Handler) (Handler, error) {
	text := objectiveText(ExtractQueryContext(req))
	if text == "" {
		return nil, nil
	}

	var best Handler
	bestScore := 0
	for _, h := range candidates {
		score := s.score(h.Capabilities(), text)
		if score > bestScore {
			best, bestScore = h, score
		}
	}
	if best != nil {
		slog.Debug(fmt.Sprintf("%s - selected %s with score %d", objectiveLogPrefix, best.TechnicalDomain(), bestScore))
	}
	return best, nil
}

func (s *ObjectiveStrategy) score(capabilities []string, text string) int {
	score := 0
	for _, c := range s.categories {
		if !advertises(capabilities, c.name) {
			continue
		}
		for _, p := range c.patterns {
			if p.MatchString(text) {
				score += pointsPerMatch
			}
		}
	}
	return score
}

// advertises reports whether any capability contains the category name.
func advertises(capabilities []string, categoryName string) bool {
	for _, c := range capabilities {
		if strings.Contains(strings.ToLower(c), categoryName) {
			return true
		}
	}
	return false
}

// objectiveText prefers the objective, then task, then goal.
func objectiveText(qc QueryContext) string {
	if qc.HasObjective {
		return qc.Objective
	}
	for _, k := range []string{PropTask, PropGoal} {
		if v, ok := qc.Property(k); ok {
			return v
		}
	}
	return ""
}
