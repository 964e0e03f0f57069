// Package personalize tailors synthesized insights to one veteran: branch
// terminology, communication style, action filtering, and priority
// re-ranking, all driven by a cached per-subject context.
package personalize

import (
	"sync"
	"time"
)

// Profile is the caller-supplied subject profile.
type Profile struct {
	Affiliation         string   `json:"affiliation" yaml:"affiliation"`                   // "army", "navy", ...
	CommunicationStyle  string   `json:"communication_style" yaml:"communication_style"`   // "simple", "detailed", "standard"
	FinancialReadiness  string   `json:"financial_readiness" yaml:"financial_readiness"`   // "low", "medium", "high"
	EmploymentReadiness string   `json:"employment_readiness" yaml:"employment_readiness"` // "low", "medium", "high"
	Goals               []string `json:"goals" yaml:"goals"`
	PriorityAreas       []string `json:"priority_areas" yaml:"priority_areas"`
}

// History carries the subject's interaction history relevant to adaptation.
type History struct {
	DismissedActions []string `json:"dismissed_actions" yaml:"dismissed_actions"`
}

// Context is the resolved, cached personalization state for one subject.
type Context struct {
	SubjectID           string
	Affiliation         string
	CommunicationStyle  string
	FinancialReadiness  string
	EmploymentReadiness string
	Goals               []string
	PriorityAreas       []string
	Dismissed           map[string]bool
	BuiltAt             time.Time
}

// Builder builds and caches per-subject contexts.
type Builder struct {
	mu      sync.RWMutex
	cache   map[string]Context
	nowFunc func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{
		cache:   make(map[string]Context),
		nowFunc: time.Now,
	}
}

// WithNow fixes the builder clock for tests.
func (b *Builder) WithNow(fn func() time.Time) *Builder {
	b.nowFunc = fn
	return b
}

// BuildContext resolves a context for the subject. A previously built
// context is served from cache; pass a fresh profile through
// Invalidate first to rebuild.
func (b *Builder) BuildContext(subjectID string, profile Profile, history *History) Context {
	b.mu.RLock()
	cached, ok := b.cache[subjectID]
	b.mu.RUnlock()
	if ok {
		return cached
	}

	ctx := Context{
		SubjectID:           subjectID,
		Affiliation:         normalizeChoice(profile.Affiliation),
		CommunicationStyle:  normalizeChoice(profile.CommunicationStyle),
		FinancialReadiness:  normalizeChoice(profile.FinancialReadiness),
		EmploymentReadiness: normalizeChoice(profile.EmploymentReadiness),
		Goals:               profile.Goals,
		PriorityAreas:       profile.PriorityAreas,
		Dismissed:           make(map[string]bool),
		BuiltAt:             b.nowFunc().UTC(),
	}
	if history != nil {
		for _, id := range history.DismissedActions {
			ctx.Dismissed[id] = true
		}
	}

	b.mu.Lock()
	b.cache[subjectID] = ctx
	b.mu.Unlock()
	return ctx
}

// Invalidate drops the cached context so the next BuildContext rebuilds.
func (b *Builder) Invalidate(subjectID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cache, subjectID)
}
