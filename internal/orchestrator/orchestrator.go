// Package orchestrator runs the cross-engine query path: cache check,
// engine fan-out, detector synthesis, personalization, aggregation, and
// the decision-log write. One DecisionLog per cache-miss query; cache
// hits are served verbatim with a lightweight audit event only.
package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vetlink-group/intel-cli/internal/audit"
	"github.com/vetlink-group/intel-cli/internal/detector"
	"github.com/vetlink-group/intel-cli/internal/model"
	"github.com/vetlink-group/intel-cli/internal/personalize"
)

const (
	defaultMinConfidence = 0.5
	defaultMaxResults    = 20
)

var ErrInvalidQuery = eris.New("orchestrator: invalid query")

// SnapshotSource supplies collected engine data. engine.Collector
// satisfies it.
type SnapshotSource interface {
	Collect(ctx context.Context, subjectID string, ids []model.EngineID) detector.Snapshots
}

// ProfileSource resolves a subject's personalization profile. A false
// return skips personalization for that subject.
type ProfileSource interface {
	ProfileFor(subjectID string) (personalize.Profile, *personalize.History, bool)
}

// Orchestrator coordinates one query end to end.
type Orchestrator struct {
	engines   SnapshotSource
	detectors *detector.Registry
	ledger    *audit.Ledger
	profiles  ProfileSource
	builder   *personalize.Builder
	cache     *responseCache
	nowFunc   func() time.Time
}

// Config carries the orchestrator's tunables.
type Config struct {
	CacheTTL time.Duration
}

// New creates an orchestrator. profiles may be nil to disable
// personalization.
func New(engines SnapshotSource, detectors *detector.Registry, ledger *audit.Ledger, profiles ProfileSource, cfg Config) *Orchestrator {
	return &Orchestrator{
		engines:   engines,
		detectors: detectors,
		ledger:    ledger,
		profiles:  profiles,
		builder:   personalize.NewBuilder(),
		cache:     newResponseCache(cfg.CacheTTL),
		nowFunc:   time.Now,
	}
}

// WithNow fixes the orchestrator clock for tests.
func (o *Orchestrator) WithNow(fn func() time.Time) *Orchestrator {
	o.nowFunc = fn
	return o
}

// Query answers one intelligence request. Engine failures degrade to
// omission; a query with no data still returns an empty response with
// confidence 0, never an error.
func (o *Orchestrator) Query(ctx context.Context, q model.QueryRequest) (model.QueryResponse, error) {
	if q.SubjectID == "" {
		return model.QueryResponse{}, eris.Wrap(ErrInvalidQuery, "orchestrator: subject id is required")
	}
	if q.MinConfidence <= 0 {
		q.MinConfidence = defaultMinConfidence
	}
	if q.MaxResults <= 0 {
		q.MaxResults = defaultMaxResults
	}

	started := o.nowFunc()
	key := cacheKey(q)

	if cached, ok := o.cache.get(key, started); ok {
		cached.Cached = true
		o.ledger.Append(ctx, model.AuditEntry{
			EventType: model.EventCacheServed,
			SubjectID: q.SubjectID,
			Action:    "served cached query response",
			Details:   map[string]any{"query_id": cached.QueryID},
			Result:    "success",
		})
		return cached, nil
	}

	snaps := o.engines.Collect(ctx, q.SubjectID, q.Engines)

	insights := o.generate(snaps, q)
	predictions := o.predict(q.SubjectID, snaps)
	insights = o.personalizeInsights(q.SubjectID, insights)

	threshold := q.MinConfidence * 100
	insights = filterInsights(insights, threshold, q.MaxResults)
	predictions = filterPredictions(predictions, threshold)

	resp := model.QueryResponse{
		QueryID:         uuid.New().String(),
		SubjectID:       q.SubjectID,
		Insights:        insights,
		Predictions:     predictions,
		Recommendations: collectActions(insights),
		Confidence:      aggregateConfidence(insights, predictions),
		Lineage:         lineageRefs(snaps),
		GeneratedAt:     started.UTC(),
	}
	resp.ExecutionMS = o.nowFunc().Sub(started).Milliseconds()

	o.cache.put(key, resp, started)
	o.logDecision(ctx, q, resp)
	return resp, nil
}

// generate runs every generator, isolating panics so one faulty detector
// cannot abort the query.
func (o *Orchestrator) generate(snaps detector.Snapshots, q model.QueryRequest) []model.Insight {
	var out []model.Insight
	for _, g := range o.detectors.Generators() {
		out = append(out, o.safeGenerate(g, snaps, q)...)
	}
	return out
}

func (o *Orchestrator) safeGenerate(g detector.Generator, snaps detector.Snapshots, q model.QueryRequest) (insights []model.Insight) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("orchestrator: generator panicked, skipping",
				zap.String("generator", g.Name()),
				zap.Any("panic", r),
			)
			insights = nil
		}
	}()
	return g.Generate(snaps, q)
}

func (o *Orchestrator) predict(subjectID string, snaps detector.Snapshots) []model.Prediction {
	var out []model.Prediction
	for _, p := range o.detectors.Predictors() {
		if pred, ok := o.safePredict(p, subjectID, snaps); ok {
			out = append(out, pred)
		}
	}
	return out
}

func (o *Orchestrator) safePredict(p detector.Predictor, subjectID string, snaps detector.Snapshots) (pred model.Prediction, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("orchestrator: predictor panicked, skipping",
				zap.String("predictor", p.Name()),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()
	return p.Predict(subjectID, snaps)
}

func (o *Orchestrator) personalizeInsights(subjectID string, insights []model.Insight) []model.Insight {
	if o.profiles == nil || len(insights) == 0 {
		return insights
	}
	profile, history, ok := o.profiles.ProfileFor(subjectID)
	if !ok {
		return insights
	}
	pctx := o.builder.BuildContext(subjectID, profile, history)
	return personalize.Adapt(insights, pctx)
}

// filterInsights keeps insights at or above the threshold, stably sorted
// by descending confidence (generation order breaks ties), truncated to
// maxResults.
func filterInsights(insights []model.Insight, threshold float64, maxResults int) []model.Insight {
	kept := make([]model.Insight, 0, len(insights))
	for _, in := range insights {
		if in.ConfidenceScore >= threshold {
			kept = append(kept, in)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].ConfidenceScore > kept[j].ConfidenceScore
	})
	if len(kept) > maxResults {
		kept = kept[:maxResults]
	}
	return kept
}

func filterPredictions(preds []model.Prediction, threshold float64) []model.Prediction {
	kept := make([]model.Prediction, 0, len(preds))
	for _, p := range preds {
		if p.ConfidenceScore >= threshold {
			kept = append(kept, p)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].ConfidenceScore > kept[j].ConfidenceScore
	})
	return kept
}

func collectActions(insights []model.Insight) []model.RecommendedAction {
	var out []model.RecommendedAction
	for _, in := range insights {
		out = append(out, in.Actions...)
	}
	return out
}

// aggregateConfidence is the mean over every kept score, 0 when nothing
// was synthesized.
func aggregateConfidence(insights []model.Insight, preds []model.Prediction) float64 {
	sum, n := 0.0, 0
	for _, in := range insights {
		sum += in.ConfidenceScore
		n++
	}
	for _, p := range preds {
		sum += p.ConfidenceScore
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func lineageRefs(snaps detector.Snapshots) []string {
	if len(snaps) == 0 {
		return nil
	}
	refs := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		refs = append(refs, snap.LineageRef())
	}
	sort.Strings(refs)
	return refs
}

func (o *Orchestrator) logDecision(ctx context.Context, q model.QueryRequest, resp model.QueryResponse) {
	reasoning := make([]string, 0, len(resp.Insights))
	outputIDs := make([]string, 0, len(resp.Insights)+len(resp.Predictions))
	for _, in := range resp.Insights {
		reasoning = append(reasoning, in.Rationale...)
		outputIDs = append(outputIDs, in.ID)
	}
	for _, p := range resp.Predictions {
		outputIDs = append(outputIDs, p.ID)
	}

	o.ledger.AppendDecision(ctx, model.DecisionLog{
		ID:        resp.QueryID,
		Timestamp: resp.GeneratedAt,
		SubjectID: q.SubjectID,
		Input: map[string]any{
			"question":       q.Question,
			"context":        q.Context,
			"min_confidence": q.MinConfidence,
		},
		Output: map[string]any{
			"insights":    len(resp.Insights),
			"predictions": len(resp.Predictions),
			"output_ids":  outputIDs,
		},
		Reasoning:       reasoning,
		SourceSnapshots: resp.Lineage,
		Confidence:      resp.Confidence,
	})
}

// OverrideRecommendation records a human override of a recommended
// action. It is advisory: only an audit entry is written, the action
// itself is never mutated.
func (o *Orchestrator) OverrideRecommendation(ctx context.Context, actorID, subjectID, actionID, reason string) (model.AuditEntry, error) {
	if actorID == "" || actionID == "" {
		return model.AuditEntry{}, eris.Wrap(ErrInvalidQuery, "orchestrator: actor id and action id are required")
	}
	entry := o.ledger.Append(ctx, model.AuditEntry{
		EventType: model.EventOverride,
		ActorID:   actorID,
		SubjectID: subjectID,
		Action:    "overrode recommendation " + actionID,
		Details:   map[string]any{"action_id": actionID, "reason": reason},
		Result:    "success",
	})
	return entry, nil
}
