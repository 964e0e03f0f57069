package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetlink-group/intel-cli/internal/audit"
	"github.com/vetlink-group/intel-cli/internal/detector"
	"github.com/vetlink-group/intel-cli/internal/model"
	"github.com/vetlink-group/intel-cli/internal/personalize"
)

type staticVersions string

func (v staticVersions) ActiveVersionTag(string) string { return string(v) }

// snapSource serves a fixed snapshot set regardless of subject.
type snapSource struct {
	snaps detector.Snapshots
}

func (s *snapSource) Collect(_ context.Context, _ string, _ []model.EngineID) detector.Snapshots {
	return s.snaps
}

func benefitsSnaps() detector.Snapshots {
	return detector.Snapshots{
		model.EngineBenefits: {
			EngineID:      model.EngineBenefits,
			EngineVersion: "2.3.1",
			CapturedAt:    time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
			Payload: map[string]any{
				"disability_rating":   50.0,
				"enrolled_healthcare": false,
			},
		},
	}
}

func newTestOrchestrator(snaps detector.Snapshots) (*Orchestrator, *audit.Ledger) {
	ledger := audit.NewLedger(nil)
	o := New(
		&snapSource{snaps: snaps},
		detector.DefaultRegistry(staticVersions("1.0.0")),
		ledger,
		nil,
		Config{},
	)
	return o, ledger
}

func TestQuery_SynthesizesEligibilityInsight(t *testing.T) {
	o, ledger := newTestOrchestrator(benefitsSnaps())

	resp, err := o.Query(context.Background(), model.QueryRequest{
		SubjectID: "vet-1",
		Question:  "what benefits am I missing",
	})
	require.NoError(t, err)

	require.Len(t, resp.Insights, 1)
	assert.Equal(t, 85.0, resp.Insights[0].ConfidenceScore)
	assert.Equal(t, model.BucketHigh, resp.Insights[0].ConfidenceBucket())
	assert.NotEmpty(t, resp.Recommendations)
	assert.Equal(t, []string{"benefits:2.3.1@2026-03-01T12:30:00Z"}, resp.Lineage)
	assert.False(t, resp.Cached)

	// Exactly one decision log for the cache miss.
	assert.Equal(t, 1, ledger.DecisionCount())
}

func TestQuery_CacheHitServedVerbatim(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o, ledger := newTestOrchestrator(benefitsSnaps())
	o.WithNow(func() time.Time { return now })

	q := model.QueryRequest{SubjectID: "vet-1", Question: "benefits"}
	first, err := o.Query(context.Background(), q)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	second, err := o.Query(context.Background(), q)
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.QueryID, second.QueryID)
	assert.Equal(t, 1, ledger.DecisionCount(), "cache hit must not write a decision log")

	served := ledger.Query(audit.Filter{EventType: model.EventCacheServed}, 0)
	assert.Len(t, served, 1)
}

func TestQuery_CacheExpiresAfterTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o, ledger := newTestOrchestrator(benefitsSnaps())
	o.WithNow(func() time.Time { return now })

	q := model.QueryRequest{SubjectID: "vet-1", Question: "benefits"}
	_, err := o.Query(context.Background(), q)
	require.NoError(t, err)

	now = now.Add(6 * time.Minute)
	resp, err := o.Query(context.Background(), q)
	require.NoError(t, err)

	assert.False(t, resp.Cached)
	assert.Equal(t, 2, ledger.DecisionCount())
}

func TestQuery_DistinctContextsMissTheCache(t *testing.T) {
	o, ledger := newTestOrchestrator(benefitsSnaps())

	_, err := o.Query(context.Background(), model.QueryRequest{
		SubjectID: "vet-1", Question: "benefits", Context: map[string]any{"claim": "a"},
	})
	require.NoError(t, err)
	_, err = o.Query(context.Background(), model.QueryRequest{
		SubjectID: "vet-1", Question: "benefits", Context: map[string]any{"claim": "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, ledger.DecisionCount())
}

func TestQuery_NoEnginesYieldsEmptyResponse(t *testing.T) {
	o, ledger := newTestOrchestrator(detector.Snapshots{})

	resp, err := o.Query(context.Background(), model.QueryRequest{SubjectID: "vet-1"})
	require.NoError(t, err)

	assert.Empty(t, resp.Insights)
	assert.Empty(t, resp.Predictions)
	assert.Empty(t, resp.Recommendations)
	assert.Zero(t, resp.Confidence)
	assert.Empty(t, resp.Lineage)
	assert.Equal(t, 1, ledger.DecisionCount())
}

func TestQuery_MinConfidenceFilters(t *testing.T) {
	o, _ := newTestOrchestrator(benefitsSnaps())

	resp, err := o.Query(context.Background(), model.QueryRequest{
		SubjectID:     "vet-1",
		MinConfidence: 0.9,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Insights, "85-confidence insight is below the 90 threshold")
}

func TestQuery_MissingSubjectFails(t *testing.T) {
	o, _ := newTestOrchestrator(benefitsSnaps())
	_, err := o.Query(context.Background(), model.QueryRequest{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidQuery))
}

type fixedGenerator struct {
	name  string
	score float64
}

func (g fixedGenerator) Name() string { return g.name }

func (g fixedGenerator) Generate(_ detector.Snapshots, _ model.QueryRequest) []model.Insight {
	return []model.Insight{{
		ID:              g.name,
		Title:           g.name,
		ConfidenceScore: g.score,
		Priority:        model.PriorityMedium,
	}}
}

type panickyGenerator struct{}

func (panickyGenerator) Name() string { return "panicky" }

func (panickyGenerator) Generate(_ detector.Snapshots, _ model.QueryRequest) []model.Insight {
	panic("detector bug")
}

func TestQuery_SortStableWithRegistrationOrderTieBreak(t *testing.T) {
	reg := detector.NewRegistry()
	reg.RegisterGenerator(fixedGenerator{name: "first-80", score: 80})
	reg.RegisterGenerator(fixedGenerator{name: "second-80", score: 80})
	reg.RegisterGenerator(fixedGenerator{name: "third-95", score: 95})

	o := New(&snapSource{snaps: benefitsSnaps()}, reg, audit.NewLedger(nil), nil, Config{})
	resp, err := o.Query(context.Background(), model.QueryRequest{SubjectID: "vet-1", MaxResults: 2})
	require.NoError(t, err)

	require.Len(t, resp.Insights, 2)
	assert.Equal(t, "third-95", resp.Insights[0].ID)
	assert.Equal(t, "first-80", resp.Insights[1].ID)
}

func TestQuery_PanickingGeneratorIsIsolated(t *testing.T) {
	reg := detector.NewRegistry()
	reg.RegisterGenerator(panickyGenerator{})
	reg.RegisterGenerator(fixedGenerator{name: "survivor", score: 75})

	o := New(&snapSource{snaps: benefitsSnaps()}, reg, audit.NewLedger(nil), nil, Config{})
	resp, err := o.Query(context.Background(), model.QueryRequest{SubjectID: "vet-1"})
	require.NoError(t, err)

	require.Len(t, resp.Insights, 1)
	assert.Equal(t, "survivor", resp.Insights[0].ID)
}

type staticProfiles struct {
	profile personalize.Profile
	history *personalize.History
}

func (s *staticProfiles) ProfileFor(string) (personalize.Profile, *personalize.History, bool) {
	return s.profile, s.history, true
}

func TestQuery_PersonalizationApplies(t *testing.T) {
	ledger := audit.NewLedger(nil)
	o := New(
		&snapSource{snaps: benefitsSnaps()},
		detector.DefaultRegistry(staticVersions("1.0.0")),
		ledger,
		&staticProfiles{profile: personalize.Profile{EmploymentReadiness: "high"}},
		Config{},
	)

	resp, err := o.Query(context.Background(), model.QueryRequest{SubjectID: "vet-1"})
	require.NoError(t, err)
	require.Len(t, resp.Insights, 1)
	for _, a := range resp.Recommendations {
		assert.NotEqual(t, "application", a.ActionType)
	}
}

func TestOverrideRecommendation_AuditOnly(t *testing.T) {
	o, ledger := newTestOrchestrator(benefitsSnaps())

	entry, err := o.OverrideRecommendation(context.Background(), "counselor-9", "vet-1", "act-1", "duplicate filing")
	require.NoError(t, err)
	assert.Equal(t, model.EventOverride, entry.EventType)
	assert.Equal(t, "counselor-9", entry.ActorID)

	overrides := ledger.Query(audit.Filter{EventType: model.EventOverride}, 0)
	assert.Len(t, overrides, 1)

	_, err = o.OverrideRecommendation(context.Background(), "", "vet-1", "act-1", "")
	assert.True(t, eris.Is(err, ErrInvalidQuery))
}

func TestAggregateConfidence_MeanOfAllScores(t *testing.T) {
	insights := []model.Insight{{ConfidenceScore: 80}, {ConfidenceScore: 60}}
	preds := []model.Prediction{{ConfidenceScore: 70}}
	assert.InDelta(t, 70.0, aggregateConfidence(insights, preds), 1e-9)
	assert.Zero(t, aggregateConfidence(nil, nil))
}
