package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vetlink-group/intel-cli/internal/audit"
	"github.com/vetlink-group/intel-cli/internal/detector"
	"github.com/vetlink-group/intel-cli/internal/engine"
	"github.com/vetlink-group/intel-cli/internal/lifecycle"
	"github.com/vetlink-group/intel-cli/internal/model"
	"github.com/vetlink-group/intel-cli/internal/orchestrator"
	"github.com/vetlink-group/intel-cli/internal/outcome"
	"github.com/vetlink-group/intel-cli/internal/personalize"
	"github.com/vetlink-group/intel-cli/internal/store"
	"github.com/vetlink-group/intel-cli/internal/workflow"
)

// env bundles the wired platform registries for one command invocation.
type env struct {
	Store        store.Store
	Ledger       *audit.Ledger
	Outcomes     *outcome.Tracker
	Models       *lifecycle.Manager
	Detectors    *detector.Registry
	Engines      *engine.Registry
	Orchestrator *orchestrator.Orchestrator
	Workflows    *workflow.Engine
}

func (e *env) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// initStore opens the configured durable mirror backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv wires the full platform: durable mirror, ledger, outcome
// tracker, model registry, detectors, engine gateway, orchestrator, and
// workflow engine.
func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	ledger := audit.NewLedger(st)
	outcomes := outcome.NewTracker(st)
	models := lifecycle.NewManager(outcomes, ledger, st)
	models.Register(ctx, "eligibility-predictor", model.PredictionClaimApproval, model.Performance{Accuracy: 0.78, Precision: 0.80, Recall: 0.74, F1: 0.77})
	models.Register(ctx, "timeline-predictor", model.PredictionTimeToDecision, model.Performance{Accuracy: 0.71, Precision: 0.70, Recall: 0.69, F1: 0.69})

	detectors := detector.DefaultRegistry(models)

	engines := engine.NewRegistry()
	for _, e := range demoEngines() {
		engines.Register(e)
	}
	collector := engine.NewCollector(engines, engine.CollectorConfig{
		FetchTimeout:     cfg.Engines.FetchTimeout(),
		RatePerSecond:    cfg.Engines.RatePerSecond,
		BreakerThreshold: cfg.Engines.BreakerThreshold,
		BreakerReset:     cfg.Engines.BreakerReset(),
	})

	profiles, err := loadProfiles(cfg.Profiles.Path)
	if err != nil {
		st.Close()
		return nil, err
	}

	orch := orchestrator.New(collector, detectors, ledger, profiles, orchestrator.Config{
		CacheTTL: cfg.Query.CacheTTL(),
	})

	workflows := workflow.NewEngine(nil, ledger)
	if cfg.Workflow.TemplatesPath != "" {
		if _, err := workflow.LoadTemplates(workflows, cfg.Workflow.TemplatesPath); err != nil {
			st.Close()
			return nil, eris.Wrap(err, "load workflow templates")
		}
	} else {
		for _, w := range workflow.DefaultTemplates() {
			if _, err := workflows.Register(w); err != nil {
				st.Close()
				return nil, eris.Wrap(err, "register default workflow")
			}
		}
	}
	for _, w := range workflows.List() {
		if err := st.SaveWorkflow(ctx, w); err != nil {
			zap.L().Warn("mirror workflow", zap.String("workflow", w.Name), zap.Error(err))
		}
	}

	return &env{
		Store:        st,
		Ledger:       ledger,
		Outcomes:     outcomes,
		Models:       models,
		Detectors:    detectors,
		Engines:      engines,
		Orchestrator: orch,
		Workflows:    workflows,
	}, nil
}

// demoEngines are fixture-backed engines serving representative payloads
// until real engine integrations are configured.
func demoEngines() []engine.Engine {
	return []engine.Engine{
		engine.NewStaticEngine(model.EngineBenefits, "2.3.1", map[string]any{
			"disability_rating":   50.0,
			"enrolled_healthcare": false,
			"dependents":          2.0,
			"dependents_on_award": false,
		}),
		engine.NewStaticEngine(model.EngineEvidence, "1.8.0", map[string]any{
			"documents":             []any{"dd214", "medical_records"},
			"regional_backlog_days": 35.0,
		}),
		engine.NewStaticEngine(model.EngineEmployment, "3.1.0", map[string]any{
			"resume_complete": false,
			"certifications":  1.0,
		}),
		engine.NewStaticEngine(model.EngineTransition, "1.2.0", map[string]any{
			"months_to_separation": 4.0,
			"tap_complete":         false,
		}),
		engine.NewStaticEngine(model.EngineRetirement, "2.0.0", map[string]any{
			"years_of_service":        12.0,
			"retirement_plan_on_file": false,
		}),
		engine.NewStaticEngine(model.EngineResources, "1.5.0", map[string]any{
			"unused_programs": []any{"vr&e", "home_loan"},
		}),
	}
}

// profileFile is the on-disk personalization profile set.
type profileFile struct {
	Subjects map[string]struct {
		Profile personalize.Profile  `yaml:"profile"`
		History *personalize.History `yaml:"history"`
	} `yaml:"subjects"`
}

// fileProfiles serves personalization profiles loaded from a YAML file.
type fileProfiles struct {
	subjects profileFile
}

func (p *fileProfiles) ProfileFor(subjectID string) (personalize.Profile, *personalize.History, bool) {
	s, ok := p.subjects.Subjects[subjectID]
	if !ok {
		return personalize.Profile{}, nil, false
	}
	return s.Profile, s.History, true
}

// loadProfiles reads the profile file; an empty path disables
// personalization.
func loadProfiles(path string) (orchestrator.ProfileSource, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read profiles %s", path)
	}
	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrap(err, "parse profiles")
	}
	return &fileProfiles{subjects: pf}, nil
}
