package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetlink-group/intel-cli/internal/audit"
	"github.com/vetlink-group/intel-cli/internal/lifecycle"
	"github.com/vetlink-group/intel-cli/internal/model"
	"github.com/vetlink-group/intel-cli/internal/monitoring"
	"github.com/vetlink-group/intel-cli/internal/orchestrator"
	"github.com/vetlink-group/intel-cli/internal/outcome"
	"github.com/vetlink-group/intel-cli/internal/workflow"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the intelligence HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// Background health checks against the live registries.
		checker := monitoring.NewChecker(
			monitoring.NewCollector(env.Ledger, env.Outcomes, env.Models),
			monitoring.NewAlerter(cfg.Monitoring),
			cfg.Monitoring,
		)
		go checker.Run(ctx)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(env *env) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", handleQuery(env))
		r.Post("/overrides", handleOverride(env))

		r.Route("/outcomes", func(r chi.Router) {
			r.Post("/", handleRecordOutcome(env))
			r.Get("/summary", handleOutcomeSummary(env))
			r.Post("/{predictionID}/feedback", handleFeedback(env))
		})

		r.Route("/models", func(r chi.Router) {
			r.Get("/", handleListModels(env))
			r.Get("/{name}", handleModelVersions(env))
			r.Get("/{name}/performance", handleModelPerformance(env))
			r.Post("/{name}/rollback", handleModelRollback(env))
		})

		r.Route("/workflows", func(r chi.Router) {
			r.Get("/", handleListWorkflows(env))
			r.Post("/{id}/run", handleRunWorkflow(env))
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/export", handleAuditExport(env))
			r.Get("/compliance", handleCompliance(env))
		})
	})

	return r
}

func handleQuery(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := env.Orchestrator.Query(r.Context(), req)
		if err != nil {
			if eris.Is(err, orchestrator.ErrInvalidQuery) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			zap.L().Error("query failed", zap.String("subject", req.SubjectID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleOverride(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ActorID   string `json:"actor_id"`
			SubjectID string `json:"subject_id"`
			ActionID  string `json:"action_id"`
			Reason    string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		entry, err := env.Orchestrator.OverrideRecommendation(r.Context(), req.ActorID, req.SubjectID, req.ActionID, req.Reason)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}

func handleRecordOutcome(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PredictionID string               `json:"prediction_id"`
			Kind         model.PredictionKind `json:"kind"`
			Predicted    any                  `json:"predicted"`
			Actual       any                  `json:"actual"`
			Confidence   float64              `json:"confidence"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.PredictionID == "" {
			writeError(w, http.StatusBadRequest, "prediction_id is required")
			return
		}

		rec, err := env.Outcomes.RecordOutcome(r.Context(), req.PredictionID, req.Kind, req.Predicted, req.Actual, req.Confidence)
		if err != nil {
			if eris.Is(err, outcome.ErrDuplicate) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func handleFeedback(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		predictionID := chi.URLParam(r, "predictionID")

		var req struct {
			Helpful bool   `json:"helpful"`
			Comment string `json:"comment"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := env.Outcomes.AddFeedback(predictionID, req.Helpful, req.Comment); err != nil {
			if eris.Is(err, outcome.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rec, _ := env.Outcomes.Get(predictionID)
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleOutcomeSummary(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var since time.Time
		if raw := r.URL.Query().Get("since"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "since must be RFC3339")
				return
			}
			since = parsed
		}
		writeJSON(w, http.StatusOK, env.Outcomes.Summarize(since))
	}
}

func handleListModels(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := env.Models.Names()
		out := make([]model.ModelVersion, 0, len(names))
		for _, name := range names {
			if v, err := env.Models.ActiveVersion(name); err == nil {
				out = append(out, v)
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleModelVersions(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versions, err := env.Models.Versions(chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, versions)
	}
}

func handleModelPerformance(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := env.Models.AnalyzePerformance(chi.URLParam(r, "name"), time.Time{})
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func handleModelRollback(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		restored, err := env.Models.RollbackModel(r.Context(), chi.URLParam(r, "name"), req.Reason)
		if err != nil {
			if eris.Is(err, lifecycle.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			if eris.Is(err, lifecycle.ErrRollback) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, restored)
	}
}

func handleListWorkflows(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, env.Workflows.List())
	}
}

func handleRunWorkflow(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var runContext map[string]any
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&runContext); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		run, err := env.Workflows.Execute(r.Context(), chi.URLParam(r, "id"), runContext)
		if err != nil {
			if eris.Is(err, workflow.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			if eris.Is(err, workflow.ErrDisabled) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func handleAuditExport(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := filterFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		data, contentType, err := env.Ledger.ExportAuditLog(filter, r.URL.Query().Get("format"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func handleCompliance(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := filterFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, env.Ledger.ComplianceReport(filter.From, filter.To))
	}
}

func filterFromQuery(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	filter := audit.Filter{
		EventType: model.EventType(q.Get("event_type")),
		SubjectID: q.Get("subject_id"),
		ActorID:   q.Get("actor_id"),
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filter{}, eris.New("from must be RFC3339")
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filter{}, eris.New("to must be RFC3339")
		}
		filter.To = t
	}
	return filter, nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
