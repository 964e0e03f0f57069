package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetlink-group/intel-cli/internal/model"
)

var (
	querySubject       string
	queryQuestion      string
	queryContext       string
	queryEngines       []string
	queryMinConfidence float64
	queryMaxResults    int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run one intelligence query for a subject",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.QueryRequest{
			SubjectID:     querySubject,
			Question:      queryQuestion,
			MinConfidence: queryMinConfidence,
			MaxResults:    queryMaxResults,
		}
		if queryContext != "" {
			if err := json.Unmarshal([]byte(queryContext), &req.Context); err != nil {
				return eris.Wrap(err, "parse --context")
			}
		}
		for _, id := range queryEngines {
			req.Engines = append(req.Engines, model.EngineID(id))
		}

		resp, err := env.Orchestrator.Query(ctx, req)
		if err != nil {
			return eris.Wrap(err, "query")
		}

		zap.L().Info("query complete",
			zap.String("subject", resp.SubjectID),
			zap.Int("insights", len(resp.Insights)),
			zap.Int("predictions", len(resp.Predictions)),
			zap.Float64("confidence", resp.Confidence),
			zap.Bool("cached", resp.Cached),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	queryCmd.Flags().StringVar(&querySubject, "subject", "", "subject id (required)")
	queryCmd.Flags().StringVar(&queryQuestion, "question", "", "free-text question")
	queryCmd.Flags().StringVar(&queryContext, "context", "", "query context as a JSON object")
	queryCmd.Flags().StringSliceVar(&queryEngines, "engines", nil, "engine ids to consult (default all)")
	queryCmd.Flags().Float64Var(&queryMinConfidence, "min-confidence", 0, "minimum confidence 0..1 (default 0.5)")
	queryCmd.Flags().IntVar(&queryMaxResults, "max-results", 0, "maximum insights returned (default 20)")
	_ = queryCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(queryCmd)
}
