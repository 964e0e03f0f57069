package main

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	modelsSinceHours  int
	modelsApprove     bool
	modelsRollbackWhy string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect and manage versioned prediction models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered models and their active versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		names := env.Models.Names()
		sort.Strings(names)

		out := make([]any, 0, len(names))
		for _, name := range names {
			v, err := env.Models.ActiveVersion(name)
			if err != nil {
				continue
			}
			out = append(out, v)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var modelsAnalyzeCmd = &cobra.Command{
	Use:   "analyze <name>",
	Short: "Measure a model against its validated outcomes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var since time.Time
		if modelsSinceHours > 0 {
			since = time.Now().UTC().Add(-time.Duration(modelsSinceHours) * time.Hour)
		}

		report, err := env.Models.AnalyzePerformance(args[0], since)
		if err != nil {
			return eris.Wrapf(err, "analyze %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

var modelsImproveCmd = &cobra.Command{
	Use:   "improve <name>",
	Short: "Synthesize an improved candidate version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Models.ImproveModel(ctx, args[0], !modelsApprove)
		if err != nil {
			return eris.Wrapf(err, "improve %s", args[0])
		}

		if result.RequiresApproval && modelsApprove {
			deployed, err := env.Models.ApproveCandidate(ctx, args[0], result.Candidate)
			if err != nil {
				return eris.Wrapf(err, "approve candidate for %s", args[0])
			}
			result.Candidate = deployed
			result.Deployed = true
			result.RequiresApproval = false
		}

		zap.L().Info("improvement complete",
			zap.String("model", result.ModelName),
			zap.String("version", result.Candidate.Version),
			zap.Bool("deployed", result.Deployed),
			zap.Float64("gain", result.Gain),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var modelsRollbackCmd = &cobra.Command{
	Use:   "rollback <name>",
	Short: "Restore a model's previous version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		restored, err := env.Models.RollbackModel(ctx, args[0], modelsRollbackWhy)
		if err != nil {
			return eris.Wrapf(err, "rollback %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(restored)
	},
}

func init() {
	modelsAnalyzeCmd.Flags().IntVar(&modelsSinceHours, "since-hours", 0, "limit analysis to recent outcomes (0 = all time)")
	modelsImproveCmd.Flags().BoolVar(&modelsApprove, "approve", false, "approve and deploy the candidate even when gates fail")
	modelsRollbackCmd.Flags().StringVar(&modelsRollbackWhy, "reason", "", "rollback reason (required)")
	_ = modelsRollbackCmd.MarkFlagRequired("reason")

	modelsCmd.AddCommand(modelsListCmd, modelsAnalyzeCmd, modelsImproveCmd, modelsRollbackCmd)
	rootCmd.AddCommand(modelsCmd)
}
