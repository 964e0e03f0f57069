package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetlink-group/intel-cli/internal/model"
)

var (
	outcomeKind       string
	outcomePredicted  string
	outcomeActual     string
	outcomeConfidence float64
	outcomeHelpful    bool
	outcomeComment    string
	outcomeSinceHours int
)

var outcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "Record and summarize prediction outcomes",
}

var outcomesRecordCmd = &cobra.Command{
	Use:   "record <prediction-id>",
	Short: "Record the actual result for a prediction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		predicted, err := parseValue(outcomePredicted)
		if err != nil {
			return eris.Wrap(err, "parse --predicted")
		}
		actual, err := parseValue(outcomeActual)
		if err != nil {
			return eris.Wrap(err, "parse --actual")
		}

		rec, err := env.Outcomes.RecordOutcome(ctx, args[0], model.PredictionKind(outcomeKind), predicted, actual, outcomeConfidence)
		if err != nil {
			return eris.Wrapf(err, "record outcome for %s", args[0])
		}

		zap.L().Info("outcome recorded",
			zap.String("prediction", rec.PredictionID),
			zap.Bool("correct", rec.Correct),
			zap.Bool("partial", rec.PartiallyCorrect),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

var outcomesFeedbackCmd = &cobra.Command{
	Use:   "feedback <prediction-id>",
	Short: "Attach human feedback to a recorded outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Outcomes.AddFeedback(args[0], outcomeHelpful, outcomeComment); err != nil {
			return eris.Wrapf(err, "feedback for %s", args[0])
		}

		rec, _ := env.Outcomes.Get(args[0])
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

var outcomesSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize recorded outcome accuracy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var since time.Time
		if outcomeSinceHours > 0 {
			since = time.Now().UTC().Add(-time.Duration(outcomeSinceHours) * time.Hour)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(env.Outcomes.Summarize(since))
	},
}

// parseValue reads a flag value as JSON so booleans and numbers keep
// their types, falling back to the raw string.
func parseValue(raw string) (any, error) {
	if raw == "" {
		return nil, eris.New("value is required")
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw, nil
	}
	return v, nil
}

func init() {
	outcomesRecordCmd.Flags().StringVar(&outcomeKind, "kind", "", "prediction kind (required)")
	outcomesRecordCmd.Flags().StringVar(&outcomePredicted, "predicted", "", "predicted value, JSON or plain string (required)")
	outcomesRecordCmd.Flags().StringVar(&outcomeActual, "actual", "", "actual value, JSON or plain string (required)")
	outcomesRecordCmd.Flags().Float64Var(&outcomeConfidence, "confidence", 0, "prediction confidence 0..100")
	_ = outcomesRecordCmd.MarkFlagRequired("kind")
	_ = outcomesRecordCmd.MarkFlagRequired("predicted")
	_ = outcomesRecordCmd.MarkFlagRequired("actual")

	outcomesFeedbackCmd.Flags().BoolVar(&outcomeHelpful, "helpful", false, "whether the prediction was helpful")
	outcomesFeedbackCmd.Flags().StringVar(&outcomeComment, "comment", "", "free-text comment")

	outcomesSummaryCmd.Flags().IntVar(&outcomeSinceHours, "since-hours", 0, "limit the summary to recent outcomes (0 = all time)")

	outcomesCmd.AddCommand(outcomesRecordCmd, outcomesFeedbackCmd, outcomesSummaryCmd)
	rootCmd.AddCommand(outcomesCmd)
}
