package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workflowContext string

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List and run automation workflows",
}

var workflowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered workflows",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(env.Workflows.List())
	},
}

var workflowsRunCmd = &cobra.Command{
	Use:   "run <workflow-id-or-name>",
	Short: "Execute a workflow once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var runContext map[string]any
		if workflowContext != "" {
			if err := json.Unmarshal([]byte(workflowContext), &runContext); err != nil {
				return eris.Wrap(err, "parse --context")
			}
		}

		// Accept either the workflow id or its name.
		id := args[0]
		for _, w := range env.Workflows.List() {
			if w.Name == args[0] {
				id = w.ID
				break
			}
		}

		run, err := env.Workflows.Execute(ctx, id, runContext)
		if err != nil {
			return eris.Wrapf(err, "run workflow %s", args[0])
		}

		zap.L().Info("workflow run complete",
			zap.String("workflow", run.WorkflowID),
			zap.Bool("success", run.Success),
			zap.Int("steps", len(run.Results)),
			zap.Int("errors", len(run.Errors)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func init() {
	workflowsRunCmd.Flags().StringVar(&workflowContext, "context", "", "run context as a JSON object")

	workflowsCmd.AddCommand(workflowsListCmd, workflowsRunCmd)
	rootCmd.AddCommand(workflowsCmd)
}
