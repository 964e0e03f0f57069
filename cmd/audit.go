package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetlink-group/intel-cli/internal/audit"
	"github.com/vetlink-group/intel-cli/internal/model"
)

var (
	auditFormat    string
	auditOut       string
	auditEventType string
	auditSubject   string
	auditActor     string
	auditFrom      string
	auditTo        string
	auditDays      int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Export, report on, and purge the audit ledger",
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export filtered audit entries as JSON or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		filter, err := auditFilterFromFlags()
		if err != nil {
			return err
		}

		data, _, err := env.Ledger.ExportAuditLog(filter, auditFormat)
		if err != nil {
			return eris.Wrap(err, "export audit log")
		}

		if auditOut == "" {
			_, err := os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(auditOut, data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", auditOut)
		}
		zap.L().Info("audit export written",
			zap.String("path", auditOut),
			zap.String("format", auditFormat),
			zap.Int("bytes", len(data)),
		)
		return nil
	},
}

var auditComplianceCmd = &cobra.Command{
	Use:   "compliance",
	Short: "Generate a compliance summary for a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		filter, err := auditFilterFromFlags()
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(env.Ledger.ComplianceReport(filter.From, filter.To))
	},
}

var auditPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove audit entries older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		days := auditDays
		if days == 0 {
			days = cfg.Audit.RetentionDays
		}

		removed := env.Ledger.Purge(ctx, days)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]int{"removed": removed, "days_kept": days})
	},
}

func auditFilterFromFlags() (audit.Filter, error) {
	filter := audit.Filter{
		EventType: model.EventType(auditEventType),
		SubjectID: auditSubject,
		ActorID:   auditActor,
	}
	if auditFrom != "" {
		t, err := time.Parse(time.RFC3339, auditFrom)
		if err != nil {
			return audit.Filter{}, eris.Wrap(err, "parse --from")
		}
		filter.From = t
	}
	if auditTo != "" {
		t, err := time.Parse(time.RFC3339, auditTo)
		if err != nil {
			return audit.Filter{}, eris.Wrap(err, "parse --to")
		}
		filter.To = t
	}
	return filter, nil
}

func init() {
	auditExportCmd.Flags().StringVar(&auditFormat, "format", "json", "export format: json or xlsx")
	auditExportCmd.Flags().StringVar(&auditOut, "out", "", "output file (default stdout)")
	auditPurgeCmd.Flags().IntVar(&auditDays, "days", 0, "days of history to keep (default from config)")

	for _, c := range []*cobra.Command{auditExportCmd, auditComplianceCmd} {
		c.Flags().StringVar(&auditEventType, "event-type", "", "filter by event type")
		c.Flags().StringVar(&auditSubject, "subject", "", "filter by subject id")
		c.Flags().StringVar(&auditActor, "actor", "", "filter by actor id")
		c.Flags().StringVar(&auditFrom, "from", "", "range start, RFC3339")
		c.Flags().StringVar(&auditTo, "to", "", "range end, RFC3339")
	}

	auditCmd.AddCommand(auditExportCmd, auditComplianceCmd, auditPurgeCmd)
	rootCmd.AddCommand(auditCmd)
}
