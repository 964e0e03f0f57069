package workflow

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// LoadTemplates reads workflow templates from a YAML file and registers
// each one. The file has a top-level "workflows" key.
func LoadTemplates(e *Engine, path string) ([]model.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "workflow: read templates %s", path)
	}
	return RegisterTemplates(e, data)
}

// RegisterTemplates parses YAML template bytes and registers every
// workflow they define. Registration stops at the first invalid template.
func RegisterTemplates(e *Engine, data []byte) ([]model.Workflow, error) {
	var wrapper struct {
		Workflows []model.Workflow `yaml:"workflows"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "workflow: parse templates")
	}

	registered := make([]model.Workflow, 0, len(wrapper.Workflows))
	for _, w := range wrapper.Workflows {
		saved, err := e.Register(w)
		if err != nil {
			return registered, eris.Wrapf(err, "workflow: template %q", w.Name)
		}
		registered = append(registered, saved)
	}
	return registered, nil
}

// DefaultTemplates are the built-in automations registered when no
// template file is configured.
func DefaultTemplates() []model.Workflow {
	return []model.Workflow{
		{
			Name:    "new-claim-intake",
			Trigger: model.Trigger{Type: "event", Config: map[string]any{"event": "claim_filed"}},
			Enabled: true,
			Steps: []model.WorkflowStep{
				{Action: "verify_identity", Automated: true},
				{Action: "request_service_records", Automated: true},
				{Action: "schedule_exam", Automated: false},
			},
		},
		{
			Name:    "evidence-reminder",
			Trigger: model.Trigger{Type: "schedule", Config: map[string]any{"cron": "0 9 * * 1"}},
			Enabled: true,
			Steps: []model.WorkflowStep{
				{Action: "find_missing_documents", Automated: true},
				{Action: "send_reminder", Automated: true},
			},
		},
		{
			Name:    "benefit-rate-adjustment",
			Trigger: model.Trigger{Type: "event", Config: map[string]any{"event": "rating_changed"}},
			Enabled: true,
			Steps: []model.WorkflowStep{
				{Action: "recompute_award", Automated: true},
				{Action: "approve_adjustment", Automated: true, RequiresApproval: true},
				{Action: "notify_subject", Automated: true},
			},
		},
	}
}
