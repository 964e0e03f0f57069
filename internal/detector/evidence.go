package detector

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// evidenceGapConfidence is fixed: a required document that is simply
// absent from the evidence list is a near-certain gap.
const evidenceGapConfidence = 90

// requiredClaimDocuments are the document types every disability claim
// needs on file.
var requiredClaimDocuments = []string{"dd214", "medical_records", "nexus_letter"}

// EvidenceGapGenerator flags required claim documents missing from the
// evidence engine snapshot.
type EvidenceGapGenerator struct{}

func NewEvidenceGapGenerator() *EvidenceGapGenerator {
	return &EvidenceGapGenerator{}
}

func (g *EvidenceGapGenerator) Name() string { return "evidence-gap" }

func (g *EvidenceGapGenerator) Generate(snaps Snapshots, query model.QueryRequest) []model.Insight {
	snap, ok := snaps[model.EngineEvidence]
	if !ok {
		return nil
	}

	docs, _ := snap.Strings("documents")
	present := make(map[string]bool, len(docs))
	for _, d := range docs {
		present[d] = true
	}

	var missing []string
	for _, required := range requiredClaimDocuments {
		if !present[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	rationale := make([]string, 0, len(missing))
	for _, doc := range missing {
		rationale = append(rationale, fmt.Sprintf("required document type %q is absent from the evidence record", doc))
	}

	actions := make([]model.RecommendedAction, 0, len(missing))
	for _, doc := range missing {
		actions = append(actions, model.RecommendedAction{
			ID:         uuid.New().String(),
			Title:      fmt.Sprintf("Obtain %s", doc),
			ActionType: "document",
			EstimatedImpact: model.EstimatedImpact{
				Type: "time", Value: 30, Unit: "days",
			},
			Steps:       []string{"Request the document from the issuing office", "Upload it to the claim file"},
			Overridable: true,
		})
	}

	priority := model.PriorityHigh
	if len(missing) == len(requiredClaimDocuments) {
		priority = model.PriorityCritical
	}

	return []model.Insight{{
		ID:              uuid.New().String(),
		Title:           "Claim evidence is incomplete",
		Description:     fmt.Sprintf("%d of %d required document types are missing from the claim file.", len(missing), len(requiredClaimDocuments)),
		Category:        model.CategoryEvidence,
		ConfidenceScore: evidenceGapConfidence,
		Rationale:       rationale,
		SourceSnapshots: snaps.Refs(model.EngineEvidence),
		Priority:        priority,
		CreatedAt:       time.Now().UTC(),
		Actions:         actions,
	}}
}
