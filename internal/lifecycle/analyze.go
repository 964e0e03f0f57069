package lifecycle

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// retrainMinSamples is the validated-sample floor before a retrain
// recommendation is ever made.
const retrainMinSamples = 100

// retrainAccuracyDrop is how far measured accuracy must fall below the
// active version's recorded accuracy to recommend retraining.
const retrainAccuracyDrop = 0.05

// PerformanceReport is the measured quality of a named model over its
// validated outcomes.
type PerformanceReport struct {
	ModelName     string                                `json:"model_name"`
	Version       string                                `json:"version"`
	SampleCount   int                                   `json:"sample_count"`
	Accuracy      float64                               `json:"accuracy"`
	Precision     float64                               `json:"precision"`
	Recall        float64                               `json:"recall"`
	F1            float64                               `json:"f1"`
	PartialRate   float64                               `json:"partial_rate"`
	ByBucket      map[model.ConfidenceBucket]float64    `json:"by_confidence_bucket"`
	ShouldRetrain bool                                  `json:"should_retrain"`
	AnalyzedAt    time.Time                             `json:"analyzed_at"`
}

// AnalyzePerformance measures a model against outcomes of its bound
// prediction kind recorded at or after since (zero = all time). The
// retrain flag requires at least 100 validated samples and a measured
// accuracy more than 5 points below the active version's recorded
// accuracy.
func (m *Manager) AnalyzePerformance(name string, since time.Time) (PerformanceReport, error) {
	active, err := m.ActiveVersion(name)
	if err != nil {
		return PerformanceReport{}, err
	}

	m.mu.RLock()
	kind, ok := m.kinds[name]
	m.mu.RUnlock()
	if !ok {
		return PerformanceReport{}, eris.Wrapf(ErrNotFound, "model %s has no bound prediction kind", name)
	}

	report := PerformanceReport{
		ModelName:  name,
		Version:    active.Version,
		ByBucket:   make(map[model.ConfidenceBucket]float64),
		AnalyzedAt: m.nowFunc().UTC(),
	}
	if m.outcomes == nil {
		return report, nil
	}

	var truePos, falsePos, falseNeg, correct, partial int
	bucketTotals := make(map[model.ConfidenceBucket]int)
	bucketCorrect := make(map[model.ConfidenceBucket]int)

	for _, rec := range m.outcomes.RecordsSince(since) {
		if rec.Kind != kind {
			continue
		}
		report.SampleCount++
		if rec.Correct {
			correct++
		}
		if rec.PartiallyCorrect {
			partial++
		}

		// Positive/negative framing: a truthy predicted value is a
		// positive call. Non-boolean predictions all count as positive,
		// collapsing precision and recall toward plain accuracy.
		positive := isPositive(rec.PredictedValue)
		switch {
		case positive && rec.Correct:
			truePos++
		case positive && !rec.Correct:
			falsePos++
		case !positive && !rec.Correct:
			falseNeg++
		}

		bucket := model.BucketFor(rec.Confidence)
		bucketTotals[bucket]++
		if rec.Correct {
			bucketCorrect[bucket]++
		}
	}

	if report.SampleCount == 0 {
		return report, nil
	}

	report.Accuracy = float64(correct) / float64(report.SampleCount)
	report.PartialRate = float64(partial) / float64(report.SampleCount)
	if truePos+falsePos > 0 {
		report.Precision = float64(truePos) / float64(truePos+falsePos)
	}
	if truePos+falseNeg > 0 {
		report.Recall = float64(truePos) / float64(truePos+falseNeg)
	}
	if report.Precision+report.Recall > 0 {
		report.F1 = 2 * report.Precision * report.Recall / (report.Precision + report.Recall)
	}
	for bucket, total := range bucketTotals {
		report.ByBucket[bucket] = float64(bucketCorrect[bucket]) / float64(total)
	}

	report.ShouldRetrain = report.SampleCount >= retrainMinSamples &&
		report.Accuracy < active.Performance.Accuracy-retrainAccuracyDrop

	return report, nil
}

func isPositive(v any) bool {
	switch p := v.(type) {
	case bool:
		return p
	default:
		return true
	}
}
