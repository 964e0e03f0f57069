package outcome

import (
	"reflect"
	"strings"
)

// numericTolerance is the relative error allowed for a numeric prediction
// to count as correct.
const numericTolerance = 0.10

// Evaluate applies the type-dispatched correctness rule:
//   - booleans: exact equality
//   - numbers: |predicted-actual| <= 0.10*|predicted|
//   - strings: case-insensitive equality
//   - objects with an "eligible" field on both sides: compare that field only
//   - other objects: deep structural equality
//
// Partial correctness applies to objects only: true iff the fraction of
// matching top-level keys is strictly between 0 and 1. The rule is
// deterministic — identical inputs always yield identical results.
func Evaluate(predicted, actual any) (correct, partiallyCorrect bool) {
	if pb, ok := predicted.(bool); ok {
		ab, ok := actual.(bool)
		return ok && pb == ab, false
	}

	if pf, ok := toFloat(predicted); ok {
		af, ok := toFloat(actual)
		if !ok {
			return false, false
		}
		diff := pf - af
		if diff < 0 {
			diff = -diff
		}
		bound := pf * numericTolerance
		if bound < 0 {
			bound = -bound
		}
		return diff <= bound, false
	}

	if ps, ok := predicted.(string); ok {
		as, ok := actual.(string)
		return ok && strings.EqualFold(ps, as), false
	}

	pm, pok := toObject(predicted)
	am, aok := toObject(actual)
	if pok && aok {
		return evaluateObjects(pm, am)
	}

	return reflect.DeepEqual(predicted, actual), false
}

func evaluateObjects(predicted, actual map[string]any) (correct, partiallyCorrect bool) {
	pe, pHas := predicted["eligible"]
	ae, aHas := actual["eligible"]
	if pHas && aHas {
		c, _ := Evaluate(pe, ae)
		return c, false
	}

	if len(predicted) == 0 {
		return len(actual) == 0, false
	}

	matched := 0
	for k, pv := range predicted {
		av, ok := actual[k]
		if !ok {
			continue
		}
		if c, _ := Evaluate(pv, av); c {
			matched++
		}
	}

	fraction := float64(matched) / float64(len(predicted))
	correct = fraction == 1 && len(predicted) == len(actual)
	partiallyCorrect = fraction > 0 && fraction < 1
	return correct, partiallyCorrect
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}
