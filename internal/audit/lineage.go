package audit

import "fmt"

// LineageTrace is the reconstructed provenance of one output id: the
// de-duplicated source ids and transformation names encountered walking
// backward, plus the ordered step trail.
type LineageTrace struct {
	OutputID   string   `json:"output_id"`
	Sources    []string `json:"sources"`
	Transforms []string `json:"transforms"`
	Steps      []string `json:"steps"`
}

// TraceLineage walks the ledger backward from the entries whose lineage
// outputs contain the given id. Each visited entry contributes its source
// ids and transforms, then the walk continues into entries producing any
// of those sources. Visited-entry tracking guarantees termination when
// two entries reference each other's outputs as sources.
func (l *Ledger) TraceLineage(outputID string) LineageTrace {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trace := LineageTrace{OutputID: outputID}
	visited := make(map[string]bool)
	seenSources := make(map[string]bool)
	seenTransforms := make(map[string]bool)

	// Index entries by output id so each hop is a map lookup, not a scan.
	byOutput := make(map[string][]int)
	for i, e := range l.entries {
		for _, out := range e.Lineage.OutputIDs {
			byOutput[out] = append(byOutput[out], i)
		}
	}

	frontier := []string{outputID}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]

		for _, idx := range byOutput[id] {
			e := l.entries[idx]
			if visited[e.ID] {
				continue
			}
			visited[e.ID] = true

			trace.Steps = append(trace.Steps, fmt.Sprintf("%s:%s", e.ID, e.Action))
			for _, tr := range e.Lineage.Transforms {
				if !seenTransforms[tr] {
					seenTransforms[tr] = true
					trace.Transforms = append(trace.Transforms, tr)
				}
			}
			for _, src := range e.Lineage.SourceIDs {
				if !seenSources[src] {
					seenSources[src] = true
					trace.Sources = append(trace.Sources, src)
				}
				frontier = append(frontier, src)
			}
		}
	}

	return trace
}
