package model

import (
	"fmt"
	"time"
)

// EngineID identifies a domain data engine.
type EngineID string

const (
	EngineBenefits   EngineID = "benefits"
	EngineEvidence   EngineID = "evidence"
	EngineEmployment EngineID = "employment"
	EngineTransition EngineID = "transition"
	EngineRetirement EngineID = "retirement"
	EngineResources  EngineID = "resources"
)

// EngineSnapshot is a versioned payload pulled from one domain engine.
// Snapshots are created per query and never mutated or persisted beyond
// the owning response.
type EngineSnapshot struct {
	EngineID      EngineID       `json:"engine_id"`
	EngineVersion string         `json:"engine_version"`
	CapturedAt    time.Time      `json:"captured_at"`
	Payload       map[string]any `json:"payload"`
}

// LineageRef renders the snapshot's provenance string used in decision
// lineage: engineId:version@timestamp.
func (s EngineSnapshot) LineageRef() string {
	return fmt.Sprintf("%s:%s@%s", s.EngineID, s.EngineVersion, s.CapturedAt.UTC().Format(time.RFC3339))
}

// Float reads a numeric payload field, tolerating JSON round-trips where
// numbers decode as float64 or int.
func (s EngineSnapshot) Float(key string) (float64, bool) {
	v, ok := s.Payload[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// String reads a string payload field.
func (s EngineSnapshot) String(key string) (string, bool) {
	v, ok := s.Payload[key].(string)
	return v, ok
}

// Bool reads a boolean payload field.
func (s EngineSnapshot) Bool(key string) (bool, bool) {
	v, ok := s.Payload[key].(bool)
	return v, ok
}

// Strings reads a string-slice payload field, accepting both []string and
// the []any form produced by JSON decoding.
func (s EngineSnapshot) Strings(key string) ([]string, bool) {
	switch v := s.Payload[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}
