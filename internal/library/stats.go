package library

import (
	"encoding/json"
	"fmt"
)

// Stats counts the entities of a library
type Stats struct {
	Sessions int `json:"sessions"`
	Drills   int `json:"drills"`
	Images   int `json:"images"`
}

// ComputeStats walks the library once and counts sessions, drills and image references
func ComputeStats(lib *Library) Stats {
	stats := Stats{Sessions: len(lib.Sessions)}
	for _, s := range lib.Sessions {
		stats.Drills += len(s.Drills)
		for _, d := range s.Drills {
			stats.Images += len(d.Images)
		}
	}
	return stats
}

// ImageCount returns the number of image references in a session
func (s *Session) ImageCount() int {
	n := 0
	for _, d := range s.Drills {
		n += len(d.Images)
	}
	return n
}

// SessionSummary is the one-line overview of a session
type SessionSummary struct {
	ID               int    `json:"id"`
	Title            string `json:"title"`
	DurationTotalMin int    `json:"duration_total_min"`
	Drills           int    `json:"drills"`
	Images           int    `json:"images"`
	SourceFile       string `json:"source_file"`
}

// Summaries lists every session of lib in library order
func Summaries(lib *Library) []SessionSummary {
	out := make([]SessionSummary, 0, len(lib.Sessions))
	for i := range lib.Sessions {
		s := &lib.Sessions[i]
		out = append(out, SessionSummary{
			ID:               s.ID,
			Title:            s.Title,
			DurationTotalMin: s.DurationTotalMin,
			Drills:           len(s.Drills),
			Images:           s.ImageCount(),
			SourceFile:       s.SourceFile,
		})
	}
	return out
}

// countingDoc matches the full, compact and remote variants alike
type countingDoc struct {
	Sessions []struct {
		Drills []struct {
			Images []json.RawMessage `json:"images"`
		} `json:"drills"`
	} `json:"sessions"`
}

// StatsFromJSON counts any library variant without validating it against the
// full library schema
func StatsFromJSON(data []byte) (Stats, error) {
	var doc countingDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Stats{}, fmt.Errorf("failed to decode library: %w", err)
	}
	stats := Stats{Sessions: len(doc.Sessions)}
	for _, s := range doc.Sessions {
		stats.Drills += len(s.Drills)
		for _, d := range s.Drills {
			stats.Images += len(d.Images)
		}
	}
	return stats, nil
}
