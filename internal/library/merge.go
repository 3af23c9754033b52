package library

import (
	"sort"

	"github.com/rs/zerolog"
)

// MergeResult reports what a merge did
type MergeResult struct {
	Added   []int
	Skipped []int
}

// Merge appends sessions whose id is not yet in the library and re-sorts the
// library by id. Existing sessions are never overwritten.
func Merge(lib *Library, sessions []Session, logger zerolog.Logger) MergeResult {
	var result MergeResult

	existing := make(map[int]bool, len(lib.Sessions))
	for _, s := range lib.Sessions {
		existing[s.ID] = true
	}

	for _, s := range sessions {
		if existing[s.ID] {
			logger.Info().Int("session_id", s.ID).Str("source_file", s.SourceFile).
				Msg("session already in library, skipping")
			result.Skipped = append(result.Skipped, s.ID)
			continue
		}
		s.normalize()
		lib.Sessions = append(lib.Sessions, s)
		existing[s.ID] = true
		result.Added = append(result.Added, s.ID)
	}

	SortSessions(lib)
	return result
}

// SortSessions orders the library ascending by session id
func SortSessions(lib *Library) {
	sort.SliceStable(lib.Sessions, func(i, j int) bool {
		return lib.Sessions[i].ID < lib.Sessions[j].ID
	})
}

// HasSession reports whether the library already holds the given id
func (l *Library) HasSession(id int) bool {
	_, ok := l.FindSession(id)
	return ok
}
