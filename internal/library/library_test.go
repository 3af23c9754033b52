package library

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession(id int, title string) Session {
	d1 := NewDrill(id, "1", "Einlaufen", PhaseWarmUp, 1)
	d1.DurationMin, d1.CumulativeMin = 15, 15
	d1.Images = []Image{{Path: RelativeImagePath(id, "TE_001_page_1.png"), Page: 1, Order: 1, Type: ImageTypeFullPage}}
	d2 := NewDrill(id, "2", "Abschlussspiel", PhaseGame, 2)
	d2.DurationMin, d2.CumulativeMin = 10, 25
	return Session{
		SourceFile:       "te.pdf",
		ID:               id,
		Title:            title,
		DurationTotalMin: 90,
		Equipment:        []string{"Bälle"},
		Drills:           []Drill{d1, d2},
		Tags:             SessionTags{Formation: Unknown, FocusArea: Unknown},
	}
}

func sessionIDs(lib *Library) []int {
	ids := make([]int, 0, len(lib.Sessions))
	for _, s := range lib.Sessions {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name        string
		existing    []int
		incoming    []int
		wantIDs     []int
		wantAdded   []int
		wantSkipped []int
	}{
		{
			name:      "new id is inserted in order",
			existing:  []int{3, 10},
			incoming:  []int{7},
			wantIDs:   []int{3, 7, 10},
			wantAdded: []int{7},
		},
		{
			name:        "existing id leaves library unchanged",
			existing:    []int{3, 10},
			incoming:    []int{10},
			wantIDs:     []int{3, 10},
			wantSkipped: []int{10},
		},
		{
			name:        "duplicates inside one batch keep the first",
			existing:    nil,
			incoming:    []int{5, 2, 5},
			wantIDs:     []int{2, 5},
			wantAdded:   []int{5, 2},
			wantSkipped: []int{5},
		},
		{
			name:     "empty batch",
			existing: []int{1},
			wantIDs:  []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := &Library{}
			for _, id := range tt.existing {
				lib.Sessions = append(lib.Sessions, sampleSession(id, "existing"))
			}
			var incoming []Session
			for _, id := range tt.incoming {
				incoming = append(incoming, sampleSession(id, "new"))
			}

			result := Merge(lib, incoming, zerolog.Nop())

			assert.Equal(t, tt.wantIDs, sessionIDs(lib))
			assert.Equal(t, tt.wantAdded, result.Added)
			assert.Equal(t, tt.wantSkipped, result.Skipped)
			assert.True(t, sort.IntsAreSorted(sessionIDs(lib)))
		})
	}
}

func TestMerge_DoesNotOverwrite(t *testing.T) {
	lib := &Library{Sessions: []Session{sampleSession(184, "original")}}

	Merge(lib, []Session{sampleSession(184, "replacement")}, zerolog.Nop())

	require.Len(t, lib.Sessions, 1)
	assert.Equal(t, "original", lib.Sessions[0].Title)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "library.json")
	lib := &Library{LibraryVersion: "v14", Sessions: []Session{sampleSession(78, "Tempogegenstoß")}}

	require.NoError(t, Save(path, lib))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title": "Tempogegenstoß"`)
	assert.NotContains(t, string(data), "null")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, lib, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "missing sessions", content: `{"library_version": "v1"}`, wantErr: "schema"},
		{name: "id not integer", content: `{"sessions": [{"id": "x", "title": "t", "drills": []}]}`, wantErr: "schema"},
		{name: "not json", content: `{`, wantErr: "unmarshal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := Load(filepath.Join(dir, "absent.json"))
	assert.ErrorContains(t, err, "does not exist")
}

func TestDecode_FillsMissingOptionalFields(t *testing.T) {
	lib, err := Decode([]byte(`{"sessions": [{"id": 1, "title": "t", "drills": [{"drill_id": "1-1", "title": "x"}]}]}`))
	require.NoError(t, err)

	d := lib.Sessions[0].Drills[0]
	assert.NotNil(t, d.Images)
	assert.NotNil(t, d.TextBullets.Setup)
	assert.NotNil(t, lib.Sessions[0].Equipment)
}

func TestCompact(t *testing.T) {
	lib := &Library{Sessions: []Session{sampleSession(5, "Kompakt")}}
	lib.Sessions[0].Drills[0].Text = DrillText{Preface: "drop", Setup: "s", Execution: "e", CoachingPoints: "c", Variations: "v", Goal: "drop"}

	c := Compact(lib)

	assert.Equal(t, DefaultCompactVersion, c.LibraryVersion)
	assert.Equal(t, SourceOptimized, c.Source)
	require.Len(t, c.Sessions, 1)
	assert.Equal(t, CompactText{Setup: "s", Execution: "e", CoachingPoints: "c", Variations: "v"}, c.Sessions[0].Drills[0].Text)

	data, err := EncodeCompact(c)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\n")
	assert.NotContains(t, string(data), "preface")
	assert.NotContains(t, string(data), "cumulative_min")
}

func TestRemote(t *testing.T) {
	lib := &Library{Sessions: []Session{sampleSession(78, "Remote")}}
	lib.Sessions[0].Drills[0].Images = append(lib.Sessions[0].Drills[0].Images,
		Image{Path: "drill_images/TE_078/78-1_img1.jpeg", Page: 1, Order: 1})
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	r := Remote(lib, "v15", "https://example.org/app/", now)

	assert.Equal(t, SourceRemoteImages, r.Source)
	assert.Equal(t, "2026-01-02T03:04:05Z", r.CreatedAt)
	images := r.Sessions[0].Drills[0].Images
	require.Len(t, images, 2)
	assert.Equal(t, "https://example.org/app/drill_images/TE_078/TE_001_page_1.png", images[0].URL)
	assert.Equal(t, ImageTypeFullPage, images[1].Type, "missing type defaults to full_page")
	assert.Equal(t, Stats{Sessions: 1, Drills: 2, Images: 2}, r.Stats())
}

func TestComputeStats(t *testing.T) {
	lib := &Library{Sessions: []Session{sampleSession(1, "a"), sampleSession(2, "b")}}
	assert.Equal(t, Stats{Sessions: 2, Drills: 4, Images: 2}, ComputeStats(lib))
	assert.Equal(t, 1, lib.Sessions[0].ImageCount())
}

func TestStatsFromJSON_AllVariants(t *testing.T) {
	lib := &Library{Sessions: []Session{sampleSession(1, "a"), sampleSession(2, "b")}}
	want := ComputeStats(lib)

	full, err := EncodeIndent(lib)
	require.NoError(t, err)
	compact, err := EncodeCompact(Compact(lib))
	require.NoError(t, err)
	remote, err := EncodeCompact(Remote(lib, "v15", "https://example.org/", time.Now()))
	require.NoError(t, err)

	for name, data := range map[string][]byte{"full": full, "compact": compact, "remote": remote} {
		got, err := StatsFromJSON(data)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err = StatsFromJSON([]byte("{"))
	assert.ErrorContains(t, err, "failed to decode library")
}

func TestSummaries(t *testing.T) {
	lib := &Library{Sessions: []Session{sampleSession(7, "Tempo"), sampleSession(3, "Abwehr")}}

	assert.Equal(t, []SessionSummary{
		{ID: 7, Title: "Tempo", DurationTotalMin: 90, Drills: 2, Images: 1, SourceFile: "te.pdf"},
		{ID: 3, Title: "Abwehr", DurationTotalMin: 90, Drills: 2, Images: 1, SourceFile: "te.pdf"},
	}, Summaries(lib))
	assert.NotNil(t, Summaries(&Library{}))
}

func TestNewDrill_Defaults(t *testing.T) {
	d := NewDrill(184, "3", "Torhüter einwerfen", PhaseGoalkeeper, 4)

	assert.Equal(t, "184-3", d.DrillID)
	assert.Equal(t, Unknown, d.Tags.Formation)
	assert.Equal(t, Unknown, d.Tags.DrillLevel)
	assert.True(t, d.Tags.RequiresGoalkeeper)
	assert.Empty(t, d.Images)
	assert.NotNil(t, d.Images)
	assert.Equal(t, "drill_images/TE_184/x.png", RelativeImagePath(184, "x.png"))
}

const legacyLibrary = `{
  "library_version": "v13",
  "maintainer": "Trainerteam",
  "sessions": [
    {
      "id": 12,
      "title": "Kreuzen",
      "notes": "keep me",
      "tags": {"formation": "3:3", "difficulty": "hard", "concept_tags": ["kreuzen"]},
      "drills": [
        {
          "drill_id": "12-1",
          "title": "Kreuzen im Rückraum",
          "duration_min": 15,
          "rating": 4.5,
          "tags": {"formation": "3:3", "age_group": "C-Jugend"}
        }
      ]
    }
  ]
}`

func TestLoadMergeSave_KeepsUnknownMembers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyLibrary), 0o644))

	lib, err := Load(path)
	require.NoError(t, err)
	Merge(lib, []Session{sampleSession(40, "neu")}, zerolog.Nop())
	require.NoError(t, Save(path, lib))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	for _, want := range []string{
		`"maintainer": "Trainerteam"`,
		`"notes": "keep me"`,
		`"difficulty": "hard"`,
		`"age_group": "C-Jugend"`,
		`"rating": 4.5`,
	} {
		assert.Contains(t, out, want)
	}

	var doc struct {
		Sessions []map[string]json.RawMessage `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Sessions, 2)

	var tags map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc.Sessions[0]["tags"], &tags))
	assert.NotContains(t, tags, "focus_area", "members missing on input stay missing")
	assert.NotContains(t, tags, "equipment_tags")

	var drills []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc.Sessions[0]["drills"], &drills))
	assert.NotContains(t, drills[0], "source_page_start")
	var drillTags map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(drills[0]["tags"], &drillTags))
	assert.NotContains(t, drillTags, "drill_level")

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, lib, again)
}

func TestDecode_MissingSourcePageStart(t *testing.T) {
	lib, err := Decode([]byte(legacyLibrary))
	require.NoError(t, err)

	assert.Equal(t, DefaultSourcePage, lib.Sessions[0].Drills[0].SourcePageStart)
}

func TestVariants_KeepTagMembers(t *testing.T) {
	lib, err := Decode([]byte(legacyLibrary))
	require.NoError(t, err)

	compact, err := EncodeCompact(Compact(lib))
	require.NoError(t, err)
	remote, err := EncodeCompact(Remote(lib, "v15", "https://example.org/", time.Now()))
	require.NoError(t, err)

	for name, data := range map[string][]byte{"compact": compact, "remote": remote} {
		assert.Contains(t, string(data), `"difficulty":"hard"`, name)
		assert.Contains(t, string(data), `"age_group":"C-Jugend"`, name)
	}

	var c CompactLibrary
	require.NoError(t, json.Unmarshal(compact, &c))
	level, ok := c.Sessions[0].Drills[0].Tags.Extra("age_group")
	require.True(t, ok)
	assert.JSONEq(t, `"C-Jugend"`, string(level))
}
