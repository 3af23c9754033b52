package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/a3tai/hblib/internal/library"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func TestApply_Changelog(t *testing.T) {
	m := New("handball-training-library", "1.0.0")

	m.Apply(Release{Version: "v14", URL: "https://example.org/v14.json", Now: now})
	m.Apply(Release{Version: "v15", URL: "https://example.org/v15.json", Message: "Neue Einheiten", Now: now})
	m.Apply(Release{Version: "v15", URL: "https://example.org/v15.json", Message: "Neue Einheiten", Now: now})

	assert.Equal(t, []string{
		"v15: Neue Einheiten",
		"v14: " + DefaultChangelogMessage,
	}, m.Changelog, "newest first, exact duplicates suppressed")
	assert.Equal(t, "v15", m.Version)
	assert.Equal(t, Package{URL: "https://example.org/v15.json", Type: "json"}, m.Package)
	assert.Equal(t, "2026-05-04T10:30:00Z", m.CreatedAt)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "manifest.json"), "lib", "2.0.0")
	require.NoError(t, err)

	assert.Equal(t, "lib", m.LibraryID)
	assert.Equal(t, "2.0.0", m.MinAppVersion)
	assert.Empty(t, m.Changelog)
}

func TestSaveLoad_PreservesUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "library_id": "custom-id",
  "min_app_version": "1.2.0",
  "changelog": ["v1: Start"],
  "homepage": "https://example.org"
}`), 0o644))

	m, err := Load(path, "ignored", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "custom-id", m.LibraryID)

	m.Apply(Release{Version: "v2", URL: "u", Stats: library.Stats{Sessions: 59, Drills: 376, Images: 376}, Now: now})
	require.NoError(t, Save(path, m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"homepage": "https://example.org"`)
	assert.Contains(t, string(data), `"drills": 376`)
	assert.Contains(t, string(data), "Geräte", "no unicode escaping")

	again, err := Load(path, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"v2: " + DefaultChangelogMessage, "v1: Start"}, again.Changelog)
	assert.Equal(t, m.Stats, again.Stats)
	assert.Equal(t, "custom-id", again.LibraryID)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := Load(path, "", "")
	assert.ErrorContains(t, err, "failed to decode manifest")
}

func TestMarshal_NoNullChangelog(t *testing.T) {
	data, err := library.EncodeCompact(&Manifest{LibraryID: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"changelog":[]`)
}
