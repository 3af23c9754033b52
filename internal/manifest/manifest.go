// Package manifest maintains the release manifest the app polls for new
// library versions.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/a3tai/hblib/internal/library"
)

// PackageTypeJSON marks a library published as a plain JSON document
const PackageTypeJSON = "json"

// DefaultChangelogMessage is used when an update carries no message
const DefaultChangelogMessage = "Optimiert für mobile Geräte mit Remote Images"

// Manifest is the release manifest document. Keys it does not know are kept
// as they are.
type Manifest struct {
	LibraryID     string        `json:"library_id"`
	MinAppVersion string        `json:"min_app_version"`
	Version       string        `json:"version"`
	CreatedAt     string        `json:"created_at"`
	Package       Package       `json:"package"`
	Stats         library.Stats `json:"stats"`
	Changelog     []string      `json:"changelog"`

	extra map[string]json.RawMessage
}

// Package points at the published library
type Package struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Release describes a new library version
type Release struct {
	Version string
	URL     string
	Stats   library.Stats
	Message string
	Now     time.Time
}

type plainManifest Manifest

var knownKeys = []string{"library_id", "min_app_version", "version", "created_at", "package", "stats", "changelog"}

// UnmarshalJSON decodes the known fields and keeps the rest
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var plain plainManifest
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range knownKeys {
		delete(all, k)
	}

	*m = Manifest(plain)
	if len(all) > 0 {
		m.extra = all
	}
	return nil
}

// MarshalJSON encodes the known fields followed by the preserved ones
func (m Manifest) MarshalJSON() ([]byte, error) {
	plain := plainManifest(m)
	if plain.Changelog == nil {
		plain.Changelog = []string{}
	}
	known, err := library.EncodeCompact(plain)
	if err != nil {
		return nil, err
	}
	if len(m.extra) == 0 {
		return known, nil
	}

	merged := make(map[string]json.RawMessage, len(knownKeys)+len(m.extra))
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range m.extra {
		merged[k] = v
	}
	return library.EncodeCompact(merged)
}

// New returns an empty manifest for a library
func New(libraryID, minAppVersion string) *Manifest {
	return &Manifest{
		LibraryID:     libraryID,
		MinAppVersion: minAppVersion,
		Changelog:     []string{},
	}
}

// Load reads a manifest; a missing file yields New(libraryID, minAppVersion)
func Load(path, libraryID, minAppVersion string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(libraryID, minAppVersion), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

// Save writes the manifest atomically as indented JSON
func Save(path string, m *Manifest) error {
	data, err := library.EncodeIndent(m)
	if err != nil {
		return err
	}
	return library.WriteFileAtomic(path, data)
}

// ChangelogEntry formats the changelog line of a release
func ChangelogEntry(version, message string) string {
	if message == "" {
		message = DefaultChangelogMessage
	}
	return version + ": " + message
}

// Apply records a release. The changelog entry goes to the front unless the
// exact line is already present.
func (m *Manifest) Apply(r Release) {
	now := r.Now
	if now.IsZero() {
		now = time.Now()
	}

	m.Version = r.Version
	m.CreatedAt = now.Format(time.RFC3339)
	m.Package = Package{URL: r.URL, Type: PackageTypeJSON}
	m.Stats = r.Stats

	entry := ChangelogEntry(r.Version, r.Message)
	if !slices.Contains(m.Changelog, entry) {
		m.Changelog = append([]string{entry}, m.Changelog...)
	}
}
