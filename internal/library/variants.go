package library

import "time"

// Variant source tags
const (
	SourceOptimized       = "optimized_for_mobile"
	SourceRemoteImages    = "optimized_for_mobile_with_remote_images"
	DefaultCompactVersion = "v4_optimized"
)

// CompactLibrary is the size-optimized library shipped inside archives
type CompactLibrary struct {
	LibraryVersion string           `json:"library_version"`
	Source         string           `json:"source"`
	Sessions       []CompactSession `json:"sessions"`
}

// CompactSession keeps only what the app renders
type CompactSession struct {
	ID               int            `json:"id"`
	Title            string         `json:"title"`
	DurationTotalMin int            `json:"duration_total_min"`
	Tags             SessionTags    `json:"tags"`
	Drills           []CompactDrill `json:"drills"`
}

// CompactDrill keeps the four text fields the app displays
type CompactDrill struct {
	DrillID     string      `json:"drill_id"`
	Title       string      `json:"title"`
	DurationMin int         `json:"duration_min"`
	Phase       Phase       `json:"phase"`
	Text        CompactText `json:"text"`
	Tags        DrillTags   `json:"tags"`
	Images      []Image     `json:"images"`
}

// CompactText is the retained subset of DrillText
type CompactText struct {
	Setup          string `json:"setup"`
	Execution      string `json:"execution"`
	CoachingPoints string `json:"coaching_points"`
	Variations     string `json:"variations"`
}

// RemoteLibrary is the compact library with image paths replaced by URLs
type RemoteLibrary struct {
	LibraryVersion string          `json:"library_version"`
	Source         string          `json:"source"`
	CreatedAt      string          `json:"created_at"`
	ImageBaseURL   string          `json:"image_base_url"`
	Sessions       []RemoteSession `json:"sessions"`
}

// RemoteSession mirrors CompactSession for the remote variant
type RemoteSession struct {
	ID               int           `json:"id"`
	Title            string        `json:"title"`
	DurationTotalMin int           `json:"duration_total_min"`
	Tags             SessionTags   `json:"tags"`
	Drills           []RemoteDrill `json:"drills"`
}

// RemoteDrill mirrors CompactDrill with remote image entries
type RemoteDrill struct {
	DrillID     string        `json:"drill_id"`
	Title       string        `json:"title"`
	DurationMin int           `json:"duration_min"`
	Phase       Phase         `json:"phase"`
	Text        CompactText   `json:"text"`
	Tags        DrillTags     `json:"tags"`
	Images      []RemoteImage `json:"images"`
}

// RemoteImage is an image the app downloads on demand
type RemoteImage struct {
	URL   string `json:"url"`
	Page  int    `json:"page"`
	Order int    `json:"order"`
	Type  string `json:"type"`
}

func compactText(t DrillText) CompactText {
	return CompactText{
		Setup:          t.Setup,
		Execution:      t.Execution,
		CoachingPoints: t.CoachingPoints,
		Variations:     t.Variations,
	}
}

// Compact builds the size-optimized variant of a library
func Compact(lib *Library) *CompactLibrary {
	lib.Normalize()

	version := lib.LibraryVersion
	if version == "" {
		version = DefaultCompactVersion
	}

	out := &CompactLibrary{
		LibraryVersion: version,
		Source:         SourceOptimized,
		Sessions:       make([]CompactSession, 0, len(lib.Sessions)),
	}

	for _, s := range lib.Sessions {
		cs := CompactSession{
			ID:               s.ID,
			Title:            s.Title,
			DurationTotalMin: s.DurationTotalMin,
			Tags:             s.Tags,
			Drills:           make([]CompactDrill, 0, len(s.Drills)),
		}
		for _, d := range s.Drills {
			cs.Drills = append(cs.Drills, CompactDrill{
				DrillID:     d.DrillID,
				Title:       d.Title,
				DurationMin: d.DurationMin,
				Phase:       d.Phase,
				Text:        compactText(d.Text),
				Tags:        d.Tags,
				Images:      d.Images,
			})
		}
		out.Sessions = append(out.Sessions, cs)
	}

	return out
}

// Remote builds the remote-image variant; every image URL is baseURL + path
func Remote(lib *Library, version, baseURL string, now time.Time) *RemoteLibrary {
	lib.Normalize()

	out := &RemoteLibrary{
		LibraryVersion: version,
		Source:         SourceRemoteImages,
		CreatedAt:      now.Format(time.RFC3339),
		ImageBaseURL:   baseURL,
		Sessions:       make([]RemoteSession, 0, len(lib.Sessions)),
	}

	for _, s := range lib.Sessions {
		rs := RemoteSession{
			ID:               s.ID,
			Title:            s.Title,
			DurationTotalMin: s.DurationTotalMin,
			Tags:             s.Tags,
			Drills:           make([]RemoteDrill, 0, len(s.Drills)),
		}
		for _, d := range s.Drills {
			rd := RemoteDrill{
				DrillID:     d.DrillID,
				Title:       d.Title,
				DurationMin: d.DurationMin,
				Phase:       d.Phase,
				Text:        compactText(d.Text),
				Tags:        d.Tags,
				Images:      make([]RemoteImage, 0, len(d.Images)),
			}
			for _, img := range d.Images {
				imgType := img.Type
				if imgType == "" {
					imgType = ImageTypeFullPage
				}
				rd.Images = append(rd.Images, RemoteImage{
					URL:   baseURL + img.Path,
					Page:  img.Page,
					Order: img.Order,
					Type:  imgType,
				})
			}
			rs.Drills = append(rs.Drills, rd)
		}
		out.Sessions = append(out.Sessions, rs)
	}

	return out
}

// Stats counts the remote variant the same way ComputeStats counts a library
func (r *RemoteLibrary) Stats() Stats {
	stats := Stats{Sessions: len(r.Sessions)}
	for _, s := range r.Sessions {
		stats.Drills += len(s.Drills)
		for _, d := range s.Drills {
			stats.Images += len(d.Images)
		}
	}
	return stats
}
