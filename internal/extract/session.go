package extract

import (
	"path/filepath"
	"strings"

	"github.com/a3tai/hblib/internal/library"
)

// Provenance of sessions produced by this package
const (
	Method          = "go_fitz_text_regex_v2"
	ProvenanceNotes = "Metadata and drill headers extracted; drill descriptions are referenced via source_page_start to avoid verbatim reproduction."
)

// AssignImages gives every drill the images whose page equals the drill's
// origin page, in input order. Drills sharing a page share its images.
func AssignImages(drills []library.Drill, images []library.Image) {
	byPage := make(map[int][]library.Image)
	for _, img := range images {
		byPage[img.Page] = append(byPage[img.Page], img)
	}
	for i := range drills {
		page := byPage[drills[i].SourcePageStart]
		drills[i].Images = make([]library.Image, len(page))
		copy(drills[i].Images, page)
	}
}

// Input is everything the assembler needs for one document
type Input struct {
	SourceFile string
	SessionID  int
	Pages      []string
	Images     []library.Image
	Rules      PhaseRules
	RunID      string
}

// Assemble builds a session from page text and page images
func Assemble(in Input) library.Session {
	firstPage := ""
	if len(in.Pages) > 0 {
		firstPage = in.Pages[0]
	}
	allText := strings.Join(in.Pages, "\n")

	equipment := ExtractEquipment(allText)
	drills := Segment(in.Pages, in.SessionID, in.Rules)
	AssignImages(drills, in.Images)

	return library.Session{
		SourceFile:       filepath.Base(in.SourceFile),
		ID:               in.SessionID,
		Title:            ExtractTitle(firstPage, in.SessionID),
		DurationTotalMin: ExtractDuration(allText),
		Equipment:        equipment,
		Drills:           drills,
		Extraction: library.Extraction{
			Method: Method,
			Notes:  ProvenanceNotes,
			RunID:  in.RunID,
		},
		Tags: library.SessionTags{
			Formation:     library.Unknown,
			FocusArea:     library.Unknown,
			ConceptTags:   []string{},
			EquipmentTags: EquipmentTags(equipment),
		},
	}
}
