package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/a3tai/hblib/internal/library"
)

// DefaultDrillDuration is used for headers without a "(n Min)" suffix
const DefaultDrillDuration = 10

// DefaultTemplatePage is the origin page of template drills
const DefaultTemplatePage = library.DefaultSourcePage

// drillHeader matches "Übung 3: Torwurf (15 Min)" and the Drill/Teil
// variants. The title may start on the line after "Übung 3:" and runs to the
// end of its line; a trailing "(n Min)" is the duration.
var drillHeader = regexp.MustCompile(`(?im)(?:Übung|Drill|Teil)\s*(\d+)[:\s]+([^\n]*?)[ \t]*(?:\((\d+)[ \t]*Min[^\n]*)?$`)

type templateDrill struct {
	title    string
	phase    library.Phase
	duration int
}

var defaultTemplate = []templateDrill{
	{title: "Einlaufen/Dehnen", phase: library.PhaseWarmUp, duration: 15},
	{title: "kleines Spiel", phase: library.PhaseGame, duration: 10},
	{title: "Ballgewöhnung", phase: library.PhaseBallHandling, duration: 10},
	{title: "Torhüter einwerfen", phase: library.PhaseGoalkeeper, duration: 10},
	{title: "Hauptteil", phase: library.PhaseOffense, duration: 35},
	{title: "Abschlussspiel", phase: library.PhaseGame, duration: 10},
}

// Header is one drill header found in page text
type Header struct {
	Number   string
	Title    string
	Duration int
	Page     int
}

// FindHeaders returns the drill headers of one page in order of appearance
func FindHeaders(pageText string, page int) []Header {
	var headers []Header
	for _, m := range drillHeader.FindAllStringSubmatch(pageText, -1) {
		h := Header{
			Number:   m[1],
			Title:    strings.TrimSpace(m[2]),
			Duration: DefaultDrillDuration,
			Page:     page,
		}
		if m[3] != "" {
			if n, err := strconv.Atoi(m[3]); err == nil {
				h.Duration = n
			}
		}
		if h.Title == "" {
			h.Title = "Übung " + h.Number
		}
		headers = append(headers, h)
	}
	return headers
}

// segmenter folds headers into drills while carrying the running total
type segmenter struct {
	sessionID  int
	rules      PhaseRules
	cumulative int
	drills     []library.Drill
}

func (s *segmenter) add(number, title string, phase library.Phase, duration, page int) {
	s.cumulative += duration
	d := library.NewDrill(s.sessionID, number, title, phase, page)
	d.DurationMin = duration
	d.CumulativeMin = s.cumulative
	s.drills = append(s.drills, d)
}

// Segment turns the ordered page texts into drills. A document without any
// header yields the fixed six drill template.
func Segment(pages []string, sessionID int, rules PhaseRules) []library.Drill {
	if rules == nil {
		rules = DefaultPhaseRules()
	}

	s := &segmenter{sessionID: sessionID, rules: rules}
	for i, text := range pages {
		for _, h := range FindHeaders(text, i+1) {
			s.add(h.Number, h.Title, rules.Classify(h.Title), h.Duration, h.Page)
		}
	}

	if len(s.drills) == 0 {
		return DefaultDrills(sessionID)
	}
	return s.drills
}

// DefaultDrills returns the fallback template for a session
func DefaultDrills(sessionID int) []library.Drill {
	s := &segmenter{sessionID: sessionID}
	for i, t := range defaultTemplate {
		s.add(strconv.Itoa(i+1), t.title, t.phase, t.duration, DefaultTemplatePage)
	}
	return s.drills
}
