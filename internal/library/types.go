package library

import "fmt"

// Phase is the coarse category of a drill
type Phase string

const (
	PhaseWarmUp         Phase = "Warm-up"
	PhaseCoordination   Phase = "Coordination"
	PhaseBallHandling   Phase = "Ball-handling"
	PhaseGoalkeeper     Phase = "Goalkeeper"
	PhaseShootingSeries Phase = "Shooting-series"
	PhaseOffense        Phase = "Offense"
	PhaseDefense        Phase = "Defense"
	PhaseGame           Phase = "Game"
)

// Image type tags
const (
	ImageTypeFullPage = "full_page"
	ImageTypeEmbedded = "embedded"
)

// Unknown is the placeholder used by tag fields that the extractor cannot fill
const Unknown = "unbekannt"

// DefaultSourcePage is the page a drill starts on when the library does not
// say
const DefaultSourcePage = 2

// ImageDirRoot is the relative directory all image paths start with
const ImageDirRoot = "drill_images"

// Library is the persisted collection of sessions
type Library struct {
	LibraryVersion string    `json:"library_version,omitempty"`
	Source         string    `json:"source,omitempty"`
	CreatedAt      string    `json:"created_at,omitempty"`
	ImageBaseURL   string    `json:"image_base_url,omitempty"`
	Sessions       []Session `json:"sessions"`

	raw rawFields
}

// Session is one training unit extracted from one PDF
type Session struct {
	SourceFile       string      `json:"source_file"`
	ID               int         `json:"id"`
	Title            string      `json:"title"`
	DurationTotalMin int         `json:"duration_total_min"`
	Equipment        []string    `json:"equipment"`
	Drills           []Drill     `json:"drills"`
	Extraction       Extraction  `json:"extraction"`
	Tags             SessionTags `json:"tags"`

	raw rawFields
}

// Extraction records how a session was produced
type Extraction struct {
	Method string `json:"method"`
	Notes  string `json:"notes"`
	RunID  string `json:"run_id,omitempty"`
}

// SessionTags is the session level tag bag. Members without a field are kept
// as they are.
type SessionTags struct {
	Formation     string   `json:"formation"`
	FocusArea     string   `json:"focus_area"`
	ConceptTags   []string `json:"concept_tags"`
	EquipmentTags []string `json:"equipment_tags"`

	raw rawFields
}

// Drill is one timed exercise segment within a session
type Drill struct {
	DrillID         string       `json:"drill_id"`
	Title           string       `json:"title"`
	DurationMin     int          `json:"duration_min"`
	CumulativeMin   int          `json:"cumulative_min"`
	Phase           Phase        `json:"phase"`
	SourcePageStart int          `json:"source_page_start"`
	Text            DrillText    `json:"text"`
	TextBullets     DrillBullets `json:"text_bullets"`
	Tags            DrillTags    `json:"tags"`
	Images          []Image      `json:"images"`

	raw rawFields
}

// DrillText holds the prose fields of a drill
type DrillText struct {
	Preface        string `json:"preface"`
	Setup          string `json:"setup"`
	Execution      string `json:"execution"`
	CoachingPoints string `json:"coaching_points"`
	Variations     string `json:"variations"`
	Goal           string `json:"goal"`
	RawRest        string `json:"raw_rest"`
}

// DrillBullets holds the bulleted variants of the prose fields
type DrillBullets struct {
	Setup          []string `json:"setup"`
	Execution      []string `json:"execution"`
	CoachingPoints []string `json:"coaching_points"`
	Variations     []string `json:"variations"`
	Goal           []string `json:"goal"`
}

// DrillTags is the drill level tag bag. Members without a field are kept as
// they are.
type DrillTags struct {
	Formation          string   `json:"formation"`
	ConceptTags        []string `json:"concept_tags"`
	DrillLevel         string   `json:"drill_level"`
	RequiresGoalkeeper bool     `json:"requires_goalkeeper"`

	raw rawFields
}

// Image references a rendered page or an embedded picture
type Image struct {
	Path  string `json:"path"`
	Page  int    `json:"page"`
	Order int    `json:"order"`
	Type  string `json:"type,omitempty"`
}

// NewDrill returns a drill with every optional field present and empty
func NewDrill(sessionID int, number string, title string, phase Phase, page int) Drill {
	return Drill{
		DrillID:         fmt.Sprintf("%d-%s", sessionID, number),
		Title:           title,
		Phase:           phase,
		SourcePageStart: page,
		TextBullets: DrillBullets{
			Setup:          []string{},
			Execution:      []string{},
			CoachingPoints: []string{},
			Variations:     []string{},
			Goal:           []string{},
		},
		Tags: DrillTags{
			Formation:          Unknown,
			ConceptTags:        []string{},
			DrillLevel:         Unknown,
			RequiresGoalkeeper: phase == PhaseGoalkeeper,
		},
		Images: []Image{},
	}
}

// SessionDir returns the session scoped image directory, e.g. TE_078
func SessionDir(sessionID int) string {
	return fmt.Sprintf("TE_%03d", sessionID)
}

// RelativeImagePath returns the library path of an image file of a session
func RelativeImagePath(sessionID int, fileName string) string {
	return ImageDirRoot + "/" + SessionDir(sessionID) + "/" + fileName
}

// normalize replaces nil slices so that encoding never emits null
func (s *Session) normalize() {
	if s.Equipment == nil {
		s.Equipment = []string{}
	}
	if s.Drills == nil {
		s.Drills = []Drill{}
	}
	if s.Tags.ConceptTags == nil {
		s.Tags.ConceptTags = []string{}
	}
	if s.Tags.EquipmentTags == nil {
		s.Tags.EquipmentTags = []string{}
	}
	for i := range s.Drills {
		s.Drills[i].normalize()
	}
}

func (d *Drill) normalize() {
	b := &d.TextBullets
	for _, list := range []*[]string{&b.Setup, &b.Execution, &b.CoachingPoints, &b.Variations, &b.Goal, &d.Tags.ConceptTags} {
		if *list == nil {
			*list = []string{}
		}
	}
	if d.Images == nil {
		d.Images = []Image{}
	}
}

// Normalize fills nil slices of every session in the library
func (l *Library) Normalize() {
	if l.Sessions == nil {
		l.Sessions = []Session{}
	}
	for i := range l.Sessions {
		l.Sessions[i].normalize()
	}
}

// FindSession returns the session with the given id
func (l *Library) FindSession(id int) (*Session, bool) {
	for i := range l.Sessions {
		if l.Sessions[i].ID == id {
			return &l.Sessions[i], true
		}
	}
	return nil, false
}
