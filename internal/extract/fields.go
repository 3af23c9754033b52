package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultSessionDuration is used when no duration pattern matches
const DefaultSessionDuration = 90

// DefaultEquipment is used when no material section is found
var DefaultEquipment = []string{"Bälle", "Hütchen"}

// titleStrategy inspects the non-empty trimmed lines of page 1
type titleStrategy func(lines []string, sessionID int) (string, bool)

var titleStrategies = []titleStrategy{
	titleFromFocusMarker,
	titleAfterSessionMarker,
	titleFromLongestLine,
}

// ExtractTitle picks the session title from the text of the first page
func ExtractTitle(firstPage string, sessionID int) string {
	lines := nonEmptyLines(firstPage)
	for _, strategy := range titleStrategies {
		if title, ok := strategy(lines, sessionID); ok {
			return title
		}
	}
	return fmt.Sprintf("Trainingseinheit %d", sessionID)
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func isFooter(line string) bool {
	return strings.Contains(line, "Copyright") ||
		strings.Contains(line, "Seite") ||
		strings.Contains(line, "handball-uebungen") ||
		strings.HasPrefix(line, "http")
}

// "Schwerpunkt: <title>" or the marker with the title on the next line
func titleFromFocusMarker(lines []string, _ int) (string, bool) {
	for i, line := range lines {
		if !strings.Contains(line, "Schwerpunkt") && !strings.Contains(line, "schwerpunkt") {
			continue
		}
		if _, after, found := strings.Cut(line, ":"); found {
			if title := strings.TrimSpace(after); runeLen(title) > 5 {
				return title, true
			}
		}
		if i+1 < len(lines) {
			next := lines[i+1]
			if runeLen(next) > 5 && !strings.Contains(next, "Copyright") {
				return next, true
			}
		}
	}
	return "", false
}

// the first substantial line after "Trainingseinheit <id>" or "TE <id>"
func titleAfterSessionMarker(lines []string, sessionID int) (string, bool) {
	long := fmt.Sprintf("Trainingseinheit %d", sessionID)
	short := fmt.Sprintf("TE %d", sessionID)

	limit := min(len(lines), 15)
	for i := 0; i < limit; i++ {
		if !strings.Contains(lines[i], long) && !strings.Contains(lines[i], short) {
			continue
		}
		for j := i + 1; j < min(i+5, len(lines)); j++ {
			if candidate := lines[j]; runeLen(candidate) > 10 && !isFooter(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

var pureNumber = regexp.MustCompile(`^\d+$`)

// the longest meaningful line among the first 20
func titleFromLongestLine(lines []string, _ int) (string, bool) {
	best := ""
	for _, line := range lines[:min(len(lines), 20)] {
		if runeLen(line) <= 15 || isFooter(line) ||
			strings.Contains(line, "Trainingseinheit") || pureNumber.MatchString(line) {
			continue
		}
		if runeLen(line) > runeLen(best) {
			best = line
		}
	}
	return best, best != ""
}

var durationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*Minuten`),
	regexp.MustCompile(`(?i)(\d+)\s*Min\.`),
	regexp.MustCompile(`(?i)(\d+)\s*min`),
	regexp.MustCompile(`(?i)Dauer:\s*(\d+)`),
}

// ExtractDuration returns the total session duration in minutes
func ExtractDuration(text string) int {
	for _, re := range durationPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return DefaultSessionDuration
}

var equipmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)(?:Material|Benötigtes Material|Equipment):\s*\n(.*?)(?:\n\n|\nAblauf|\nGrundaufbau)`),
	regexp.MustCompile(`(?is)(?:Material|Benötigtes Material):\s*([^\n]+(?:\n[^\n]+)*?)(?:\n\n|\nAblauf)`),
}

var (
	equipmentSeparators = regexp.MustCompile("[\n•\\-,;\x01]")
	listPrefix          = regexp.MustCompile(`^\d+[\.\)]\s*`)
)

// ExtractEquipment returns the items of the first material section found
func ExtractEquipment(text string) []string {
	for _, re := range equipmentPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		items := splitEquipment(m[1])
		if len(items) > 0 {
			return items
		}
		break
	}
	return append([]string(nil), DefaultEquipment...)
}

func splitEquipment(block string) []string {
	var items []string
	for _, item := range equipmentSeparators.Split(block, -1) {
		item = listPrefix.ReplaceAllString(strings.TrimSpace(item), "")
		if runeLen(item) > 2 && !strings.HasPrefix(item, "http") {
			items = append(items, item)
		}
	}
	return items
}

type equipmentTag struct {
	tag      string
	keywords []string
}

var equipmentTags = []equipmentTag{
	{tag: "Hütchen", keywords: []string{"hütchen", "kegel"}},
	{tag: "Ballkiste", keywords: []string{"ballkiste", "bälle"}},
	{tag: "Reifen", keywords: []string{"reifen", "ring"}},
	{tag: "Koordinationsleiter", keywords: []string{"koordinationsleiter", "leiter"}},
	{tag: "Turnkisten", keywords: []string{"turnkiste", "kasten"}},
	{tag: "Turnmatte", keywords: []string{"matte", "turnmatte"}},
}

// EquipmentTags maps free equipment text to canonical tags
func EquipmentTags(equipment []string) []string {
	joined := strings.ToLower(strings.Join(equipment, " "))
	tags := []string{}
	for _, t := range equipmentTags {
		for _, kw := range t.keywords {
			if strings.Contains(joined, kw) {
				tags = append(tags, t.tag)
				break
			}
		}
	}
	return tags
}
