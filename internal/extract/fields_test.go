package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name      string
		page      string
		sessionID int
		want      string
	}{
		{
			name: "focus marker with title after colon",
			page: "Trainingseinheit 78\nSchwerpunkt: Tempogegenstoß 1. Welle\nCopyright",
			want: "Tempogegenstoß 1. Welle",
		},
		{
			name: "focus marker with title on next line",
			page: "schwerpunkt:\n  Abwehr 6:0 offensiv  \n",
			want: "Abwehr 6:0 offensiv",
		},
		{
			name: "focus marker next line is copyright",
			page: "Schwerpunkt\nCopyright handball\nKurz",
			want: "Trainingseinheit 0",
		},
		{
			name:      "line after session marker",
			page:      "Trainingseinheit 184\nSeite 1 von 4\nKreuzen im Rückraum\nÜbung 1",
			sessionID: 184,
			want:      "Kreuzen im Rückraum",
		},
		{
			name:      "short session marker skips urls and short lines",
			page:      "TE 12\nhttps://www.handball-uebungen.de/x\nkurz\nWurfvariationen Außen",
			sessionID: 12,
			want:      "Wurfvariationen Außen",
		},
		{
			name:      "longest line fallback prefers first on ties",
			page:      "12345678901234567\nDies ist Zeile eins!\nDies ist Zeile zwei!\nkurz",
			sessionID: 7,
			want:      "Dies ist Zeile eins!",
		},
		{
			name:      "longest line ignores footers",
			page:      "Copyright 2024 handball-uebungen.de alle Rechte\nGegenstoß über die Mitte",
			sessionID: 7,
			want:      "Gegenstoß über die Mitte",
		},
		{
			name:      "default title",
			page:      "\n\nkurz\n",
			sessionID: 42,
			want:      "Trainingseinheit 42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.page, tt.sessionID))
		})
	}
}

func TestExtractDuration(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "minuten", text: "Gesamtdauer 75 Minuten", want: 75},
		{name: "minuten beats earlier min", text: "Übung (15 min)\nGesamt: 90 Minuten", want: 90},
		{name: "min dot", text: "ca. 60 Min. Training", want: 60},
		{name: "lower case min", text: "Aufwärmen 20min", want: 20},
		{name: "dauer", text: "Dauer: 105", want: 105},
		{name: "default", text: "keine Angabe", want: DefaultSessionDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDuration(tt.text))
		})
	}
}

func TestExtractEquipment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "comma separated block",
			text: "Material:\nHütchen, Bälle, Reifen\n\nAblauf",
			want: []string{"Hütchen", "Bälle", "Reifen"},
		},
		{
			name: "bullets and numbered items",
			text: "Benötigtes Material:\n• 10 Hütchen\n1. Turnmatte\n2) Koordinationsleiter\nAblauf: ...",
			want: []string{"10 Hütchen", "Turnmatte", "Koordinationsleiter"},
		},
		{
			name: "drops short tokens and urls",
			text: "Equipment:\nab\nhttp://example.org\nBälle\nGrundaufbau",
			want: []string{"Bälle"},
		},
		{
			name: "same line block",
			text: "Material: 2 Kästen\nLeibchen\n\nText",
			want: []string{"2 Kästen", "Leibchen"},
		},
		{
			name: "no material section",
			text: "Ablauf: laufen",
			want: []string{"Bälle", "Hütchen"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractEquipment(tt.text))
		})
	}
}

func TestExtractEquipment_DefaultIsCopied(t *testing.T) {
	got := ExtractEquipment("")
	got[0] = "changed"
	assert.Equal(t, "Bälle", DefaultEquipment[0])
}

func TestEquipmentTags(t *testing.T) {
	tests := []struct {
		name      string
		equipment []string
		want      []string
	}{
		{name: "cones balls rings", equipment: []string{"Hütchen", "Bälle", "Reifen"}, want: []string{"Hütchen", "Ballkiste", "Reifen"}},
		{name: "keyword synonyms", equipment: []string{"Kegel", "Leiter", "kleiner Kasten", "Weichbodenmatte"}, want: []string{"Hütchen", "Koordinationsleiter", "Turnkisten", "Turnmatte"}},
		{name: "nothing known", equipment: []string{"Leibchen"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EquipmentTags(tt.equipment))
		})
	}
}
