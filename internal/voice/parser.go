// Package voice turns recognized speech transcripts into structured intents
package voice

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gmsas95/medicinett/internal/store"
)

// IntentKind discriminates the parsed command
type IntentKind string

const (
	IntentMarkTaken    IntentKind = "mark_taken"
	IntentAddMedicine  IntentKind = "add_medicine"
	IntentUnrecognized IntentKind = "unrecognized"
)

// Intent is the structured outcome of parsing one transcript
type Intent struct {
	Kind IntentKind

	// mark_taken
	MedicineNo int

	// add_medicine
	Name          string
	ScheduledTime string
	TimeSlot      store.TimeSlot
	Dosage        string
}

var (
	markRe = regexp.MustCompile(`(?i)medicine\s+(\d+)\s+(completed|taken)`)
	addRe  = regexp.MustCompile(`(?i)add\s+medicine\s+(.+?)\s+at\s+(\d{1,2}:\d{2})(?:\s+slot\s+(\w+))?(?:\s+dosage\s+(.+))?$`)
)

// Parser recognizes "medicine <n> completed|taken" and
// "add medicine <name> at <HH:MM> [slot <slot>] [dosage <text>]".
// Anything else is Unrecognized.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(text string) Intent {
	text = strings.TrimSpace(text)

	if m := markRe.FindStringSubmatch(text); m != nil {
		no, err := strconv.Atoi(m[1])
		if err == nil {
			return Intent{Kind: IntentMarkTaken, MedicineNo: no}
		}
	}

	if m := addRe.FindStringSubmatch(text); m != nil {
		intent := Intent{
			Kind:          IntentAddMedicine,
			Name:          strings.TrimSpace(m[1]),
			ScheduledTime: strings.TrimSpace(m[2]),
			TimeSlot:      store.SlotMorning,
		}
		if m[3] != "" {
			intent.TimeSlot = normalizeSlot(m[3])
		}
		if m[4] != "" {
			intent.Dosage = strings.TrimSpace(m[4])
		}
		return intent
	}

	return Intent{Kind: IntentUnrecognized}
}

// normalizeSlot maps a spoken slot word onto a canonical slot; unknown words
// fall back to Morning, matching the add-command default.
func normalizeSlot(word string) store.TimeSlot {
	switch strings.ToLower(word) {
	case "morning":
		return store.SlotMorning
	case "noon":
		return store.SlotNoon
	case "evening":
		return store.SlotEvening
	case "night":
		return store.SlotNight
	default:
		return store.SlotMorning
	}
}
