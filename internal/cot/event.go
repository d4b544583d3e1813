// Package cot renders unit records as single-line Cursor-on-Target XML
// events. See https://www.mitre.org/sites/default/files/pdf/09_4937.pdf
package cot

import (
	"fmt"
	"strconv"
	"time"

	"github.com/taclink/cotbridge/internal/unit"
)

// staleAfter is how long a rendered event stays valid past its timestamp.
const staleAfter = time.Minute

// AtomicEvent is the three-level dash-joined event-type code, e.g. "a-h-A".
type AtomicEvent struct {
	Level1 byte
	Level2 byte
	Level3 byte
}

// NewAtomicEvent derives the type code from a record. Level 1 is always 'a'
// (atom); level 2 encodes coalition affiliation; level 3 the unit dimension.
func NewAtomicEvent(r unit.Record) AtomicEvent {
	return AtomicEvent{
		Level1: 'a',
		Level2: coalitionChar(r.Coalition),
		Level3: level1Char(r.UnitType.Level1),
	}
}

func (e AtomicEvent) String() string {
	return fmt.Sprintf("%c-%c-%c", e.Level1, e.Level2, e.Level3)
}

func coalitionChar(c unit.Coalition) byte {
	switch c {
	case unit.CoalitionNeutral:
		return 'n'
	case unit.CoalitionRedfor:
		return 'h'
	case unit.CoalitionBlufor:
		return 'f'
	}
	return 'u'
}

func level1Char(l unit.Level1) byte {
	switch l {
	case unit.Level1Air:
		return 'A'
	case unit.Level1Ground:
		return 'G'
	case unit.Level1Sea:
		return 'S'
	}
	return 'X'
}

// Render serializes a record as a one-line CoT event. The record's unit name
// is emitted verbatim as uid and callsign; the producer is responsible for
// keeping it free of characters unsafe in XML attributes.
//
// Returns unit.ErrBadMissionDate (wrapped) when the mission timestamp cannot
// be derived.
func Render(r unit.Record) (string, error) {
	missionTime, err := r.MissionTime()
	if err != nil {
		return "", err
	}

	timestamp := missionTime.Format(time.RFC3339)
	stale := missionTime.Add(staleAfter).Format(time.RFC3339)

	return fmt.Sprintf(
		`<?xml version="1.0" standalone="yes"?>`+
			`<event version="2.0" uid="%s" type="%s" how="m-g" time="%s" start="%s" stale="%s">`+
			`<point lat="%s" lon="%s" ce="0.0" hae="%s" le="0.0"/>`+
			`<detail><contact callsign="%s"/></detail>`+
			`</event>`,
		r.UnitName,
		NewAtomicEvent(r),
		timestamp,
		timestamp,
		stale,
		formatCoord(r.Position.Latitude),
		formatCoord(r.Position.Longitude),
		formatAltitude(r.Position.Altitude),
		r.UnitName,
	), nil
}

// formatCoord emits the shortest decimal representation that round-trips the
// 64-bit float, without exponent notation.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatAltitude(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}
