// Package unit models the telemetry record exported by the simulator and the
// mission-clock arithmetic derived from it.
package unit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrBadMissionDate is returned when mission_date cannot be parsed as a
// YYYY-MM-DD calendar date.
var ErrBadMissionDate = errors.New("malformed mission date")

// Coalition is the side a unit belongs to. Wire encoding is a small
// non-negative integer.
type Coalition uint8

const (
	CoalitionNeutral Coalition = 0
	CoalitionRedfor  Coalition = 1
	CoalitionBlufor  Coalition = 2
)

func (c Coalition) String() string {
	switch c {
	case CoalitionNeutral:
		return "NEUTRAL"
	case CoalitionRedfor:
		return "REDFOR"
	case CoalitionBlufor:
		return "BLUFOR"
	}
	return fmt.Sprintf("Coalition(%d)", uint8(c))
}

func (c *Coalition) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v < 0 || v > 2 {
		return fmt.Errorf("coalition out of range: %d", v)
	}
	*c = Coalition(v)
	return nil
}

func (c Coalition) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint8(c))
}

// Level1 is the top-level unit classification.
type Level1 uint8

const (
	Level1Air Level1 = iota + 1
	Level1Ground
	Level1Sea
)

func (l Level1) String() string {
	switch l {
	case Level1Air:
		return "AIR"
	case Level1Ground:
		return "GROUND"
	case Level1Sea:
		return "SEA"
	}
	return fmt.Sprintf("Level1(%d)", uint8(l))
}

// UnmarshalJSON accepts both the full name ("AIR") and the single-letter
// form ("A") emitted by older exporter builds.
func (l *Level1) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "AIR", "A":
		*l = Level1Air
	case "GROUND", "G":
		*l = Level1Ground
	case "SEA", "S":
		*l = Level1Sea
	default:
		return fmt.Errorf("unknown level_1 unit type: %q", s)
	}
	return nil
}

func (l Level1) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// Level2 is the sub-classification. It is carried through but not emitted in
// the current event format. The wire carries either a small integer or a
// single-character string depending on exporter version.
type Level2 byte

func (l *Level2) UnmarshalJSON(data []byte) error {
	var n uint8
	if err := json.Unmarshal(data, &n); err == nil {
		*l = Level2(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil || len(s) != 1 {
		return fmt.Errorf("level_2 must be an integer or single character: %s", data)
	}
	*l = Level2(s[0])
	return nil
}

func (l Level2) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint8(l))
}

// UnitType is the two-level unit categorization.
type UnitType struct {
	Level1 Level1 `json:"level_1"`
	Level2 Level2 `json:"level_2"`
}

// Position is the unit's location. Heading is carried through in radians but
// not emitted.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float32 `json:"altitude"`
	Heading   float64 `json:"heading"`
}

// Record is one decoded unit report.
type Record struct {
	UnitName           string    `json:"unit_name"`
	GroupName          string    `json:"group_name"`
	Coalition          Coalition `json:"coalition"`
	Position           Position  `json:"position"`
	UnitType           UnitType  `json:"unit_type"`
	MissionDate        string    `json:"mission_date"`
	MissionStartTime   int32     `json:"mission_start_time"`
	MissionTimeElapsed int32     `json:"mission_time_elapsed"`
}

// recordWire mirrors Record with pointer fields so missing keys are
// detectable. A record with any absent field is rejected, never defaulted.
type recordWire struct {
	UnitName           *string    `json:"unit_name"`
	GroupName          *string    `json:"group_name"`
	Coalition          *Coalition `json:"coalition"`
	Position           *Position  `json:"position"`
	UnitType           *UnitType  `json:"unit_type"`
	MissionDate        *string    `json:"mission_date"`
	MissionStartTime   *int32     `json:"mission_start_time"`
	MissionTimeElapsed *int32     `json:"mission_time_elapsed"`
}

// Decode parses one JSON unit report. All fields are required.
func Decode(data []byte) (Record, error) {
	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Record{}, fmt.Errorf("decode unit record: %w", err)
	}
	switch {
	case w.UnitName == nil:
		return Record{}, errors.New("decode unit record: missing unit_name")
	case w.GroupName == nil:
		return Record{}, errors.New("decode unit record: missing group_name")
	case w.Coalition == nil:
		return Record{}, errors.New("decode unit record: missing coalition")
	case w.Position == nil:
		return Record{}, errors.New("decode unit record: missing position")
	case w.UnitType == nil:
		return Record{}, errors.New("decode unit record: missing unit_type")
	case w.MissionDate == nil:
		return Record{}, errors.New("decode unit record: missing mission_date")
	case w.MissionStartTime == nil:
		return Record{}, errors.New("decode unit record: missing mission_start_time")
	case w.MissionTimeElapsed == nil:
		return Record{}, errors.New("decode unit record: missing mission_time_elapsed")
	}
	return Record{
		UnitName:           *w.UnitName,
		GroupName:          *w.GroupName,
		Coalition:          *w.Coalition,
		Position:           *w.Position,
		UnitType:           *w.UnitType,
		MissionDate:        *w.MissionDate,
		MissionStartTime:   *w.MissionStartTime,
		MissionTimeElapsed: *w.MissionTimeElapsed,
	}, nil
}

// MissionTime combines mission_date with the seconds-of-day reached by the
// mission clock. The clock never rolls the calendar date: hours wrap modulo
// 24 within mission_date when start + elapsed passes 86400.
func (r Record) MissionTime() (time.Time, error) {
	date, err := time.Parse("2006-01-02", r.MissionDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadMissionDate, r.MissionDate)
	}
	total := int(r.MissionStartTime + r.MissionTimeElapsed)
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		total/3600%24, total%3600/60, total%60,
		0, time.UTC,
	), nil
}
