package cot

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taclink/cotbridge/internal/unit"
)

func testRecord() unit.Record {
	return unit.Record{
		UnitName:  "J-01334",
		GroupName: "J-01335",
		Coalition: unit.CoalitionRedfor,
		Position: unit.Position{
			Latitude:  30.0090027,
			Longitude: -85.9578735,
			Altitude:  -42.6,
			Heading:   0.0568,
		},
		UnitType: unit.UnitType{
			Level1: unit.Level1Air,
			Level2: 1,
		},
		MissionDate:        "2005-04-05",
		MissionStartTime:   42000,
		MissionTimeElapsed: 218,
	}
}

func TestRenderBitExact(t *testing.T) {
	want := `<?xml version="1.0" standalone="yes"?>` +
		`<event version="2.0" uid="J-01334" type="a-h-A" how="m-g" ` +
		`time="2005-04-05T11:43:38Z" start="2005-04-05T11:43:38Z" stale="2005-04-05T11:44:38Z">` +
		`<point lat="30.0090027" lon="-85.9578735" ce="0.0" hae="-42.6" le="0.0"/>` +
		`<detail><contact callsign="J-01334"/></detail></event>`

	got, err := Render(testRecord())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRenderShape(t *testing.T) {
	got, err := Render(testRecord())
	require.NoError(t, err)

	pattern := regexp.MustCompile(`^<\?xml version="1\.0" standalone="yes"\?>` +
		`<event version="2\.0" uid="[^"]*" type="a-[nhf]-[AGS]" how="m-g" ` +
		`time="[0-9T:\-]+Z" start="[0-9T:\-]+Z" stale="[0-9T:\-]+Z">` +
		`<point [^/]+/><detail><contact callsign="[^"]*"/></detail></event>$`)
	assert.Regexp(t, pattern, got)
}

func TestRenderMalformedDate(t *testing.T) {
	r := testRecord()
	r.MissionDate = "2023-13-08"

	_, err := Render(r)
	require.ErrorIs(t, err, unit.ErrBadMissionDate)
}

func TestAtomicEventTypeCode(t *testing.T) {
	cases := []struct {
		coalition unit.Coalition
		level1    unit.Level1
		want      string
	}{
		{unit.CoalitionNeutral, unit.Level1Air, "a-n-A"},
		{unit.CoalitionNeutral, unit.Level1Ground, "a-n-G"},
		{unit.CoalitionNeutral, unit.Level1Sea, "a-n-S"},
		{unit.CoalitionRedfor, unit.Level1Air, "a-h-A"},
		{unit.CoalitionRedfor, unit.Level1Ground, "a-h-G"},
		{unit.CoalitionRedfor, unit.Level1Sea, "a-h-S"},
		{unit.CoalitionBlufor, unit.Level1Air, "a-f-A"},
		{unit.CoalitionBlufor, unit.Level1Ground, "a-f-G"},
		{unit.CoalitionBlufor, unit.Level1Sea, "a-f-S"},
	}
	for _, tc := range cases {
		r := testRecord()
		r.Coalition = tc.coalition
		r.UnitType.Level1 = tc.level1
		assert.Equal(t, tc.want, NewAtomicEvent(r).String())
	}
}

func TestRenderStaleIsOneMinuteAfterTime(t *testing.T) {
	r := testRecord()
	r.MissionStartTime = 86340 // 23:59:00
	r.MissionTimeElapsed = 30

	got, err := Render(r)
	require.NoError(t, err)
	assert.Contains(t, got, `time="2005-04-05T23:59:30Z"`)
	assert.Contains(t, got, `stale="2005-04-06T00:00:30Z"`)
}
