package unit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportedRecordJSON = `{"unit_name":"UNIT-1","group_name":"GROUP-1","coalition":2,` +
	`"position":{"latitude":30.0090027,"longitude":-85.9578735,"altitude":132.67,"heading":2.0034},` +
	`"unit_type":{"level_1":"A","level_2":"B"},` +
	`"mission_date":"2024-03-08","mission_start_time":28800,"mission_time_elapsed":3600}`

func TestDecode(t *testing.T) {
	r, err := Decode([]byte(exportedRecordJSON))
	require.NoError(t, err)

	assert.Equal(t, "UNIT-1", r.UnitName)
	assert.Equal(t, "GROUP-1", r.GroupName)
	assert.Equal(t, CoalitionBlufor, r.Coalition)
	assert.Equal(t, 30.0090027, r.Position.Latitude)
	assert.Equal(t, -85.9578735, r.Position.Longitude)
	assert.Equal(t, float32(132.67), r.Position.Altitude)
	assert.Equal(t, 2.0034, r.Position.Heading)
	assert.Equal(t, Level1Air, r.UnitType.Level1)
	assert.Equal(t, Level2('B'), r.UnitType.Level2)
	assert.Equal(t, "2024-03-08", r.MissionDate)
	assert.Equal(t, int32(28800), r.MissionStartTime)
	assert.Equal(t, int32(3600), r.MissionTimeElapsed)
}

func TestDecodeFullUnitTypeNames(t *testing.T) {
	for wire, want := range map[string]Level1{
		"AIR":    Level1Air,
		"GROUND": Level1Ground,
		"SEA":    Level1Sea,
		"A":      Level1Air,
		"G":      Level1Ground,
		"S":      Level1Sea,
	} {
		var l Level1
		require.NoError(t, l.UnmarshalJSON([]byte(`"`+wire+`"`)), wire)
		assert.Equal(t, want, l, wire)
	}

	var l Level1
	assert.Error(t, l.UnmarshalJSON([]byte(`"SPACE"`)))
}

func TestDecodeNumericLevel2(t *testing.T) {
	var l Level2
	require.NoError(t, l.UnmarshalJSON([]byte(`7`)))
	assert.Equal(t, Level2(7), l)

	assert.Error(t, l.UnmarshalJSON([]byte(`"BC"`)))
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	cases := map[string]string{
		"missing unit_name":    `{"group_name":"G","coalition":0,"position":{"latitude":0,"longitude":0,"altitude":0,"heading":0},"unit_type":{"level_1":"A","level_2":1},"mission_date":"2024-03-08","mission_start_time":0,"mission_time_elapsed":0}`,
		"missing position":     `{"unit_name":"U","group_name":"G","coalition":0,"unit_type":{"level_1":"A","level_2":1},"mission_date":"2024-03-08","mission_start_time":0,"mission_time_elapsed":0}`,
		"missing mission_date": `{"unit_name":"U","group_name":"G","coalition":0,"position":{"latitude":0,"longitude":0,"altitude":0,"heading":0},"unit_type":{"level_1":"A","level_2":1},"mission_start_time":0,"mission_time_elapsed":0}`,
		"not json":             `unit data`,
	}
	for name, payload := range cases {
		_, err := Decode([]byte(payload))
		assert.Error(t, err, name)
	}
}

func TestDecodeRejectsUnknownCoalition(t *testing.T) {
	bad := `{"unit_name":"U","group_name":"G","coalition":3,` +
		`"position":{"latitude":0,"longitude":0,"altitude":0,"heading":0},` +
		`"unit_type":{"level_1":"A","level_2":1},` +
		`"mission_date":"2024-03-08","mission_start_time":0,"mission_time_elapsed":0}`
	_, err := Decode([]byte(bad))
	assert.Error(t, err)
}

func TestMissionTime(t *testing.T) {
	r, err := Decode([]byte(exportedRecordJSON))
	require.NoError(t, err)

	got, err := r.MissionTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC), got)
}

func TestMissionTimeMalformedDate(t *testing.T) {
	r := Record{MissionDate: "2023-13-08"}
	_, err := r.MissionTime()
	require.ErrorIs(t, err, ErrBadMissionDate)
}

func TestMissionTimeNoDayRollover(t *testing.T) {
	r := Record{
		MissionDate:        "2024-03-08",
		MissionStartTime:   86000,
		MissionTimeElapsed: 1000,
	}
	got, err := r.MissionTime()
	require.NoError(t, err)

	// 87000 seconds of day wraps to 00:10:00 on the same calendar date.
	assert.Equal(t, time.Date(2024, 3, 8, 0, 10, 0, 0, time.UTC), got)
}

func TestCoalitionString(t *testing.T) {
	assert.Equal(t, "NEUTRAL", CoalitionNeutral.String())
	assert.Equal(t, "REDFOR", CoalitionRedfor.String())
	assert.Equal(t, "BLUFOR", CoalitionBlufor.String())
}
