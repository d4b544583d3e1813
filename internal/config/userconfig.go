package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/taclink/cotbridge/internal/unit"
)

// CoalitionFlag is a bitmask selecting which coalitions the user wants
// exported.
type CoalitionFlag uint8

const (
	CoalitionFlagNeutral CoalitionFlag = 1 << iota
	CoalitionFlagRedfor
	CoalitionFlagBlufor

	CoalitionFlagAll = CoalitionFlagNeutral | CoalitionFlagRedfor | CoalitionFlagBlufor
)

// UnitTypeFlag is a bitmask selecting which top-level unit types the user
// wants exported.
type UnitTypeFlag uint8

const (
	UnitTypeFlagGround UnitTypeFlag = 1 << iota
	UnitTypeFlagAir
	UnitTypeFlagSea

	UnitTypeFlagAll = UnitTypeFlagGround | UnitTypeFlagAir | UnitTypeFlagSea
)

// UserConfig encapsulates the settings configurable by the user. The bridge
// core treats the value as read-only; serialization lives here so the file
// format stays with the type.
type UserConfig struct {
	// The coalition(s) the user wants to interact with.
	CoalitionFlag CoalitionFlag `json:"coalition_flag"`

	// The unit type(s) the user wants to interact with.
	UnitTypeFlag UnitTypeFlag `json:"unit_type_flag"`

	// The name of the user's controlled unit.
	UserUnitName string `json:"user_unit_name,omitempty"`

	// The frequency at which unit data should be exported from the
	// simulator. Opaque to the bridge.
	ExportFrequencyFrames int32 `json:"export_frequency_frames"`

	// The IP address of the device to transmit to. Opaque to the bridge.
	DeviceIPAddress string `json:"device_ip_address,omitempty"`
}

// DefaultUserConfig passes every record through the filter.
func DefaultUserConfig() UserConfig {
	return UserConfig{
		CoalitionFlag: CoalitionFlagAll,
		UnitTypeFlag:  UnitTypeFlagAll,
	}
}

// coalitionBit maps a record's coalition onto its one-hot flag bit.
func coalitionBit(c unit.Coalition) CoalitionFlag {
	switch c {
	case unit.CoalitionNeutral:
		return CoalitionFlagNeutral
	case unit.CoalitionRedfor:
		return CoalitionFlagRedfor
	case unit.CoalitionBlufor:
		return CoalitionFlagBlufor
	}
	return 0
}

// unitTypeBit maps a record's level-1 type onto its one-hot flag bit.
func unitTypeBit(l unit.Level1) UnitTypeFlag {
	switch l {
	case unit.Level1Ground:
		return UnitTypeFlagGround
	case unit.Level1Air:
		return UnitTypeFlagAir
	case unit.Level1Sea:
		return UnitTypeFlagSea
	}
	return 0
}

// IsUnitConfigured reports whether the record passes the user's coalition and
// unit-type selection. Both masks must match.
func (uc UserConfig) IsUnitConfigured(r unit.Record) bool {
	return uc.CoalitionFlag&coalitionBit(r.Coalition) != 0 &&
		uc.UnitTypeFlag&unitTypeBit(r.UnitType.Level1) != 0
}

// LoadUserConfig reads a UserConfig from a JSON file.
func LoadUserConfig(path string) (UserConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return UserConfig{}, fmt.Errorf("read user config: %w", err)
	}
	var uc UserConfig
	if err := json.Unmarshal(data, &uc); err != nil {
		return UserConfig{}, fmt.Errorf("parse user config: %w", err)
	}
	return uc, nil
}

// Save writes the UserConfig to a JSON file.
func (uc UserConfig) Save(path string) error {
	data, err := json.Marshal(uc)
	if err != nil {
		return fmt.Errorf("encode user config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write user config: %w", err)
	}
	return nil
}
