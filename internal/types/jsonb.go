package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Compile-time interface assertions.
// These ensure all JSONB types implement both sql.Scanner and driver.Valuer,
// catching any method signature drift at compile time rather than at runtime.
// Scan is on pointer receivers; Value is on value receivers.
var (
	_ sql.Scanner   = (*TrackedPlantList)(nil)
	_ driver.Valuer = TrackedPlantList(nil)
	_ sql.Scanner   = (*UnitDeficitList)(nil)
	_ driver.Valuer = UnitDeficitList(nil)
	_ sql.Scanner   = (*AssessmentList)(nil)
	_ driver.Valuer = AssessmentList(nil)
	_ sql.Scanner   = (*AlertList)(nil)
	_ driver.Valuer = AlertList(nil)
	_ sql.Scanner   = (*LawnAssessment)(nil)
	_ driver.Valuer = LawnAssessment{}
	_ sql.Scanner   = (*LawnConfig)(nil)
	_ driver.Valuer = LawnConfig{}
)

// scanJSONB is a generic helper that scans a JSONB database value into a Go pointer.
// It handles nil values, []byte, and string representations from different database drivers.
func scanJSONB(dest interface{}, value interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// valueJSONB is a generic helper that converts a Go value to a JSONB-compatible driver.Value.
// Returns nil for nil interface values; otherwise marshals to JSON bytes.
func valueJSONB(v interface{}) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// ---------------------------------------------------------------------------
// TrackedPlantList
// ---------------------------------------------------------------------------

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (tl *TrackedPlantList) Scan(value interface{}) error {
	if value == nil {
		*tl = nil
		return nil
	}
	return scanJSONB(tl, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (tl TrackedPlantList) Value() (driver.Value, error) {
	if tl == nil {
		return nil, nil
	}
	return json.Marshal(tl)
}

// ---------------------------------------------------------------------------
// UnitDeficitList
// ---------------------------------------------------------------------------

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (ul *UnitDeficitList) Scan(value interface{}) error {
	if value == nil {
		*ul = nil
		return nil
	}
	return scanJSONB(ul, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (ul UnitDeficitList) Value() (driver.Value, error) {
	if ul == nil {
		return nil, nil
	}
	return json.Marshal(ul)
}

// ---------------------------------------------------------------------------
// AssessmentList
// ---------------------------------------------------------------------------

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (al *AssessmentList) Scan(value interface{}) error {
	if value == nil {
		*al = nil
		return nil
	}
	return scanJSONB(al, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (al AssessmentList) Value() (driver.Value, error) {
	if al == nil {
		return nil, nil
	}
	return json.Marshal(al)
}

// ---------------------------------------------------------------------------
// AlertList
// ---------------------------------------------------------------------------

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (al *AlertList) Scan(value interface{}) error {
	if value == nil {
		*al = nil
		return nil
	}
	return scanJSONB(al, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (al AlertList) Value() (driver.Value, error) {
	if al == nil {
		return nil, nil
	}
	return json.Marshal(al)
}

// ---------------------------------------------------------------------------
// LawnAssessment
// ---------------------------------------------------------------------------

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (la *LawnAssessment) Scan(value interface{}) error {
	return scanJSONB(la, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (la LawnAssessment) Value() (driver.Value, error) {
	return valueJSONB(la)
}

// ---------------------------------------------------------------------------
// LawnConfig
// ---------------------------------------------------------------------------

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (lc *LawnConfig) Scan(value interface{}) error {
	return scanJSONB(lc, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (lc LawnConfig) Value() (driver.Value, error) {
	return valueJSONB(lc)
}
