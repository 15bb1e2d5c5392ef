package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
)

// MacroTotals is the four-number totals document persisted as JSONB on a
// nutrition log. Keys written by older clients may be missing, so every field
// is optional and a nil field means "absent", not zero.
type MacroTotals struct {
	Calories *float64 `json:"calories,omitempty"`
	ProteinG *float64 `json:"protein_g,omitempty"`
	CarbsG   *float64 `json:"carbs_g,omitempty"`
	FatG     *float64 `json:"fat_g,omitempty"`

	malformed bool
}

// NewMacroTotals builds a fully populated document.
func NewMacroTotals(calories, protein, carbs, fat float64) MacroTotals {
	return MacroTotals{
		Calories: &calories,
		ProteinG: &protein,
		CarbsG:   &carbs,
		FatG:     &fat,
	}
}

// Value marshals the totals into JSON for Postgres.
func (m MacroTotals) Value() (driver.Value, error) {
	buf, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes JSONB into the totals. Rows may come from writers other than
// this service, so each key is read on its own: a value that is not a finite
// number is treated as absent. A column that is not a JSON object scans as
// empty totals flagged Malformed instead of failing the whole query.
func (m *MacroTotals) Scan(value interface{}) error {
	if value == nil {
		*m = MacroTotals{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("macro totals: unsupported scan type %T", value)
	}

	*m = MacroTotals{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		m.malformed = true
		return nil
	}

	m.Calories = numberField(fields, "calories")
	m.ProteinG = numberField(fields, "protein_g")
	m.CarbsG = numberField(fields, "carbs_g")
	m.FatG = numberField(fields, "fat_g")
	return nil
}

// Malformed reports whether the scanned column was not a JSON object.
func (m MacroTotals) Malformed() bool {
	return m.malformed
}

func numberField(fields map[string]json.RawMessage, key string) *float64 {
	raw, ok := fields[key]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
