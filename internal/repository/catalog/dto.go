package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// record is one entry of an EFDB export file. Only the fields the service
// uses are decoded.
type record struct {
	ID           flexString `json:"ef_id"`
	Category2006 string     `json:"ipcc_category_2006"`
	Category1996 string     `json:"ipcc_category_1996"`
	Gas          string     `json:"gas"`
	Description  string     `json:"description"`
	Value        flexString `json:"value"`
	Unit         string     `json:"unit"`
	Region       string     `json:"region"`
	SourceOfData string     `json:"source_of_data"`
	DataProvider string     `json:"data_provider"`
	Vector       []float32  `json:"vector"`
}

func (r *record) category() string {
	if c := strings.TrimSpace(r.Category2006); c != "" {
		return c
	}
	return strings.TrimSpace(r.Category1996)
}

// value parses the numeric value. EFDB stores values as strings, sometimes
// with thousands separators.
func (r *record) value() (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(string(r.Value)), ",", "")
	if s == "" {
		return 0, fmt.Errorf("value is empty")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not numeric", string(r.Value))
	}
	return v, nil
}

// flexString decodes a JSON string or number into its text form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode string: %w", err)
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}
