// Package types provides the Go structs for the model editor's value types.
// Models and fields are plain values; the editor and store copy them rather
// than share slices.
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agext/levenshtein"
)

// FieldID identifies a field. IDs are handed out sequentially from a
// counter that only ever increases.
type FieldID int

// Model is a named schema entity with an ordered list of fields.
// An empty ID means the model has not been saved yet.
type Model struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// IsNew reports whether the model has never been persisted.
func (m Model) IsNew() bool {
	return m.ID == ""
}

// Clone returns a copy of m that shares no memory with it.
func (m Model) Clone() Model {
	out := m
	out.Fields = make([]Field, len(m.Fields))
	copy(out.Fields, m.Fields)
	return out
}

// Field returns the field with the given id.
func (m Model) Field(id FieldID) (Field, bool) {
	for _, f := range m.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Field is a named, typed attribute of a model.
type Field struct {
	ID         FieldID  `json:"id"`
	Name       string   `json:"name"`
	Type       DataType `json:"type"`
	PrimaryKey bool     `json:"primary_key"`
	Required   bool     `json:"required"`
	Unique     bool     `json:"unique"`
}

// DataType is the column type of a field. The zero value is Unset.
type DataType int

const (
	Unset DataType = iota
	String
	Text
	Integer
	BigInt
	Float
	Decimal
	Boolean
	Date
	DateTime
	UUID
	JSON
)

// dataTypeNames is indexed by DataType.
var dataTypeNames = [...]string{
	Unset:    "",
	String:   "string",
	Text:     "text",
	Integer:  "integer",
	BigInt:   "bigint",
	Float:    "float",
	Decimal:  "decimal",
	Boolean:  "boolean",
	Date:     "date",
	DateTime: "datetime",
	UUID:     "uuid",
	JSON:     "json",
}

var dataTypeLabels = [...]string{
	Unset:    "--",
	String:   "String",
	Text:     "Text",
	Integer:  "Integer",
	BigInt:   "Big Integer",
	Float:    "Float",
	Decimal:  "Decimal",
	Boolean:  "Boolean",
	Date:     "Date",
	DateTime: "Date & Time",
	UUID:     "UUID",
	JSON:     "JSON",
}

// String returns the wire name of the type ("" for Unset).
func (t DataType) String() string {
	if t < 0 || int(t) >= len(dataTypeNames) {
		return "unknown"
	}
	return dataTypeNames[t]
}

// Label returns the display label of the type.
func (t DataType) Label() string {
	if t < 0 || int(t) >= len(dataTypeLabels) {
		return "unknown"
	}
	return dataTypeLabels[t]
}

// Valid reports whether t is a known type other than Unset.
func (t DataType) Valid() bool {
	return t > Unset && int(t) < len(dataTypeNames)
}

// ParseDataType resolves a wire name. The empty string parses to Unset.
// Unknown names return an error carrying the closest known name, if any.
func ParseDataType(s string) (DataType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range dataTypeNames {
		if n == name {
			return DataType(i), nil
		}
	}
	err := fmt.Errorf("unknown data type %q", s)
	if hint := suggestDataType(name); hint != "" {
		err = fmt.Errorf("%w (did you mean '%s'?)", err, hint)
	}
	return Unset, err
}

func suggestDataType(name string) string {
	const maxDist = 2
	best, bestDist := "", maxDist+1
	for _, n := range dataTypeNames[1:] {
		if d := levenshtein.Distance(name, n, nil); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// MarshalJSON encodes Unset as null and every other type as its name.
func (t DataType) MarshalJSON() ([]byte, error) {
	if t == Unset {
		return []byte("null"), nil
	}
	if !t.Valid() {
		return nil, fmt.Errorf("invalid data type %d", int(t))
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts null or a known type name.
func (t *DataType) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Unset
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("data type must be a string or null: %w", err)
	}
	parsed, err := ParseDataType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Option is one entry of the data type picker.
type Option struct {
	Value DataType `json:"value"`
	Label string   `json:"label"`
}

// Options lists the data types in display order, starting with the empty
// option that maps to Unset.
func Options() []Option {
	out := make([]Option, len(dataTypeNames))
	for i := range dataTypeNames {
		t := DataType(i)
		out[i] = Option{Value: t, Label: t.Label()}
	}
	return out
}
