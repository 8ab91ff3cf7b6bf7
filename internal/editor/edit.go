package editor

import (
	"encoding/json"
	"fmt"

	"github.com/matthewbaird/modeleditor/internal/types"
)

// Edit changes one attribute of a field.
type Edit func(*types.Field)

func SetName(name string) Edit {
	return func(f *types.Field) { f.Name = name }
}

func SetType(t types.DataType) Edit {
	return func(f *types.Field) { f.Type = t }
}

func SetPrimaryKey(v bool) Edit {
	return func(f *types.Field) { f.PrimaryKey = v }
}

func SetRequired(v bool) Edit {
	return func(f *types.Field) { f.Required = v }
}

func SetUnique(v bool) Edit {
	return func(f *types.Field) { f.Unique = v }
}

// Attribute names accepted by ParseEdit.
const (
	AttrName       = "name"
	AttrType       = "type"
	AttrPrimaryKey = "primary_key"
	AttrRequired   = "required"
	AttrUnique     = "unique"
)

// ParseEdit builds an Edit from an attribute name and a JSON value, as sent
// by clients.
func ParseEdit(attr string, value json.RawMessage) (Edit, error) {
	switch attr {
	case AttrName:
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, fmt.Errorf("%s: expected string: %w", attr, err)
		}
		return SetName(s), nil
	case AttrType:
		var t types.DataType
		if err := json.Unmarshal(value, &t); err != nil {
			return nil, fmt.Errorf("%s: %w", attr, err)
		}
		return SetType(t), nil
	case AttrPrimaryKey, AttrRequired, AttrUnique:
		var b bool
		if err := json.Unmarshal(value, &b); err != nil {
			return nil, fmt.Errorf("%s: expected bool: %w", attr, err)
		}
		switch attr {
		case AttrPrimaryKey:
			return SetPrimaryKey(b), nil
		case AttrRequired:
			return SetRequired(b), nil
		default:
			return SetUnique(b), nil
		}
	default:
		return nil, fmt.Errorf("unknown field attribute %q", attr)
	}
}
