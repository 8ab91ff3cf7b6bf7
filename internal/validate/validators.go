// Package validate holds the name and type rules for models and fields.
//
// Validators are pure: they never mutate their inputs and always return the
// same answer for the same arguments. ValidateModel and ValidateField run
// them in a fixed order and report the codes of the rules that failed.
package validate

import (
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/matthewbaird/modeleditor/internal/types"
)

// MaxIdentifierLength is the longest snake_case name accepted, matching the
// PostgreSQL identifier limit.
const MaxIdentifierLength = 63

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$ ][A-Za-z0-9_$ ]*$`)

// Required reports whether value is non-empty after trimming.
func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// TypeSet reports whether t has been set.
func TypeSet(t types.DataType) bool {
	return t != types.Unset
}

// IdentifierFormat reports whether value only contains letters, digits,
// spaces, '_' or '$' and does not start with a digit. The empty string is
// accepted; Required reports it.
func IdentifierFormat(value string) bool {
	if value == "" {
		return true
	}
	return identifierPattern.MatchString(value)
}

// IdentifierLength reports whether the snake_case form of value fits in
// MaxIdentifierLength.
func IdentifierLength(value string) bool {
	return len(SnakeCase(value)) <= MaxIdentifierLength
}

// SnakeCase converts a display name to the identifier it becomes in SQL.
// Runs of capitals stay one word: "HTTPServer" is http_server and
// "Customer ID" is customer_id.
func SnakeCase(value string) string {
	return strcase.ToSnake(strings.TrimSpace(value))
}

// UniqueModelName reports whether no other model in siblings has the same
// normalized name. Identity is the model ID; an unsaved model matches no
// sibling by identity, so a sibling with its name is always a conflict.
func UniqueModelName(model types.Model, siblings []types.Model) bool {
	norm := normalize(model.Name)
	for _, s := range siblings {
		if model.ID != "" && s.ID == model.ID {
			continue
		}
		if normalize(s.Name) == norm {
			return false
		}
	}
	return true
}

// UniqueFieldName reports whether no other field in siblings has the same
// normalized name. A field still being composed has ID 0 and so is compared
// against every sibling.
func UniqueFieldName(field types.Field, siblings []types.Field) bool {
	norm := normalize(field.Name)
	for _, s := range siblings {
		if field.ID != 0 && s.ID == field.ID {
			continue
		}
		if normalize(s.Name) == norm {
			return false
		}
	}
	return true
}

func normalize(name string) string {
	return SnakeCase(name)
}
