package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matthewbaird/modeleditor/internal/types"
)

// ErrorCode identifies a failed validation rule.
type ErrorCode int

const (
	UniqueName ErrorCode = iota + 1
	NameFormat
	RequiredName
	NameLength
	RequiredType // fields only
)

// String returns the wire form of the code, e.g. "UNIQUE_NAME_ERROR".
func (c ErrorCode) String() string {
	switch c {
	case UniqueName:
		return "UNIQUE_NAME_ERROR"
	case NameFormat:
		return "NAME_FORMAT_ERROR"
	case RequiredName:
		return "REQUIRED_NAME_ERROR"
	case NameLength:
		return "NAME_LENGTH_ERROR"
	case RequiredType:
		return "REQUIRED_TYPE_ERROR"
	default:
		return fmt.Sprintf("ERROR_%d", int(c))
	}
}

// MarshalText encodes the code by name so error lists serialize readably.
func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a code produced by MarshalText.
func (c *ErrorCode) UnmarshalText(text []byte) error {
	for _, code := range []ErrorCode{UniqueName, NameFormat, RequiredName, NameLength, RequiredType} {
		if code.String() == string(text) {
			*c = code
			return nil
		}
	}
	return fmt.Errorf("unknown error code %q", text)
}

// FallbackMessage is shown for any code without a dedicated message.
const FallbackMessage = "Sorry, something went wrong."

// Message returns the human-readable text for a code.
func Message(c ErrorCode) string {
	switch c {
	case UniqueName:
		return "Name already taken."
	case NameFormat:
		return "Name can only contain letters, numbers, spaces, _ or $ and cannot start with a number."
	case RequiredName:
		return "Name is required."
	case NameLength:
		return fmt.Sprintf("Name cannot be more than %d characters when converted to snake_case.", MaxIdentifierLength)
	case RequiredType:
		return "Type is required."
	default:
		return FallbackMessage
	}
}

// Messages maps codes to messages, preserving order.
func Messages(codes []ErrorCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = Message(c)
	}
	return out
}

// rule pairs an error code with the outcome of its validator. Adding a rule
// means adding an entry; callers only see the resulting codes.
type rule struct {
	code  ErrorCode
	valid bool
}

func failed(rules []rule) []ErrorCode {
	codes := []ErrorCode{}
	for _, r := range rules {
		if !r.valid {
			codes = append(codes, r.code)
		}
	}
	return codes
}

// ValidateModel returns the failed codes for model, checked against the full
// model list.
func ValidateModel(model types.Model, models []types.Model) []ErrorCode {
	return failed([]rule{
		{UniqueName, UniqueModelName(model, models)},
		{NameFormat, IdentifierFormat(model.Name)},
		{RequiredName, Required(model.Name)},
		{NameLength, IdentifierLength(model.Name)},
	})
}

// ValidateField returns the failed codes for field, checked against the
// fields of its model.
func ValidateField(field types.Field, fields []types.Field) []ErrorCode {
	return failed([]rule{
		{UniqueName, UniqueFieldName(field, fields)},
		{NameFormat, IdentifierFormat(field.Name)},
		{RequiredName, Required(field.Name)},
		{NameLength, IdentifierLength(field.Name)},
		{RequiredType, TypeSet(field.Type)},
	})
}

// FormatField trims the field name.
func FormatField(f types.Field) types.Field {
	f.Name = strings.TrimSpace(f.Name)
	return f
}

// FormatModel returns a copy of m with the model name and every field name
// trimmed.
func FormatModel(m types.Model) types.Model {
	out := m.Clone()
	out.Name = strings.TrimSpace(out.Name)
	for i := range out.Fields {
		out.Fields[i] = FormatField(out.Fields[i])
	}
	return out
}

// FieldReport holds the codes for one field.
type FieldReport struct {
	FieldID  types.FieldID `json:"field_id"`
	Name     string        `json:"name"`
	Codes    []ErrorCode   `json:"codes"`
	Messages []string      `json:"messages"`
}

// Report is the outcome of validating a whole model.
type Report struct {
	Model         []ErrorCode   `json:"model"`
	ModelMessages []string      `json:"model_messages"`
	Fields        []FieldReport `json:"fields"`
}

// Check formats model and validates it and every field eagerly. Each field
// is compared with the other fields by position, so fields posted without
// ids do not collide with themselves.
func Check(model types.Model, models []types.Model) (types.Model, Report) {
	formatted := FormatModel(model)
	rep := Report{Model: ValidateModel(formatted, models)}
	for i, f := range formatted.Fields {
		rep.AddField(f, ValidateField(f, otherFields(formatted.Fields, i)))
	}
	rep.ModelMessages = Messages(rep.Model)
	return formatted, rep
}

func otherFields(fields []types.Field, skip int) []types.Field {
	out := make([]types.Field, 0, len(fields)-1)
	out = append(out, fields[:skip]...)
	return append(out, fields[skip+1:]...)
}

// AddField appends the codes for f. Fields without codes are kept so the
// report lists every field that was checked.
func (r *Report) AddField(f types.Field, codes []ErrorCode) {
	r.Fields = append(r.Fields, FieldReport{
		FieldID:  f.ID,
		Name:     f.Name,
		Codes:    codes,
		Messages: Messages(codes),
	})
}

// OK reports whether nothing failed.
func (r Report) OK() bool {
	if len(r.Model) > 0 {
		return false
	}
	for _, f := range r.Fields {
		if len(f.Codes) > 0 {
			return false
		}
	}
	return true
}

// Err returns a *ValidationError for a failing report and nil otherwise.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Report: r}
}

// ErrInvalid is wrapped by every ValidationError.
var ErrInvalid = errors.New("validation failed")

// ValidationError carries every outstanding code, not just the first.
type ValidationError struct {
	Report Report
}

func (e *ValidationError) Error() string {
	var parts []string
	for _, c := range e.Report.Model {
		parts = append(parts, "model: "+c.String())
	}
	for _, f := range e.Report.Fields {
		for _, c := range f.Codes {
			parts = append(parts, fmt.Sprintf("field %d (%s): %s", f.FieldID, f.Name, c))
		}
	}
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }
