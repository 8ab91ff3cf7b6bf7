package command

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/modeleditor/internal/session"
	"github.com/matthewbaird/modeleditor/internal/types"
)

func TestParse_Actions(t *testing.T) {
	tests := []struct {
		line string
		want session.Action
	}{
		{"save", session.Action{Type: session.ActionSave}},
		{"  Commit_Field  ", session.Action{Type: session.ActionCommitField}},
		{`set_name "Order Line"`, session.Action{Type: session.ActionSetName, Value: json.RawMessage(`"Order Line"`)}},
		{`set_name customers`, session.Action{Type: session.ActionSetName, Value: json.RawMessage(`"customers"`)}},
		{`edit_new_field name "email"`, session.Action{Type: session.ActionEditNewField, Attr: "name", Value: json.RawMessage(`"email"`)}},
		{`edit_new_field type DateTime`, session.Action{Type: session.ActionEditNewField, Attr: "type", Value: json.RawMessage(`"datetime"`)}},
		{`edit_new_field type null`, session.Action{Type: session.ActionEditNewField, Attr: "type", Value: json.RawMessage(`null`)}},
		{`edit_field 7 required true`, session.Action{Type: session.ActionEditField, FieldID: 7, Attr: "required", Value: json.RawMessage(`true`)}},
		{`delete_field 3`, session.Action{Type: session.ActionDeleteField, FieldID: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, err := Parse(tt.line)
			require.NoError(t, err)
			require.NotNil(t, cmd.Action)
			assert.Equal(t, tt.want, *cmd.Action)
			assert.Empty(t, cmd.Meta)
		})
	}
}

func TestParse_Meta(t *testing.T) {
	cmd, err := Parse(":help names")
	require.NoError(t, err)
	assert.Nil(t, cmd.Action)
	assert.Equal(t, ":help", cmd.Meta)
	assert.Equal(t, []string{"names"}, cmd.Args)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"", "empty command"},
		{"comit_field", "did you mean 'commit_field'?"},
		{"42", "expected an action"},
		{"delete_field", "expected field id"},
		{"delete_field 0", "invalid field id"},
		{"edit_new_field nme x", "did you mean 'name'?"},
		{"edit_new_field type integr", "did you mean 'integer'?"},
		{"edit_new_field unique yes", "unique expects true or false"},
		{"save now", `unexpected identifier "now" after save`},
		{`set_name "x`, "unterminated string"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := Parse(tt.line)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_ErrorPosition(t *testing.T) {
	_, err := Parse("edit_field 2 colour true")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.Line)
	assert.Equal(t, 14, perr.Col)
}

func TestParse_AppliesToSession(t *testing.T) {
	cmd, err := Parse("edit_new_field type uuid")
	require.NoError(t, err)

	var dt types.DataType
	require.NoError(t, json.Unmarshal(cmd.Action.Value, &dt))
	assert.Equal(t, types.UUID, dt)
}
