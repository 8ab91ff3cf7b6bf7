// Package meta handles session meta-commands (:help, :env, :history,
// :model, :types).
package meta

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/matthewbaird/modeleditor/internal/editor"
	"github.com/matthewbaird/modeleditor/internal/session"
	"github.com/matthewbaird/modeleditor/internal/types"
	"github.com/matthewbaird/modeleditor/internal/validate"
)

// Handler dispatches meta-commands.
type Handler struct{}

// New creates a meta-command handler.
func New() *Handler {
	return &Handler{}
}

// Names lists every meta-command.
var Names = []string{":help", ":env", ":history", ":model", ":types"}

// Result is the output of a meta-command execution.
type Result struct {
	Output string `json:"output"`
}

// Execute runs a meta-command and returns the result. command may carry a
// leading ':'.
func (h *Handler) Execute(sess *session.Session, command string, args []string) (*Result, error) {
	name := strings.TrimPrefix(command, ":")
	switch name {
	case "env", "history", "model":
		if sess == nil {
			return nil, fmt.Errorf(":%s needs an open session", name)
		}
	}

	switch name {
	case "help":
		return h.help(args)
	case "env":
		return h.env(sess)
	case "history":
		return h.history(sess)
	case "model":
		return h.model(sess)
	case "types":
		return h.types()
	default:
		return nil, fmt.Errorf("unknown meta-command ':%s'. Type :help for available commands", name)
	}
}

func (h *Handler) help(args []string) (*Result, error) {
	if len(args) > 0 {
		return h.helpTopic(args[0])
	}

	help := `Model editor

Actions:
  set_name "<name>"                      Rename the model
  start_field                            Start composing a new field
  edit_new_field <attr> <value>          Change the field being composed
  commit_field                           Validate and add the new field
  cancel_field                           Discard the new field
  edit_field <id> <attr> <value>         Change an existing field
  delete_field <id>                      Remove a field
  save                                   Validate everything and save
  cancel                                 Leave without saving

Attributes: name, type, primary_key, required, unique

Meta-commands:
  :help [topic]    Show help
  :env             Show session info
  :history         Show applied actions
  :model           Describe the draft and its errors
  :types           List data types`

	return &Result{Output: help}, nil
}

func (h *Handler) helpTopic(topic string) (*Result, error) {
	switch topic {
	case "save":
		return &Result{Output: "save\n\nTrims every name, validates the model and all fields, and saves only if nothing fails."}, nil
	case "commit_field":
		return &Result{Output: "commit_field\n\nValidates the field being composed. On success it is added with the next field id."}, nil
	case "names":
		return &Result{Output: fmt.Sprintf("Names may contain letters, numbers, spaces, _ and $, must not start with a number, and must be at most %d characters in snake_case.", validate.MaxIdentifierLength)}, nil
	default:
		return &Result{Output: fmt.Sprintf("No help available for '%s'", topic)}, nil
	}
}

func (h *Handler) env(sess *session.Session) (*Result, error) {
	snap := sess.Snapshot()
	model := snap.ModelID
	if model == "" {
		model = "(new)"
	}
	out := fmt.Sprintf("Session: %s\nModel: %s\nCreated: %s\nActions: %d\nNext field id: %d",
		snap.ID, model,
		humanize.Time(sess.CreatedAt),
		snap.Actions, snap.State.NextFieldID)
	return &Result{Output: out}, nil
}

func (h *Handler) history(sess *session.Session) (*Result, error) {
	entries := sess.HistoryEntries()
	if len(entries) == 0 {
		return &Result{Output: "(no history)"}, nil
	}

	var b strings.Builder
	for i, entry := range entries {
		fmt.Fprintf(&b, "%3d  %s\n", i+1, entry)
	}
	return &Result{Output: b.String()}, nil
}

func (h *Handler) model(sess *session.Session) (*Result, error) {
	return &Result{Output: Describe(sess.State())}, nil
}

func (h *Handler) types() (*Result, error) {
	var b strings.Builder
	for _, o := range types.Options()[1:] {
		fmt.Fprintf(&b, "  %-10s %s\n", o.Value, o.Label)
	}
	return &Result{Output: b.String()}, nil
}

// Describe renders a draft as text: the model name, a field table and every
// outstanding error message.
func Describe(st editor.State) string {
	var b strings.Builder
	name := st.Model.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(&b, "Model: %s\n", name)
	writeErrors(&b, "  ", st.ModelErrors)

	fmt.Fprintf(&b, "\nFields (%d):\n", len(st.Fields))
	for _, fs := range st.Fields {
		writeField(&b, fmt.Sprintf("#%d", fs.Field.ID), fs.Field)
		writeErrors(&b, "      ", fs.Errors)
	}
	if st.NewField != nil {
		writeField(&b, "new", *st.NewField)
		writeErrors(&b, "      ", st.NewFieldErrors)
	}
	if st.CanSave {
		b.WriteString("\nReady to save.\n")
	}
	return b.String()
}

func writeField(b *strings.Builder, label string, f types.Field) {
	typ := f.Type.String()
	if typ == "" {
		typ = "-"
	}
	var flags []string
	if f.PrimaryKey {
		flags = append(flags, "pk")
	}
	if f.Required {
		flags = append(flags, "required")
	}
	if f.Unique {
		flags = append(flags, "unique")
	}
	fmt.Fprintf(b, "  %-4s %-30s %-10s %s\n", label, f.Name, typ, strings.Join(flags, ","))
}

func writeErrors(b *strings.Builder, indent string, ev editor.ErrorView) {
	for _, msg := range ev.Messages {
		fmt.Fprintf(b, "%s! %s\n", indent, msg)
	}
}
