package meta

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/modeleditor/internal/session"
	"github.com/matthewbaird/modeleditor/internal/store"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	m := session.NewManager(store.NewMemoryStore(), nil, time.Hour, time.Hour)
	sess, err := m.Begin(context.Background(), "")
	require.NoError(t, err)
	return sess
}

func TestExecute_Help(t *testing.T) {
	h := New()
	res, err := h.Execute(nil, ":help", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "commit_field")

	res, err = h.Execute(nil, "help", []string{"names"})
	require.NoError(t, err)
	assert.Contains(t, res.Output, "63")
}

func TestExecute_Unknown(t *testing.T) {
	_, err := New().Execute(nil, ":nope", nil)
	assert.ErrorContains(t, err, "unknown meta-command ':nope'")
}

func TestExecute_HistoryAndEnv(t *testing.T) {
	h := New()
	sess := newSession(t)

	res, err := h.Execute(sess, ":history", nil)
	require.NoError(t, err)
	assert.Equal(t, "(no history)", res.Output)

	_, err = sess.Apply(context.Background(), session.Action{Type: session.ActionStartField})
	require.NoError(t, err)

	res, err = h.Execute(sess, ":history", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "start_field")

	res, err = h.Execute(sess, ":env", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "Model: (new)")
	assert.Contains(t, res.Output, "Actions: 1")
}

func TestExecute_ModelShowsErrors(t *testing.T) {
	h := New()
	sess := newSession(t)
	ctx := context.Background()

	_, err := sess.Apply(ctx, session.Action{Type: session.ActionStartField})
	require.NoError(t, err)
	_, err = sess.Apply(ctx, session.Action{Type: session.ActionEditNewField, Attr: "name", Value: json.RawMessage(`"id"`)})
	require.NoError(t, err)
	_, err = sess.Apply(ctx, session.Action{Type: session.ActionCommitField})
	require.Error(t, err)

	res, err := h.Execute(sess, ":model", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "Model: (unnamed)")
	assert.Contains(t, res.Output, "Type is required.")
	assert.NotContains(t, res.Output, "Ready to save.")
}

func TestExecute_Types(t *testing.T) {
	res, err := New().Execute(nil, ":types", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "integer")
	assert.Contains(t, res.Output, "Date & Time")
}

func TestExecute_NeedsSession(t *testing.T) {
	_, err := New().Execute(nil, ":model", nil)
	assert.ErrorContains(t, err, "needs an open session")
}
