package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/modeleditor/internal/event"
	"github.com/matthewbaird/modeleditor/internal/store"
	"github.com/matthewbaird/modeleditor/internal/types"
	"github.com/matthewbaird/modeleditor/internal/validate"
)

type fakeBus struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (b *fakeBus) Publish(_ context.Context, evt event.DomainEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
}

func raw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func newManager(t *testing.T) (*Manager, *store.MemoryStore, *fakeBus) {
	t.Helper()
	st := store.NewMemoryStore()
	bus := &fakeBus{}
	return NewManager(st, bus, time.Hour, 10*time.Minute), st, bus
}

func TestSession_CreateModelFlow(t *testing.T) {
	ctx := context.Background()
	m, st, bus := newManager(t)

	sess, err := m.Begin(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	assert.Same(t, sess, m.Get(sess.ID))

	steps := []Action{
		{Type: ActionSetName, Value: raw("Customer")},
		{Type: ActionStartField},
		{Type: ActionEditNewField, Attr: "name", Value: raw("id")},
		{Type: ActionEditNewField, Attr: "type", Value: raw("integer")},
		{Type: ActionEditNewField, Attr: "primary_key", Value: raw(true)},
		{Type: ActionCommitField},
	}
	for _, a := range steps {
		_, err := sess.Apply(ctx, a)
		require.NoError(t, err, a.String())
	}

	out, err := sess.Apply(ctx, Action{Type: ActionSave})
	require.NoError(t, err)
	require.NotNil(t, out.Saved)
	assert.NotEmpty(t, out.Saved.ID)
	assert.False(t, out.Cancelled)
	assert.True(t, sess.Closed())
	assert.Nil(t, m.Get(sess.ID))

	stored, err := st.GetModel(ctx, out.Saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Customer", stored.Name)
	require.Len(t, stored.Fields, 1)
	assert.Equal(t, types.FieldID(1), stored.Fields[0].ID)

	next, _ := st.NextFieldID(ctx)
	assert.Equal(t, types.FieldID(2), next)

	require.Len(t, bus.events, 1)
	assert.Equal(t, "model_created", bus.events[0].EventType)

	_, err = sess.Apply(ctx, Action{Type: ActionStartField})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSession_EditExistingPublishesUpdate(t *testing.T) {
	ctx := context.Background()
	m, st, bus := newManager(t)
	saved, err := st.SaveModel(ctx, types.Model{Name: "Order", Fields: []types.Field{{ID: 1, Name: "id", Type: types.UUID}}}, 2)
	require.NoError(t, err)

	sess, err := m.Begin(ctx, saved.ID)
	require.NoError(t, err)

	_, err = sess.Apply(ctx, Action{Type: ActionEditField, FieldID: 1, Attr: "required", Value: raw(true)})
	require.NoError(t, err)
	out, err := sess.Apply(ctx, Action{Type: ActionSave})
	require.NoError(t, err)
	assert.Equal(t, saved.ID, out.Saved.ID)
	assert.True(t, out.Saved.Fields[0].Required)

	require.Len(t, bus.events, 1)
	assert.Equal(t, "model_updated", bus.events[0].EventType)
}

func TestSession_SaveBlockedByDuplicateName(t *testing.T) {
	ctx := context.Background()
	m, st, bus := newManager(t)
	_, err := st.SaveModel(ctx, types.Model{Name: "Customer"}, 1)
	require.NoError(t, err)

	sess, err := m.Begin(ctx, "")
	require.NoError(t, err)
	_, err = sess.Apply(ctx, Action{Type: ActionSetName, Value: raw(" Customer ")})
	require.NoError(t, err)

	out, err := sess.Apply(ctx, Action{Type: ActionSave})
	require.Error(t, err)
	assert.True(t, errors.Is(err, validate.ErrInvalid))
	assert.Nil(t, out.Saved)
	assert.Equal(t, []validate.ErrorCode{validate.UniqueName}, out.State.ModelErrors.Codes)
	assert.False(t, sess.Closed())
	assert.Empty(t, bus.events)

	models, _ := st.ListModels(ctx)
	assert.Len(t, models, 1)
}

func TestSession_SaveRechecksNameAgainstStore(t *testing.T) {
	ctx := context.Background()
	m, st, bus := newManager(t)

	first, err := m.Begin(ctx, "")
	require.NoError(t, err)
	second, err := m.Begin(ctx, "")
	require.NoError(t, err)
	for _, sess := range []*Session{first, second} {
		_, err = sess.Apply(ctx, Action{Type: ActionSetName, Value: raw("Customer")})
		require.NoError(t, err)
	}

	_, err = first.Apply(ctx, Action{Type: ActionSave})
	require.NoError(t, err)

	out, err := second.Apply(ctx, Action{Type: ActionSave})
	require.Error(t, err)
	assert.True(t, errors.Is(err, validate.ErrInvalid))
	assert.Equal(t, []validate.ErrorCode{validate.UniqueName}, out.State.ModelErrors.Codes)
	assert.False(t, second.Closed())

	_, err = second.Apply(ctx, Action{Type: ActionSetName, Value: raw("Client")})
	require.NoError(t, err)
	out, err = second.Apply(ctx, Action{Type: ActionSave})
	require.NoError(t, err)
	assert.Equal(t, "Client", out.Saved.Name)

	models, _ := st.ListModels(ctx)
	assert.Len(t, models, 2)
	assert.Len(t, bus.events, 2)
}

func TestSession_SaveAfterModelDeleted(t *testing.T) {
	ctx := context.Background()
	m, st, bus := newManager(t)
	saved, err := st.SaveModel(ctx, types.Model{Name: "Order", Fields: []types.Field{}}, 1)
	require.NoError(t, err)

	sess, err := m.Begin(ctx, saved.ID)
	require.NoError(t, err)
	require.NoError(t, st.DeleteModel(ctx, saved.ID))

	out, err := sess.Apply(ctx, Action{Type: ActionSave})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.Nil(t, out.Saved)
	assert.Empty(t, bus.events)

	models, _ := st.ListModels(ctx)
	assert.Empty(t, models)
}

func TestSession_ConcurrentFieldIDs(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newManager(t)

	var saved []*types.Model
	sessions := map[string]*Session{}
	for _, name := range []string{"Customer", "Order"} {
		sess, err := m.Begin(ctx, "")
		require.NoError(t, err)
		sessions[name] = sess
		for _, a := range []Action{
			{Type: ActionStartField},
			{Type: ActionEditNewField, Attr: "name", Value: raw("id")},
			{Type: ActionEditNewField, Attr: "type", Value: raw("uuid")},
			{Type: ActionCommitField},
			{Type: ActionSetName, Value: raw(name)},
		} {
			_, err := sess.Apply(ctx, a)
			require.NoError(t, err, a.Type)
		}
	}
	for _, name := range []string{"Customer", "Order"} {
		out, err := sessions[name].Apply(ctx, Action{Type: ActionSave})
		require.NoError(t, err)
		saved = append(saved, out.Saved)
	}

	assert.Equal(t, types.FieldID(1), saved[0].Fields[0].ID)
	assert.Equal(t, types.FieldID(2), saved[1].Fields[0].ID)
	next, err := st.NextFieldID(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.FieldID(3), next)
}

func TestSession_Cancel(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t)
	sess, err := m.Begin(ctx, "")
	require.NoError(t, err)

	out, err := sess.Apply(ctx, Action{Type: ActionCancel})
	require.NoError(t, err)
	assert.True(t, out.Cancelled)
	assert.Nil(t, m.Get(sess.ID))
}

func TestSession_BadActions(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t)
	sess, err := m.Begin(ctx, "")
	require.NoError(t, err)

	_, err = sess.Apply(ctx, Action{Type: "explode"})
	assert.Error(t, err)
	_, err = sess.Apply(ctx, Action{Type: ActionCommitField})
	assert.Error(t, err)
	_, err = sess.Apply(ctx, Action{Type: ActionDeleteField, FieldID: 9})
	assert.Error(t, err)
	_, err = sess.Apply(ctx, Action{Type: ActionSetName, Value: raw(12)})
	assert.Error(t, err)

	assert.Len(t, sess.HistoryEntries(), 4)
	assert.False(t, sess.Closed())
}

func TestManager_BeginUnknownModel(t *testing.T) {
	m, _, _ := newManager(t)
	_, err := m.Begin(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestManager_Cleanup(t *testing.T) {
	st := store.NewMemoryStore()
	m := NewManager(st, nil, time.Hour, time.Millisecond)
	sess, err := m.Begin(context.Background(), "")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	m.Cleanup()
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Get(sess.ID))
}

func TestSession_ConcurrentApplySerialized(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t)
	sess, err := m.Begin(ctx, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Apply(ctx, Action{Type: ActionSetName, Value: raw("Customer")})
			sess.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, sess.Snapshot().Actions)
	assert.Equal(t, "Customer", sess.State().Model.Name)
}
