package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/modeleditor/internal/event"
	"github.com/matthewbaird/modeleditor/internal/store"
	"github.com/matthewbaird/modeleditor/internal/types"
	"github.com/matthewbaird/modeleditor/internal/validate"
)

type recordingPublisher struct {
	events []event.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt event.DomainEvent) {
	p.events = append(p.events, evt)
}

const shop = `
models: {
	customers: fields: [
		{name: "id", type: "uuid", primary_key: true},
		{name: "email", type: "string", required: true, unique: true},
	]
	orders: fields: [
		{name: "id", type: "bigint", primary_key: true},
		{name: "placed at", type: "datetime"},
	]
}
`

func TestParse(t *testing.T) {
	models, err := Parse([]byte(shop))
	require.NoError(t, err)
	require.Len(t, models, 2)

	assert.Equal(t, "customers", models[0].Name)
	assert.Equal(t, []types.Field{
		{ID: 1, Name: "id", Type: types.UUID, PrimaryKey: true},
		{ID: 2, Name: "email", Type: types.String, Required: true, Unique: true},
	}, models[0].Fields)

	assert.Equal(t, "orders", models[1].Name)
	assert.Equal(t, types.FieldID(3), models[1].Fields[0].ID)
	assert.Equal(t, types.DateTime, models[1].Fields[1].Type)
	assert.NoError(t, Validate(models))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `models: {`, "compiling catalog"},
		{"no models", `other: 1`, "catalog has no models"},
		{"bad type", `models: a: fields: [{name: "x", type: "integr"}]`, "did you mean 'integer'?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.cue")
	require.NoError(t, os.WriteFile(path, []byte(shop), 0o600))

	models, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, models, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.ErrorContains(t, err, "reading catalog")
}

func TestValidate_ReportsEveryModel(t *testing.T) {
	models := []types.Model{
		{Name: "Users", Fields: []types.Field{{ID: 1, Name: "id", Type: types.Integer}}},
		{Name: "users", Fields: []types.Field{{ID: 2, Name: "id"}}},
	}
	err := Validate(models)
	require.Error(t, err)
	assert.ErrorIs(t, err, validate.ErrInvalid)
	assert.Contains(t, err.Error(), `model "Users"`)
	assert.Contains(t, err.Error(), `model "users"`)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	_, err := st.SaveModel(ctx, types.Model{Name: "orders", Fields: []types.Field{}}, 10)
	require.NoError(t, err)

	models, err := Parse([]byte(shop))
	require.NoError(t, err)

	pub := &recordingPublisher{}
	saved, err := Import(ctx, st, models, pub)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "customers", saved[0].Name)
	assert.NotEmpty(t, saved[0].ID)
	assert.Equal(t, types.FieldID(10), saved[0].Fields[0].ID)
	assert.Equal(t, types.FieldID(11), saved[0].Fields[1].ID)

	next, err := st.NextFieldID(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.FieldID(12), next)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "model_created", pub.events[0].EventType)
	assert.Equal(t, saved[0].ID, pub.events[0].ModelID)

	again, err := Import(ctx, st, models, pub)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, pub.events, 1)
}

func TestImport_NilPublisher(t *testing.T) {
	models, err := Parse([]byte(shop))
	require.NoError(t, err)

	saved, err := Import(context.Background(), store.NewMemoryStore(), models, nil)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}
