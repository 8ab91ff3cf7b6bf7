package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/modeleditor/internal/types"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "models.db") + "?_pragma=foreign_keys(1)"
	sqlStore, err := OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { sqlStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlStore,
	}
}

func customer() types.Model {
	return types.Model{
		Name: "Customer",
		Fields: []types.Field{
			{ID: 1, Name: "id", Type: types.Integer, PrimaryKey: true, Required: true},
			{ID: 2, Name: "email", Type: types.String, Unique: true},
			{ID: 3, Name: "notes"},
		},
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			saved, err := s.SaveModel(ctx, customer(), 4)
			require.NoError(t, err)
			require.NotEmpty(t, saved.ID)

			got, err := s.GetModel(ctx, saved.ID)
			require.NoError(t, err)
			assert.Equal(t, saved, got)
			assert.Equal(t, types.Unset, got.Fields[2].Type)

			next, err := s.NextFieldID(ctx)
			require.NoError(t, err)
			assert.Equal(t, types.FieldID(4), next)
		})
	}
}

func TestStore_UpdateReplacesFields(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			saved, err := s.SaveModel(ctx, customer(), 4)
			require.NoError(t, err)

			saved.Name = "Client"
			saved.Fields = []types.Field{saved.Fields[1], {ID: 4, Name: "phone", Type: types.Text}}
			_, err = s.SaveModel(ctx, saved, 5)
			require.NoError(t, err)

			got, err := s.GetModel(ctx, saved.ID)
			require.NoError(t, err)
			assert.Equal(t, "Client", got.Name)
			require.Len(t, got.Fields, 2)
			assert.Equal(t, "email", got.Fields[0].Name)
			assert.Equal(t, types.FieldID(4), got.Fields[1].ID)
		})
	}
}

func TestStore_CounterNeverDecreases(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			next, err := s.NextFieldID(ctx)
			require.NoError(t, err)
			assert.Equal(t, types.FieldID(1), next)

			_, err = s.SaveModel(ctx, types.Model{Name: "A", Fields: []types.Field{}}, 10)
			require.NoError(t, err)
			_, err = s.SaveModel(ctx, types.Model{Name: "B", Fields: []types.Field{}}, 3)
			require.NoError(t, err)

			next, err = s.NextFieldID(ctx)
			require.NoError(t, err)
			assert.Equal(t, types.FieldID(10), next)
		})
	}
}

func TestStore_ListOrderedByName(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, n := range []string{"Order", "Customer", "Invoice"} {
				_, err := s.SaveModel(ctx, types.Model{Name: n}, 1)
				require.NoError(t, err)
			}

			models, err := s.ListModels(ctx)
			require.NoError(t, err)
			require.Len(t, models, 3)
			assert.Equal(t, "Customer", models[0].Name)
			assert.Equal(t, "Invoice", models[1].Name)
			assert.Equal(t, "Order", models[2].Name)
			for _, m := range models {
				assert.NotNil(t, m.Fields)
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			saved, err := s.SaveModel(ctx, customer(), 4)
			require.NoError(t, err)
			require.NoError(t, s.DeleteModel(ctx, saved.ID))

			_, err = s.GetModel(ctx, saved.ID)
			assert.True(t, errors.Is(err, ErrNotFound))
			assert.True(t, errors.Is(s.DeleteModel(ctx, saved.ID), ErrNotFound))

			models, err := s.ListModels(ctx)
			require.NoError(t, err)
			assert.Empty(t, models)
		})
	}
}

func TestStore_SaveDeletedModel(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			saved, err := s.SaveModel(ctx, customer(), 4)
			require.NoError(t, err)
			require.NoError(t, s.DeleteModel(ctx, saved.ID))

			saved.Name = "Client"
			_, err = s.SaveModel(ctx, saved, 5)
			assert.True(t, errors.Is(err, ErrNotFound))

			models, err := s.ListModels(ctx)
			require.NoError(t, err)
			assert.Empty(t, models)
		})
	}
}

func TestStore_ListEmpty(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			models, err := s.ListModels(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, models)
			assert.Len(t, models, 0)
		})
	}
}
