// Package catalog reads model definitions written in CUE and loads them into
// a store. A catalog looks like:
//
//	models: {
//		users: fields: [
//			{name: "id", type: "uuid", primary_key: true},
//			{name: "email", type: "string", required: true, unique: true},
//		]
//	}
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/matthewbaird/modeleditor/internal/event"
	"github.com/matthewbaird/modeleditor/internal/store"
	"github.com/matthewbaird/modeleditor/internal/types"
	"github.com/matthewbaird/modeleditor/internal/validate"
)

type fieldDef struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key"`
	Required   bool   `json:"required"`
	Unique     bool   `json:"unique"`
}

type modelDef struct {
	Fields []fieldDef `json:"fields"`
}

// Load reads and parses the CUE file at path.
func Load(path string) ([]types.Model, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	models, err := Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return models, nil
}

// Parse compiles src and returns its models in declaration order. Field ids
// are numbered from 1 across the whole catalog; Import renumbers them.
func Parse(src []byte) ([]types.Model, error) {
	ctx := cuecontext.New()
	val := ctx.CompileBytes(src)
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("compiling catalog: %w", err)
	}

	modelsVal := val.LookupPath(cue.ParsePath("models"))
	if !modelsVal.Exists() {
		return nil, errors.New("catalog has no models")
	}
	iter, err := modelsVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("reading models: %w", err)
	}

	var models []types.Model
	next := types.FieldID(1)
	for iter.Next() {
		name := iter.Selector().Unquoted()
		var def modelDef
		if err := iter.Value().Decode(&def); err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}

		m := types.Model{Name: name, Fields: make([]types.Field, 0, len(def.Fields))}
		for i, fd := range def.Fields {
			dt, err := types.ParseDataType(fd.Type)
			if err != nil {
				return nil, fmt.Errorf("model %s field %d (%s): %w", name, i, fd.Name, err)
			}
			m.Fields = append(m.Fields, types.Field{
				ID:         next,
				Name:       fd.Name,
				Type:       dt,
				PrimaryKey: fd.PrimaryKey,
				Required:   fd.Required,
				Unique:     fd.Unique,
			})
			next++
		}
		models = append(models, m)
	}
	return models, nil
}

// Validate checks every model against the rest of the catalog and returns
// all failures joined.
func Validate(models []types.Model) error {
	var errs []error
	for i, m := range models {
		others := make([]types.Model, 0, len(models)-1)
		others = append(others, models[:i]...)
		others = append(others, models[i+1:]...)
		if _, rep := validate.Check(m, others); !rep.OK() {
			errs = append(errs, fmt.Errorf("model %q: %w", m.Name, rep.Err()))
		}
	}
	return errors.Join(errs...)
}

// Import saves every model whose name is not already stored. Fields are
// renumbered from the store's counter. A model_created event is published
// for each saved model when pub is not nil. It returns the models it saved.
func Import(ctx context.Context, st store.Store, models []types.Model, pub event.Publisher) ([]types.Model, error) {
	existing, err := st.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	next, err := st.NextFieldID(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading field counter: %w", err)
	}

	var saved []types.Model
	for _, m := range models {
		if hasName(existing, m.Name) {
			log.Printf("catalog: model %q already stored, skipping", m.Name)
			continue
		}
		m = m.Clone()
		m.ID = ""
		for i := range m.Fields {
			m.Fields[i].ID = next
			next++
		}
		formatted, rep := validate.Check(m, existing)
		if !rep.OK() {
			return saved, fmt.Errorf("model %q: %w", m.Name, rep.Err())
		}
		stored, err := st.SaveModel(ctx, formatted, next)
		if err != nil {
			return saved, fmt.Errorf("saving model %q: %w", m.Name, err)
		}
		if pub != nil {
			pub.Publish(ctx, event.NewModelCreated(stored, next))
		}
		existing = append(existing, stored)
		saved = append(saved, stored)
	}
	return saved, nil
}

func hasName(models []types.Model, name string) bool {
	norm := validate.SnakeCase(name)
	for _, m := range models {
		if validate.SnakeCase(m.Name) == norm {
			return true
		}
	}
	return false
}
