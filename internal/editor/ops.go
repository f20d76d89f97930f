package editor

import (
	"context"
	"fmt"

	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/mutate"
)

// operation computes a new document from the current one.
type operation func(doc *model.Document) (mutate.Result, error)

// mutation runs op as a command named name and returns its result.
func (e *Editor) mutation(ctx context.Context, name string, op operation) (mutate.Result, error) {
	var res mutate.Result
	err := e.Exec(ctx, Command{
		Name: name,
		Do: func(ctx context.Context) error {
			doc, err := e.store.GetDocument(ctx)
			if err != nil {
				return fmt.Errorf("get document: %w", err)
			}
			r, err := op(&doc)
			if err != nil {
				return err
			}
			res = r
			return e.apply(ctx, name, r)
		},
	})
	return res, err
}

func created(res mutate.Result) model.NodeRef {
	if res.Created == nil {
		return model.NodeRef{}
	}
	return *res.Created
}

// Resolve turns a raw node id into a reference against the current document.
func (e *Editor) Resolve(ctx context.Context, raw string) (model.NodeRef, error) {
	doc, err := e.store.GetDocument(ctx)
	if err != nil {
		return model.NodeRef{}, fmt.Errorf("get document: %w", err)
	}
	return model.ResolveRef(&doc, raw)
}

// AddTag appends a tag and returns its reference.
func (e *Editor) AddTag(ctx context.Context, t model.Tag) (model.NodeRef, error) {
	res, err := e.mutation(ctx, "addTag", func(d *model.Document) (mutate.Result, error) {
		return mutate.AddTag(d, t)
	})
	return created(res), err
}

// UpdateTag patches a tag.
func (e *Editor) UpdateTag(ctx context.Context, id string, patch mutate.TagPatch) error {
	_, err := e.mutation(ctx, "updateTag", func(d *model.Document) (mutate.Result, error) {
		return mutate.UpdateTag(d, id, patch)
	})
	return err
}

// RemoveTag deletes a tag and cascades its references.
func (e *Editor) RemoveTag(ctx context.Context, id string) error {
	_, err := e.mutation(ctx, "removeTag", func(d *model.Document) (mutate.Result, error) {
		return mutate.RemoveTag(d, id)
	})
	return err
}

// AddField appends a field and returns its reference.
func (e *Editor) AddField(ctx context.Context, f model.Field) (model.NodeRef, error) {
	res, err := e.mutation(ctx, "addField", func(d *model.Document) (mutate.Result, error) {
		return mutate.AddField(d, f)
	})
	return created(res), err
}

// UpdateField patches a field.
func (e *Editor) UpdateField(ctx context.Context, id string, patch mutate.FieldPatch) error {
	_, err := e.mutation(ctx, "updateField", func(d *model.Document) (mutate.Result, error) {
		return mutate.UpdateField(d, id, patch)
	})
	return err
}

// RemoveField deletes a field and cascades its references.
func (e *Editor) RemoveField(ctx context.Context, id string) error {
	_, err := e.mutation(ctx, "removeField", func(d *model.Document) (mutate.Result, error) {
		return mutate.RemoveField(d, id)
	})
	return err
}

// AddOption appends an option to a field and returns its reference.
func (e *Editor) AddOption(ctx context.Context, fieldID string, o model.Option) (model.NodeRef, error) {
	res, err := e.mutation(ctx, "addOption", func(d *model.Document) (mutate.Result, error) {
		return mutate.AddOption(d, fieldID, o)
	})
	return created(res), err
}

// UpdateOption patches an option.
func (e *Editor) UpdateOption(ctx context.Context, fieldID, optionID string, patch mutate.OptionPatch) error {
	_, err := e.mutation(ctx, "updateOption", func(d *model.Document) (mutate.Result, error) {
		return mutate.UpdateOption(d, fieldID, optionID, patch)
	})
	return err
}

// RemoveOption deletes an option and prunes its keyed map entries.
func (e *Editor) RemoveOption(ctx context.Context, fieldID, optionID string) error {
	_, err := e.mutation(ctx, "removeOption", func(d *model.Document) (mutate.Result, error) {
		return mutate.RemoveOption(d, fieldID, optionID)
	})
	return err
}

// Remove deletes any node by reference.
func (e *Editor) Remove(ctx context.Context, ref model.NodeRef) error {
	switch ref.Kind {
	case model.KindTag:
		return e.RemoveTag(ctx, ref.ID)
	case model.KindField:
		return e.RemoveField(ctx, ref.ID)
	case model.KindOption:
		return e.RemoveOption(ctx, ref.FieldID, ref.ID)
	}
	return fmt.Errorf("remove %s: unsupported node kind %q", ref, ref.Kind)
}

// Duplicate copies a node, selects the copy in the view and returns its
// reference.
func (e *Editor) Duplicate(ctx context.Context, ref model.NodeRef, opts mutate.DuplicateOptions) (model.NodeRef, error) {
	res, err := e.mutation(ctx, "duplicate", func(d *model.Document) (mutate.Result, error) {
		return mutate.Duplicate(d, ref, opts)
	})
	if err != nil {
		return model.NodeRef{}, err
	}
	c := created(res)
	if e.view != nil && c.ID != "" {
		e.view.Select([]string{c.ID})
	}
	return c, nil
}

// PlaceTag moves a tag among its siblings.
func (e *Editor) PlaceTag(ctx context.Context, id string, p mutate.Placement) error {
	_, err := e.mutation(ctx, "placeNode", func(d *model.Document) (mutate.Result, error) {
		return mutate.PlaceTag(d, id, p)
	})
	return err
}

// PlaceField moves a field within a tag's field order.
func (e *Editor) PlaceField(ctx context.Context, tagID, fieldID string, p mutate.Placement) error {
	_, err := e.mutation(ctx, "placeNode", func(d *model.Document) (mutate.Result, error) {
		return mutate.PlaceField(d, tagID, fieldID, p)
	})
	return err
}

// PlaceOption moves an option within its field.
func (e *Editor) PlaceOption(ctx context.Context, fieldID, optionID string, p mutate.Placement) error {
	_, err := e.mutation(ctx, "placeOption", func(d *model.Document) (mutate.Result, error) {
		return mutate.PlaceOption(d, fieldID, optionID, p)
	})
	return err
}

// Connect adds an edge. Service edges are checked against the configured
// service checker or the store's capability map.
func (e *Editor) Connect(ctx context.Context, edge mutate.Edge) error {
	checker, err := e.serviceChecker(ctx)
	if err != nil {
		return err
	}
	_, err = e.mutation(ctx, "connect:"+string(edge.Kind), func(d *model.Document) (mutate.Result, error) {
		return mutate.Connect(d, edge, checker)
	})
	return err
}

// Disconnect removes an edge.
func (e *Editor) Disconnect(ctx context.Context, edge mutate.Edge) error {
	checker, err := e.serviceChecker(ctx)
	if err != nil {
		return err
	}
	_, err = e.mutation(ctx, "disconnect:"+string(edge.Kind), func(d *model.Document) (mutate.Result, error) {
		return mutate.Disconnect(d, edge, checker)
	})
	return err
}

// SetService assigns a service and/or pricing role. Stripped values are
// returned as diagnostics and emitted as editor:error events.
func (e *Editor) SetService(ctx context.Context, ref model.NodeRef, patch mutate.ServicePatch) ([]mutate.Diagnostic, error) {
	res, err := e.mutation(ctx, "setService", func(d *model.Document) (mutate.Result, error) {
		return mutate.SetService(d, ref, patch)
	})
	return res.Diagnostics, err
}
