package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/timeax/servicegraph/internal/editor"
	"github.com/timeax/servicegraph/internal/model"
	"github.com/timeax/servicegraph/internal/mutate"
)

// Step failure codes that do not come from a structural operation.
const (
	CodeUnresolved = "UNRESOLVED"
	CodeBadArgs    = "BAD_ARGS"
	CodeAborted    = "ABORTED"
	CodeOther      = "error"
)

var (
	errUnresolved = errors.New("unresolved node")
	errBadArgs    = errors.New("bad args")
	errAborted    = errors.New("transaction aborted")

	// ErrExpectation reports a step that behaved differently than declared.
	ErrExpectation = errors.New("step expectation not met")
)

// ErrorCode classifies a step failure: the structural operation's code when
// there is one, otherwise one of the harness codes.
func ErrorCode(err error) string {
	if code := mutate.CodeOf(err); code != "" {
		return string(code)
	}
	switch {
	case errors.Is(err, errUnresolved):
		return CodeUnresolved
	case errors.Is(err, errBadArgs):
		return CodeBadArgs
	case errors.Is(err, errAborted):
		return CodeAborted
	}
	return CodeOther
}

// Runner applies scenario steps to an editor.
type Runner struct {
	ed     *editor.Editor
	logger *slog.Logger

	violations int
}

// NewRunner creates a runner over ed.
func NewRunner(ed *editor.Editor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{ed: ed, logger: logger}
}

// Violations returns the violation count of the last validate step.
func (r *Runner) Violations() int {
	return r.violations
}

// Step runs one step and checks its declared expectations. A failure that
// matches ExpectError returns nil.
func (r *Runner) Step(ctx context.Context, step Step) error {
	moved, err := r.exec(ctx, step)

	switch {
	case err == nil && step.ExpectError != "":
		return fmt.Errorf("%w: %s succeeded, expected error %s", ErrExpectation, step.Op, step.ExpectError)
	case err != nil && step.ExpectError == "":
		return err
	case err != nil && step.ExpectError != AnyError && ErrorCode(err) != step.ExpectError:
		return fmt.Errorf("%w: %s failed with %s, expected %s: %v",
			ErrExpectation, step.Op, ErrorCode(err), step.ExpectError, err)
	}
	if err != nil {
		r.logger.Debug("step failed as expected", "op", step.Op, "code", ErrorCode(err))
		return nil
	}

	if step.Moved != nil && *step.Moved != moved {
		return fmt.Errorf("%w: %s moved=%t, expected %t", ErrExpectation, step.Op, moved, *step.Moved)
	}
	return nil
}

// exec dispatches step to the editor. moved is only meaningful for undo
// and redo.
func (r *Runner) exec(ctx context.Context, step Step) (moved bool, err error) {
	r.logger.Debug("step", "op", step.Op, "node", step.Node)

	switch step.Op {
	case OpAddTag:
		var a tagArgs
		if err := decode(step, &a); err != nil {
			return false, err
		}
		_, err := r.ed.AddTag(ctx, a.tag())
		return false, err

	case OpUpdateTag:
		var a tagPatchArgs
		if err := decode(step, &a); err != nil {
			return false, err
		}
		ref, err := r.resolve(ctx, step.Node, model.KindTag)
		if err != nil {
			return false, err
		}
		return false, r.ed.UpdateTag(ctx, ref.ID, a.patch())

	case OpAddField:
		var a fieldArgs
		if err := decode(step, &a); err != nil {
			return false, err
		}
		_, err := r.ed.AddField(ctx, a.field())
		return false, err

	case OpUpdateField:
		var a fieldPatchArgs
		if err := decode(step, &a); err != nil {
			return false, err
		}
		ref, err := r.resolve(ctx, step.Node, model.KindField)
		if err != nil {
			return false, err
		}
		return false, r.ed.UpdateField(ctx, ref.ID, a.patch())

	case OpAddOption:
		var a optionArgs
		if err := decode(step, &a); err != nil {
			return false, err
		}
		ref, err := r.resolve(ctx, step.Node, model.KindField)
		if err != nil {
			return false, err
		}
		_, err = r.ed.AddOption(ctx, ref.ID, a.option())
		return false, err

	case OpUpdateOption:
		var a optionPatchArgs
		if err := decode(step, &a); err != nil {
			return false, err
		}
		ref, err := r.resolve(ctx, step.Node, model.KindOption)
		if err != nil {
			return false, err
		}
		return false, r.ed.UpdateOption(ctx, ref.FieldID, ref.ID, a.patch())

	case OpRemove:
		ref, err := r.resolve(ctx, step.Node)
		if err != nil {
			return false, err
		}
		return false, r.ed.Remove(ctx, ref)

	case OpDuplicate:
		var a duplicateArgs
		if err := decode(step, &a); err != nil {
			return false, err
		}
		ref, err := r.resolve(ctx, step.Node)
		if err != nil {
			return false, err
		}
		_, err = r.ed.Duplicate(ctx, ref, a.options())
		return false, err

	case OpPlace:
		return false, r.place(ctx, step)

	case OpConnect, OpDisconnect:
		var a edgeArgs
		if err := decode(step, &a); err != nil {
			return false, err
		}
		edge, err := r.edge(ctx, a)
		if err != nil {
			return false, err
		}
		if step.Op == OpConnect {
			return false, r.ed.Connect(ctx, edge)
		}
		return false, r.ed.Disconnect(ctx, edge)

	case OpSetService:
		var a serviceArgs
		if err := decode(step, &a); err != nil {
			return false, err
		}
		ref, err := r.resolve(ctx, step.Node)
		if err != nil {
			return false, err
		}
		_, err = r.ed.SetService(ctx, ref, a.patch())
		return false, err

	case OpTransact:
		return false, r.ed.Transact(ctx, step.Label, func(ctx context.Context) error {
			for i, nested := range step.Steps {
				if err := r.Step(ctx, nested); err != nil {
					return fmt.Errorf("%s[%d]: %w", step.Label, i, err)
				}
			}
			if step.Fail {
				return fmt.Errorf("%w: %s", errAborted, step.Label)
			}
			return nil
		})

	case OpUndo:
		return r.ed.Undo(ctx)

	case OpRedo:
		return r.ed.Redo(ctx)

	case OpValidate:
		violations, err := r.ed.Validate(ctx)
		if err != nil {
			return false, err
		}
		r.violations = len(violations)
		return false, nil
	}

	return false, fmt.Errorf("%w: unknown op %q", errBadArgs, step.Op)
}

func (r *Runner) place(ctx context.Context, step Step) error {
	var a placeArgs
	if err := decode(step, &a); err != nil {
		return err
	}
	ref, err := r.resolve(ctx, step.Node)
	if err != nil {
		return err
	}

	switch ref.Kind {
	case model.KindTag:
		return r.ed.PlaceTag(ctx, ref.ID, a.placement())
	case model.KindField:
		if a.Tag == "" {
			return fmt.Errorf("%w: place %s: tag is required for fields", errBadArgs, ref)
		}
		return r.ed.PlaceField(ctx, a.Tag, ref.ID, a.placement())
	}
	return r.ed.PlaceOption(ctx, ref.FieldID, ref.ID, a.placement())
}

func (r *Runner) edge(ctx context.Context, a edgeArgs) (mutate.Edge, error) {
	kind, err := mutate.ParseEdgeKind(a.Kind)
	if err != nil {
		return mutate.Edge{}, fmt.Errorf("%w: %v", errBadArgs, err)
	}
	from, err := r.resolve(ctx, a.From)
	if err != nil {
		return mutate.Edge{}, err
	}
	if kind == mutate.EdgeService {
		if a.To == "" {
			return mutate.Edge{}, fmt.Errorf("%w: service edge needs a service id", errBadArgs)
		}
		return mutate.Edge{Kind: kind, From: from, To: model.ServiceRef(a.To)}, nil
	}
	to, err := r.resolve(ctx, a.To)
	if err != nil {
		return mutate.Edge{}, err
	}
	return mutate.Edge{Kind: kind, From: from, To: to}, nil
}

// resolve turns raw into a reference, optionally restricted to one kind.
func (r *Runner) resolve(ctx context.Context, raw string, kinds ...model.NodeKind) (model.NodeRef, error) {
	ref, err := r.ed.Resolve(ctx, raw)
	if err != nil {
		return model.NodeRef{}, fmt.Errorf("%w: %v", errUnresolved, err)
	}
	if len(kinds) > 0 && ref.Kind != kinds[0] {
		return model.NodeRef{}, fmt.Errorf("%w: %s is a %s, expected a %s", errUnresolved, raw, ref.Kind, kinds[0])
	}
	return ref, nil
}

func decode(step Step, out interface{}) error {
	if err := decodeArgs(step.Args, out); err != nil {
		return fmt.Errorf("%w: %s: %v", errBadArgs, step.Op, err)
	}
	return nil
}
