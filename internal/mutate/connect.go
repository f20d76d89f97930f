package mutate

import (
	"fmt"

	"github.com/timeax/servicegraph/internal/model"
)

// EdgeKind names a connectable relation.
type EdgeKind string

const (
	EdgeBind    EdgeKind = "bind"
	EdgeInclude EdgeKind = "include"
	EdgeExclude EdgeKind = "exclude"
	EdgeService EdgeKind = "service"
)

// ParseEdgeKind validates a raw edge kind.
func ParseEdgeKind(s string) (EdgeKind, error) {
	switch k := EdgeKind(s); k {
	case EdgeBind, EdgeInclude, EdgeExclude, EdgeService:
		return k, nil
	}
	return "", fmt.Errorf("unknown edge kind %q", s)
}

// Edge is a relation between two nodes.
//
// Routes:
//   - bind tag→tag: From becomes the parent of To
//   - bind tag↔field: the field is bound to the tag
//   - include/exclude tag→field: the tag's field list
//   - include/exclude option→field: the option-keyed map
//   - include/exclude button field→field: the button-keyed map
//   - service tag|field|option→service: the node maps to the service
type Edge struct {
	Kind EdgeKind
	From model.NodeRef
	To   model.NodeRef
}

func (e Edge) String() string {
	return fmt.Sprintf("%s %s→%s", e.Kind, e.From, e.To)
}

// Connect adds an edge. Service edges need a checker to confirm the service exists.
func Connect(src *model.Document, e Edge, checker ServiceChecker) (Result, error) {
	const op = "connect"
	doc := src.Clone()
	res := Result{}

	if e.Kind == EdgeService {
		return connectService(src, e, checker)
	}
	if err := requireNodes(op, &doc, e); err != nil {
		return res, err
	}

	switch {
	case e.Kind == EdgeBind && e.From.Kind == model.KindTag && e.To.Kind == model.KindTag:
		if err := checkParent(op, &doc, e.To.ID, e.From.ID); err != nil {
			return res, err
		}
		doc.Tag(e.To.ID).ParentID = e.From.ID

	case e.Kind == EdgeBind && isTagField(e):
		tagID, fieldID := tagAndField(e)
		f := doc.Field(fieldID)
		if !f.Bind.Contains(tagID) {
			f.Bind = append(f.Bind, tagID)
		}
		if order, ok := doc.OrderForTags[tagID]; ok {
			doc.OrderForTags[tagID] = appendUnique(order, fieldID)
		}

	case isVisibility(e.Kind) && e.To.Kind == model.KindField:
		if err := connectVisibility(op, &doc, e); err != nil {
			return res, err
		}

	default:
		return res, unsupported(op, e)
	}

	res.Document = doc
	return res, nil
}

// Disconnect removes an edge. Removing an edge that is not present fails
// with NOT_FOUND.
func Disconnect(src *model.Document, e Edge, checker ServiceChecker) (Result, error) {
	const op = "disconnect"
	doc := src.Clone()
	res := Result{}

	if e.Kind == EdgeService {
		return disconnectService(src, e, checker)
	}
	if err := requireNodes(op, &doc, e); err != nil {
		return res, err
	}

	switch {
	case e.Kind == EdgeBind && e.From.Kind == model.KindTag && e.To.Kind == model.KindTag:
		to := doc.Tag(e.To.ID)
		if to.ParentID != e.From.ID {
			return res, edgeNotFound(op, e)
		}
		to.ParentID = ""

	case e.Kind == EdgeBind && isTagField(e):
		tagID, fieldID := tagAndField(e)
		f := doc.Field(fieldID)
		if !f.Bind.Contains(tagID) {
			return res, edgeNotFound(op, e)
		}
		f.Bind = model.TagBinding(without(f.Bind, tagID))
		doc.OrderForTags, _ = removeFromMap(doc.OrderForTags, tagID, fieldID)

	case isVisibility(e.Kind) && e.To.Kind == model.KindField:
		if err := disconnectVisibility(op, &doc, e); err != nil {
			return res, err
		}

	default:
		return res, unsupported(op, e)
	}

	res.Document = doc
	return res, nil
}

func connectVisibility(op string, d *model.Document, e Edge) error {
	include := e.Kind == EdgeInclude
	target := e.To.ID
	switch e.From.Kind {
	case model.KindTag:
		t := d.Tag(e.From.ID)
		if include {
			t.Includes = appendUnique(t.Includes, target)
		} else {
			t.Excludes = appendUnique(t.Excludes, target)
		}
	case model.KindOption:
		key := model.OptionKey(e.From.FieldID, e.From.ID)
		if include {
			d.IncludesForOptions = addToMap(d.IncludesForOptions, key, target)
		} else {
			d.ExcludesForOptions = addToMap(d.ExcludesForOptions, key, target)
		}
	case model.KindField:
		if !d.Field(e.From.ID).IsButton() {
			return unsupported(op, e)
		}
		if include {
			d.IncludesForButtons = addToMap(d.IncludesForButtons, e.From.ID, target)
		} else {
			d.ExcludesForButtons = addToMap(d.ExcludesForButtons, e.From.ID, target)
		}
	default:
		return unsupported(op, e)
	}
	return nil
}

func disconnectVisibility(op string, d *model.Document, e Edge) error {
	include := e.Kind == EdgeInclude
	target := e.To.ID
	var removed bool
	switch e.From.Kind {
	case model.KindTag:
		t := d.Tag(e.From.ID)
		list := &t.Excludes
		if include {
			list = &t.Includes
		}
		removed = contains(*list, target)
		*list = without(*list, target)
	case model.KindOption:
		m := &d.ExcludesForOptions
		if include {
			m = &d.IncludesForOptions
		}
		for _, key := range optionKeys(d, e.From.FieldID, e.From.ID) {
			var ok bool
			*m, ok = removeFromMap(*m, key, target)
			removed = removed || ok
		}
	case model.KindField:
		if !d.Field(e.From.ID).IsButton() {
			return unsupported(op, e)
		}
		m := &d.ExcludesForButtons
		if include {
			m = &d.IncludesForButtons
		}
		*m, removed = removeFromMap(*m, e.From.ID, target)
	default:
		return unsupported(op, e)
	}
	if !removed {
		return edgeNotFound(op, e)
	}
	return nil
}

func connectService(src *model.Document, e Edge, checker ServiceChecker) (Result, error) {
	const op = "connect"
	if err := checkService(op, e, checker); err != nil {
		return Result{}, err
	}
	if e.From.Kind == model.KindService {
		return Result{}, unsupported(op, e)
	}
	return SetService(src, e.From, ServicePatch{ServiceID: &e.To.ID})
}

func disconnectService(src *model.Document, e Edge, checker ServiceChecker) (Result, error) {
	const op = "disconnect"
	if err := checkService(op, e, checker); err != nil {
		return Result{}, err
	}
	if current, ok := serviceOf(src, e.From); !ok {
		if e.From.Kind == model.KindService {
			return Result{}, unsupported(op, e)
		}
		return Result{}, notFound(op, string(e.From.Kind), e.From.String())
	} else if current != e.To.ID {
		return Result{}, edgeNotFound(op, e)
	}
	empty := ""
	return SetService(src, e.From, ServicePatch{ServiceID: &empty})
}

func checkService(op string, e Edge, checker ServiceChecker) error {
	if checker == nil {
		return &OpError{Code: ErrCodeNoServiceChecker, Op: op, Message: "service edges need a service checker", Node: e.From.String()}
	}
	if e.To.Kind != model.KindService {
		return unsupported(op, e)
	}
	if !checker.HasService(e.To.ID) {
		return &OpError{Code: ErrCodeUnknownService, Op: op, Message: "service does not exist: " + e.To.ID, Node: e.From.String()}
	}
	return nil
}

func serviceOf(d *model.Document, ref model.NodeRef) (string, bool) {
	switch ref.Kind {
	case model.KindTag:
		if t := d.Tag(ref.ID); t != nil {
			return t.ServiceID, true
		}
	case model.KindField:
		if f := d.Field(ref.ID); f != nil {
			return f.ServiceID, true
		}
	case model.KindOption:
		if o := d.Option(ref.FieldID, ref.ID); o != nil {
			return o.ServiceID, true
		}
	}
	return "", false
}

func requireNodes(op string, d *model.Document, e Edge) error {
	for _, ref := range []model.NodeRef{e.From, e.To} {
		if ref.Kind == model.KindService {
			return unsupported(op, e)
		}
		if !ref.Exists(d) {
			return notFound(op, string(ref.Kind), ref.String())
		}
	}
	return nil
}

func isVisibility(k EdgeKind) bool {
	return k == EdgeInclude || k == EdgeExclude
}

func isTagField(e Edge) bool {
	return (e.From.Kind == model.KindTag && e.To.Kind == model.KindField) ||
		(e.From.Kind == model.KindField && e.To.Kind == model.KindTag)
}

func tagAndField(e Edge) (tagID, fieldID string) {
	if e.From.Kind == model.KindTag {
		return e.From.ID, e.To.ID
	}
	return e.To.ID, e.From.ID
}

func unsupported(op string, e Edge) *OpError {
	return &OpError{Code: ErrCodeUnsupportedRoute, Op: op, Message: "no handler for " + e.String(), Node: e.From.String()}
}

func edgeNotFound(op string, e Edge) *OpError {
	return &OpError{Code: ErrCodeNotFound, Op: op, Message: "edge not found: " + e.String(), Node: e.From.String()}
}
