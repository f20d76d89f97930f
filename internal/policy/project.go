package policy

import (
	"fmt"
	"strings"

	"github.com/timeax/servicegraph/internal/model"
)

// projection is a parsed "service.<attr>" or "service.meta.<key>" path.
type projection struct {
	attr string
	key  string
}

func parseProjection(p string) (projection, error) {
	rest, ok := strings.CutPrefix(p, "service.")
	if !ok {
		return projection{}, fmt.Errorf("projection %q must start with service.", p)
	}
	if key, ok := strings.CutPrefix(rest, "meta."); ok && key != "" {
		return projection{attr: "meta", key: key}, nil
	}
	switch rest {
	case "id", "name", "rate", "handler_id", "platform_id",
		model.ConstraintRefill, model.ConstraintCancel, model.ConstraintDripfeed:
		return projection{attr: rest}, nil
	}
	return projection{}, fmt.Errorf("unknown projection %q", p)
}

// value projects a capability record. Missing meta keys project to nil.
func (p projection) value(c model.ServiceCapability) any {
	switch p.attr {
	case "id":
		return c.ID
	case "name":
		return c.Name
	case "rate":
		return c.Rate
	case "handler_id":
		return c.HandlerID
	case "platform_id":
		return c.PlatformID
	case "meta":
		return c.Meta[p.key]
	}
	return c.Supports(p.attr)
}

// truthy follows JSON intuition: false, 0, "" and nil are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	}
	return true
}

// key renders a projected value for equality comparison.
func key(v any) string {
	return fmt.Sprintf("%T:%v", v, v)
}

func display(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprint(v)
}
