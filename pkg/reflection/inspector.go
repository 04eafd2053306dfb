// Package reflection pretty-prints a ClassDescriptor for debugging and
// demo output — a repurposing of the teacher's ad hoc struct-tag inspector
// into a viewer over the container's own descriptor model (§3) rather than
// a second, competing source of truth about what's injectable.
package reflection

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"dicore/pkg/scandesc"
)

// Inspector renders ClassDescriptors as human-readable reports.
type Inspector struct {
	log *zap.SugaredLogger
}

// NewInspector builds an Inspector that logs through log.
func NewInspector(log *zap.SugaredLogger) *Inspector {
	return &Inspector{log: log}
}

// Inspect reports whether cd is well-formed enough to describe: it must
// name an erased type, and every field index must be non-empty.
func (i *Inspector) Inspect(cd *scandesc.ClassDescriptor) error {
	if cd == nil {
		i.log.Error("cannot inspect a nil class descriptor")
		return fmt.Errorf("cannot inspect a nil class descriptor")
	}
	if cd.Erased == nil {
		i.log.Error("class descriptor has no erased type")
		return fmt.Errorf("class descriptor has no erased type")
	}
	for _, f := range cd.Fields {
		if len(f.Index) == 0 {
			i.log.Errorw("field descriptor has no struct index", "field", f.Name)
			return fmt.Errorf("field %q has no struct index", f.Name)
		}
	}
	i.log.Debugw("inspected class descriptor", "type", cd.Erased.String())
	return nil
}

// PrettyPrint renders cd as a multi-line report: its scope, constructors,
// fields (with qualifiers and static/final markers), and lifecycle methods.
func (i *Inspector) PrettyPrint(cd *scandesc.ClassDescriptor) string {
	var b strings.Builder

	scope := string(cd.Scope)
	if scope == "" {
		scope = "dependent"
	}
	fmt.Fprintf(&b, "Class: %s\n", cd.Erased)
	fmt.Fprintf(&b, "Scope: %s\n", scope)
	if cd.IsAlternative {
		b.WriteString("Alternative: true\n")
	}
	if cd.Qualifiers.Len() > 0 {
		fmt.Fprintf(&b, "Qualifiers: %s\n", cd.Qualifiers.Key())
	}

	if len(cd.Constructors) > 0 {
		b.WriteString("Constructors:\n")
		for _, c := range cd.Constructors {
			fmt.Fprintf(&b, "  - %s (injectable=%v, params=%d)\n", c.Fn.Type(), c.Injectable, len(c.ParamTypes))
		}
	}

	if len(cd.Fields) > 0 {
		b.WriteString("Fields:\n")
		for _, f := range cd.Fields {
			fmt.Fprintf(&b, "  - %s: %s", f.Name, f.Type.String())
			if f.Static {
				b.WriteString(" [static]")
			}
			if f.Final {
				b.WriteString(" [final]")
			}
			if f.Qualifiers.Len() > 0 {
				fmt.Fprintf(&b, " qualifiers=%s", f.Qualifiers.Key())
			}
			b.WriteString("\n")
		}
	}

	var lifecycle []string
	for _, m := range cd.Methods {
		switch {
		case m.PostConstruct:
			lifecycle = append(lifecycle, "post-construct:"+m.Name)
		case m.PreDestroy:
			lifecycle = append(lifecycle, "pre-destroy:"+m.Name)
		}
	}
	if len(lifecycle) > 0 {
		b.WriteString("Lifecycle:\n")
		for _, l := range lifecycle {
			fmt.Fprintf(&b, "  - %s\n", l)
		}
	}

	return b.String()
}
