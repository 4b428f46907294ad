package contract

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"
)

var primitives = map[string]wit.Type{
	"bool":   wit.Bool{},
	"u8":     wit.U8{},
	"s8":     wit.S8{},
	"u16":    wit.U16{},
	"s16":    wit.S16{},
	"u32":    wit.U32{},
	"s32":    wit.S32{},
	"u64":    wit.U64{},
	"s64":    wit.S64{},
	"f32":    wit.F32{},
	"f64":    wit.F64{},
	"char":   wit.Char{},
	"string": wit.String{},
}

// ParseType parses the WIT type subset used by plugin contracts:
// primitives, list<T> and option<T>.
func ParseType(s string) (wit.Type, error) {
	s = strings.TrimSpace(s)
	if t, ok := primitives[s]; ok {
		return t, nil
	}

	if inner, ok := generic(s, "list"); ok {
		elem, err := ParseType(inner)
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}, nil
	}

	if inner, ok := generic(s, "option"); ok {
		elem, err := ParseType(inner)
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.Option{Type: elem}}, nil
	}

	return nil, fmt.Errorf("unsupported type %q", s)
}

func generic(s, name string) (string, bool) {
	if !strings.HasPrefix(s, name+"<") || !strings.HasSuffix(s, ">") {
		return "", false
	}
	return s[len(name)+1 : len(s)-1], true
}

// TypeString renders t in WIT syntax. Named definitions render by name.
func TypeString(t wit.Type) string {
	switch v := t.(type) {
	case nil:
		return "()"
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		switch k := v.Kind.(type) {
		case *wit.List:
			return "list<" + TypeString(k.Type) + ">"
		case *wit.Option:
			return "option<" + TypeString(k.Type) + ">"
		case wit.Type:
			return TypeString(k)
		}
		return fmt.Sprintf("%T", v.Kind)
	default:
		return fmt.Sprintf("%T", t)
	}
}

// TypesString renders a parameter or result list, e.g. "(string, u32)".
func TypesString(ts []wit.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = TypeString(t)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
