// Package value defines the runtime value representation shared by the
// compiler's constant pool and the VM's stack.
package value

import "fmt"

// Kind tags which variant of Value is populated.
type Kind int

const (
	Nil Kind = iota
	Number
	Bool
	String
)

// Value is a closed sum type: {Number(f64), Bool, Null, String}. Only the
// field matching Kind is meaningful.
type Value struct {
	Kind Kind
	Num  float64
	Bln  bool
	Str  string
}

func NilValue() Value           { return Value{Kind: Nil} }
func NumberValue(n float64) Value { return Value{Kind: Number, Num: n} }
func BoolValue(b bool) Value    { return Value{Kind: Bool, Bln: b} }
func StringValue(s string) Value { return Value{Kind: String, Str: s} }

// IsFalsy reports whether v is logically false: Null or Bool(false).
// Everything else, including 0 and "", is truthy.
func (v Value) IsFalsy() bool {
	switch v.Kind {
	case Nil:
		return true
	case Bool:
		return !v.Bln
	default:
		return false
	}
}

// Equals implements same-variant structural equality. Cross-variant
// comparisons are never equal and never an error.
func (v Value) Equals(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case Nil:
		return true
	case Number:
		return v.Num == other.Num
	case Bool:
		return v.Bln == other.Bln
	case String:
		return v.Str == other.Str
	default:
		return false
	}
}

// TypeName names the variant for error messages.
func (v Value) TypeName() string {
	switch v.Kind {
	case Nil:
		return "ghaib"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// String formats v the way `qul` and the REPL print it: numbers with four
// fractional digits, booleans as haqq/batil, null as ghaib, strings
// surrounded by double quotes.
func (v Value) String() string {
	switch v.Kind {
	case Nil:
		return "ghaib"
	case Number:
		return fmt.Sprintf("%.4f", v.Num)
	case Bool:
		if v.Bln {
			return "haqq"
		}
		return "batil"
	case String:
		return fmt.Sprintf("%q", v.Str)
	default:
		return "?"
	}
}
