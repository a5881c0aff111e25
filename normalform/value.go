package normalform

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nodeadmin/snomed-dnf/reasoner"
)

// LiteralKind tags the datatype of a concrete domain value.
type LiteralKind uint8

const (
	Decimal LiteralKind = iota + 1
	Integer
	String
)

func (k LiteralKind) String() string {
	switch k {
	case Decimal:
		return "decimal"
	case Integer:
		return "integer"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Literal is a tagged literal. Text is the canonical lexical form; two
// literals with equal text are equal whatever their kind.
type Literal struct {
	Kind LiteralKind
	Text string
}

var dataTypes = map[string]LiteralKind{
	"xsd:decimal": Decimal,
	"xsd:double":  Decimal,
	"xsd:float":   Decimal,
	"decimal":     Decimal,
	"xsd:integer": Integer,
	"xsd:int":     Integer,
	"xsd:long":    Integer,
	"integer":     Integer,
	"xsd:string":  String,
	"string":      String,
}

// ParseLiteral validates raw against the datatype tag. A leading '#' on
// numeric text (the RF2 concrete value notation) is accepted.
func ParseLiteral(dataType, raw string) (Literal, error) {
	kind, ok := dataTypes[strings.ToLower(strings.TrimSpace(dataType))]
	if !ok {
		return Literal{}, fmt.Errorf("%w: %q", ErrUnsupportedDataType, dataType)
	}
	switch kind {
	case Integer:
		text := strings.TrimPrefix(strings.TrimSpace(raw), "#")
		if _, err := strconv.ParseInt(text, 10, 64); err != nil {
			return Literal{}, fmt.Errorf("%w: %q is not an integer", ErrInvalidLiteral, raw)
		}
		return Literal{Kind: Integer, Text: text}, nil
	case Decimal:
		text := strings.TrimPrefix(strings.TrimSpace(raw), "#")
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return Literal{}, fmt.Errorf("%w: %q is not a decimal", ErrInvalidLiteral, raw)
		}
		return Literal{Kind: Decimal, Text: text}, nil
	default:
		return Literal{Kind: String, Text: raw}, nil
	}
}

// Value is a role/literal pair of a concrete domain.
type Value struct {
	TypeID  reasoner.ConceptID
	Literal Literal

	Group       int
	StatementID int64
	Released    bool

	sem *Semantics
}

func (*Value) property() {}

// NewValue converts a concrete domain fragment of conceptID, reporting the
// concept and attribute when the literal cannot be read.
func (s *Semantics) NewValue(conceptID reasoner.ConceptID, f reasoner.ConcreteDomainFragment) (*Value, error) {
	lit, err := ParseLiteral(f.DataType, f.Value)
	if err != nil {
		return nil, &DataError{ConceptID: conceptID, TypeID: f.TypeID, Err: err}
	}
	return &Value{
		TypeID:      f.TypeID,
		Literal:     lit,
		Group:       f.Group,
		StatementID: f.StatementID,
		Released:    f.Released,
		sem:         s,
	}, nil
}

func (v *Value) Fragment() reasoner.ConcreteDomainFragment {
	var dt string
	switch v.Literal.Kind {
	case Integer:
		dt = "xsd:integer"
	case Decimal:
		dt = "xsd:decimal"
	default:
		dt = "xsd:string"
	}
	return reasoner.ConcreteDomainFragment{
		TypeID:      v.TypeID,
		Value:       v.Literal.Text,
		DataType:    dt,
		Group:       v.Group,
		StatementID: v.StatementID,
		Released:    v.Released,
	}
}

func (v *Value) Equal(other Property) bool {
	o, ok := other.(*Value)
	if !ok {
		return false
	}
	return v.TypeID == o.TypeID && v.Literal.Text == o.Literal.Text
}

func (v *Value) Hash() uint64 {
	return newHasher(kindValue).int(int64(v.TypeID)).string(v.Literal.Text).sum()
}

func (v *Value) String() string {
	return fmt.Sprintf("%d = %q^^%s", v.TypeID, v.Literal.Text, v.Literal.Kind)
}

func (v *Value) IsSameOrStrongerThan(other Property) bool {
	o, ok := other.(*Value)
	if !ok {
		return false
	}
	if v.Literal.Text != o.Literal.Text {
		return false
	}
	if v.TypeID == o.TypeID {
		return true
	}
	s := v.sem
	if s == nil {
		s = o.sem
	}
	return s != nil && s.subsumedBy(v.TypeID, o.TypeID)
}

// ValueOrdering orders values by group, attribute and literal text.
func ValueOrdering(a, b *Value) int {
	return cmp.Or(
		cmp.Compare(a.Group, b.Group),
		cmp.Compare(a.TypeID, b.TypeID),
		strings.Compare(a.Literal.Text, b.Literal.Text),
	)
}
