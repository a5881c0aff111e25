package normalform

import (
	"errors"
	"fmt"

	"github.com/nodeadmin/snomed-dnf/reasoner"
)

var (
	// ErrGeneratorDone is returned by Run on a generator that already ran.
	ErrGeneratorDone = errors.New("normal form generator already ran")

	// ErrParentNotGenerated is returned when a concept is generated before one
	// of its direct parents, or after the parent's cache entry was dropped.
	ErrParentNotGenerated = errors.New("parent has no generated components")

	// ErrClosureCycle is returned when an edge would close a cycle in a
	// destination closure graph.
	ErrClosureCycle = errors.New("destination closure graph cycle")

	// ErrUnsupportedDataType is returned for a literal with an unknown datatype tag.
	ErrUnsupportedDataType = errors.New("unsupported literal data type")

	// ErrInvalidLiteral is returned when literal text does not parse as its datatype.
	ErrInvalidLiteral = errors.New("invalid literal")

	// ErrUnsupportedGrouping is returned for a negated destination inside a
	// union group, which has no defined meaning.
	ErrUnsupportedGrouping = errors.New("negated destination in union group")
)

// DataError reports a fact that cannot be turned into a property.
type DataError struct {
	ConceptID reasoner.ConceptID
	TypeID    reasoner.ConceptID
	Err       error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("concept %d, attribute %d: %v", e.ConceptID, e.TypeID, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }
