package validator

import "fmt"

// Violation reports a black-box contract breach observed by the
// Validator: a pointer that failed alignment or bounds, an overlap
// between two live allocations, or a realloc that did not preserve its
// prefix. Property names the specific check that failed; see the
// Property constants.
type Violation struct {
	Property string
	Address  uint32
	Size     uint32
	Message  string
}

// Property values a Violation may carry.
const (
	PropertyAlignment     = "alignment"
	PropertyBounds        = "bounds"
	PropertyOverlap       = "overlap"
	PropertyReallocPrefix = "realloc-prefix"
)

func (v *Violation) Error() string {
	return fmt.Sprintf("validator: %s violated at 0x%x (size=%d): %s", v.Property, v.Address, v.Size, v.Message)
}
