package table

import (
	"fmt"
	"slices"

	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// IndexRelation selects how a requested row index maps onto stored indexes.
type IndexRelation int

const (
	// IndexAt matches the exact index only.
	IndexAt IndexRelation = iota
	// IndexBefore matches the greatest index strictly below the request.
	IndexBefore
	// IndexAfter matches the least index strictly above the request.
	IndexAfter
	// IndexAtOrBefore tries IndexAt, then IndexBefore.
	IndexAtOrBefore
	// IndexAtOrAfter tries IndexAt, then IndexAfter.
	IndexAtOrAfter
)

func (r IndexRelation) String() string {
	switch r {
	case IndexAt:
		return "at"
	case IndexBefore:
		return "before"
	case IndexAfter:
		return "after"
	case IndexAtOrBefore:
		return "at_or_before"
	case IndexAtOrAfter:
		return "at_or_after"
	default:
		return fmt.Sprintf("relation(%d)", int(r))
	}
}

// ParseIndexRelation maps the String form back to an IndexRelation.
// The empty string means IndexAt.
func ParseIndexRelation(s string) (IndexRelation, error) {
	if s == "" {
		return IndexAt, nil
	}
	for r := IndexAt; r <= IndexAtOrAfter; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return IndexAt, &Error{Code: ErrCodeInvalidRow, Message: fmt.Sprintf("unknown index relation %q", s)}
}

// Resolve finds the stored entry for index under rel. It returns the value,
// the index it was actually found at, and whether anything matched.
func (c *Cells) Resolve(index int64, rel IndexRelation) (value.Value, int64, bool) {
	if c.Len() == 0 {
		return nil, index, false
	}

	i, exact := slices.BinarySearch(c.keys, index)
	if exact && rel != IndexBefore && rel != IndexAfter {
		return c.vals[i], index, true
	}

	var pos int
	switch rel {
	case IndexBefore, IndexAtOrBefore:
		pos = i - 1
	case IndexAfter, IndexAtOrAfter:
		pos = i
		if exact {
			pos++
		}
	default:
		return nil, index, false
	}

	if pos < 0 || pos >= len(c.keys) {
		return nil, index, false
	}
	return c.vals[pos], c.keys[pos], true
}
