package table

import "fmt"

// Placement positions the left operand of a structural edit relative to
// the right operand.
type Placement int

const (
	// To replaces the right operand.
	To Placement = iota
	// Before inserts immediately before the right operand.
	Before
	// After inserts immediately after the right operand.
	After

	// toEnd appends after every existing column. Internal to the
	// column-to-table edits.
	toEnd
)

func (p Placement) String() string {
	switch p {
	case To:
		return "to"
	case Before:
		return "before"
	case After:
		return "after"
	case toEnd:
		return "end"
	default:
		return fmt.Sprintf("placement(%d)", int(p))
	}
}

// ParsePlacement maps the String form of a public Placement back.
func ParsePlacement(s string) (Placement, error) {
	for _, p := range []Placement{To, Before, After} {
		if p.String() == s {
			return p, nil
		}
	}
	return To, &Error{Code: ErrCodeInvalidColumn, Message: fmt.Sprintf("unknown placement %q", s)}
}

func (p Placement) valid() bool {
	return p == To || p == Before || p == After
}

type opKind int

const (
	opMove opKind = iota
	opCopy
)

func (o opKind) String() string {
	if o == opCopy {
		return "copy"
	}
	return "move"
}

// columnRole names one column whose rows are reported after a column edit.
type columnRole int

const (
	// roleLeft is the source header in the source table.
	roleLeft columnRole = iota
	// roleRight is the anchor header in the destination table.
	roleRight
	// roleNew is withName in the destination table.
	roleNew
)

func (r columnRole) String() string {
	switch r {
	case roleLeft:
		return "left"
	case roleRight:
		return "right"
	default:
		return "new"
	}
}

// columnPlan is one decision table entry. A rejected entry refuses the
// edit before anything is committed.
type columnPlan struct {
	roles  []columnRole
	reject bool
}

// columnPlanKey identifies a column edit case:
//   - around: Before or After rather than To
//   - same:   source and destination are one table
//   - l:      left header == withName
//   - r:      right header == withName
//   - lr:     left header == right header
//
// Only five (l, r, lr) tuples are possible: TTT, FFT, FTF, TFF, FFF.
type columnPlanKey struct {
	op     opKind
	around bool
	same   bool
	l      bool
	r      bool
	lr     bool
}

var (
	rL   = []columnRole{roleLeft}
	rR   = []columnRole{roleRight}
	rN   = []columnRole{roleNew}
	rLR  = []columnRole{roleLeft, roleRight}
	rLN  = []columnRole{roleLeft, roleNew}
	rRN  = []columnRole{roleRight, roleNew}
	rLRN = []columnRole{roleLeft, roleRight, roleNew}

	rejected = columnPlan{reject: true}
)

// columnPlans lists which headers change for every column edit case.
// Each listed role contributes one event per row held before or after.
var columnPlans = map[columnPlanKey]columnPlan{
	// move to, same table
	{opMove, false, true, true, true, true}:    {roles: rL},
	{opMove, false, true, false, false, true}:  {roles: rLN},
	{opMove, false, true, false, true, false}:  {roles: rLR},
	{opMove, false, true, true, false, false}:  {roles: rLR},
	{opMove, false, true, false, false, false}: {roles: rLRN},

	// move to, across tables
	{opMove, false, false, true, true, true}:    {roles: rLR},
	{opMove, false, false, false, false, true}:  {roles: rLRN},
	{opMove, false, false, false, true, false}:  {roles: rLR},
	{opMove, false, false, true, false, false}:  {roles: rLRN},
	{opMove, false, false, false, false, false}: {roles: rLRN},

	// move before/after, same table
	{opMove, true, true, true, true, true}:    rejected,
	{opMove, true, true, false, false, true}:  rejected,
	{opMove, true, true, false, true, false}:  {roles: rLR},
	{opMove, true, true, true, false, false}:  {roles: rL},
	{opMove, true, true, false, false, false}: {roles: rLN},

	// move before/after, across tables
	{opMove, true, false, true, true, true}:    {roles: rLR},
	{opMove, true, false, false, false, true}:  {roles: rLN},
	{opMove, true, false, false, true, false}:  {roles: rLR},
	{opMove, true, false, true, false, false}:  {roles: rLN},
	{opMove, true, false, false, false, false}: {roles: rLN},

	// copy to, same table
	{opCopy, false, true, true, true, true}:    {roles: rL},
	{opCopy, false, true, false, false, true}:  {roles: rLN},
	{opCopy, false, true, false, true, false}:  {roles: rR},
	{opCopy, false, true, true, false, false}:  {roles: rLR},
	{opCopy, false, true, false, false, false}: {roles: rRN},

	// copy to, across tables
	{opCopy, false, false, true, true, true}:    {roles: rR},
	{opCopy, false, false, false, false, true}:  {roles: rRN},
	{opCopy, false, false, false, true, false}:  {roles: rR},
	{opCopy, false, false, true, false, false}:  {roles: rRN},
	{opCopy, false, false, false, false, false}: {roles: rRN},

	// copy before/after, same table
	{opCopy, true, true, true, true, true}:    rejected,
	{opCopy, true, true, false, false, true}:  rejected,
	{opCopy, true, true, false, true, false}:  {roles: rR},
	{opCopy, true, true, true, false, false}:  {roles: rL},
	{opCopy, true, true, false, false, false}: {roles: rN},

	// copy before/after, across tables
	{opCopy, true, false, true, true, true}:    {roles: rR},
	{opCopy, true, false, false, false, true}:  {roles: rN},
	{opCopy, true, false, false, true, false}:  {roles: rR},
	{opCopy, true, false, true, false, false}:  {roles: rN},
	{opCopy, true, false, false, false, false}: {roles: rN},
}

// tablePlanKey identifies a column-to-table edit. l is left == withName.
type tablePlanKey struct {
	op   opKind
	same bool
	l    bool
}

// tablePlans lists the changed headers when a column is appended to a table.
var tablePlans = map[tablePlanKey][]columnRole{
	{opMove, true, true}:   rL,
	{opMove, true, false}:  rLN,
	{opMove, false, true}:  rLN,
	{opMove, false, false}: rLN,
	{opCopy, true, true}:   rL,
	{opCopy, true, false}:  rN,
	{opCopy, false, true}:  rN,
	{opCopy, false, false}: rN,
}

// rowRole names one group of rows reported after a row edit.
type rowRole int

const (
	// rowLeft is the source row, resolved per column in the source table.
	rowLeft rowRole = iota
	// rowRight is the destination row.
	rowRight
	// rowShift is every destination row beyond the insertion point.
	rowShift
)

type rowPlan struct {
	roles  []rowRole
	reject bool
}

// rowPlanKey identifies a row edit case. self means left and right are
// the same exact row of one table.
type rowPlanKey struct {
	op   opKind
	to   bool
	same bool
	self bool
}

// rowPlans lists which rows change for every row edit case. Shifted rows
// already covered by the left row are reported once.
var rowPlans = map[rowPlanKey]rowPlan{
	{opMove, true, true, true}:    {roles: []rowRole{rowLeft}},
	{opMove, true, true, false}:   {roles: []rowRole{rowLeft, rowRight}},
	{opMove, true, false, false}:  {roles: []rowRole{rowLeft, rowRight}},
	{opMove, false, true, true}:   {reject: true},
	{opMove, false, true, false}:  {roles: []rowRole{rowLeft, rowShift}},
	{opMove, false, false, false}: {roles: []rowRole{rowLeft, rowShift}},

	{opCopy, true, true, true}:    {roles: []rowRole{rowLeft}},
	{opCopy, true, true, false}:   {roles: []rowRole{rowRight}},
	{opCopy, true, false, false}:  {roles: []rowRole{rowRight}},
	{opCopy, false, true, true}:   {reject: true},
	{opCopy, false, true, false}:  {roles: []rowRole{rowShift}},
	{opCopy, false, false, false}: {roles: []rowRole{rowShift}},
}
