package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when an id does not resolve to a node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode is returned by Insert when the id is already taken.
	ErrDuplicateNode = errors.New("node already registered")

	// ErrCorruptGraph is returned by the loader when the document references
	// missing ids, carries unknown kinds, or breaks a structural invariant.
	ErrCorruptGraph = errors.New("corrupt graph")
)

// EdgeRuleError reports a Connect call with an illegal kind pair, such as
// Origin→Problem or Problem→Problem.
type EdgeRuleError struct {
	ParentID   string
	ParentKind Kind
	ChildID    string
	ChildKind  Kind
}

func (e *EdgeRuleError) Error() string {
	return fmt.Sprintf("edge rule violation: %s %s cannot connect to %s %s",
		e.ParentKind, e.ParentID, e.ChildKind, e.ChildID)
}
