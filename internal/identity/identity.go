// Package identity assigns and tracks universal object ids across steps:
// a process-wide monotonic counter mints new ids, and a persistent parent
// graph records how objects split, merge, or carry forward their identity
// from one step to the next.
package identity

import "time"

// UniversalID is a process-wide unique object identifier, minted once per
// object lifetime and carried across every step the object survives.
type UniversalID int64

// Counter mints monotonically increasing UniversalIDs. The zero value is
// ready to use and starts minting at 1.
type Counter struct {
	next int64
}

// Next mints and returns the next UniversalID.
func (c *Counter) Next() UniversalID {
	c.next++
	return UniversalID(c.next)
}

// ParentKind distinguishes how a parent edge was discovered.
type ParentKind int

const (
	// ParentKindMatch marks an edge discovered by the matcher: a split (one
	// previous object maps to several next objects by mask overlap) or a
	// merge (several previous objects assigned to the same next object).
	ParentKindMatch ParentKind = iota
	// ParentKindGroup marks an edge discovered by the grouper: a connected
	// component spanning multiple previous universal ids.
	ParentKindGroup
)

func (k ParentKind) String() string {
	switch k {
	case ParentKindMatch:
		return "match"
	case ParentKindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Node keys a single object instance at a single step: the same
// UniversalID recurs at every step the object survives, so the parent
// graph keys edges by (Time, UniversalID) rather than by UniversalID alone.
type Node struct {
	Time time.Time
	ID   UniversalID
}

// ParentEdge records that Parent (at the previous step) gave rise to
// Child (at the current step).
type ParentEdge struct {
	Child  Node
	Parent Node
	Kind   ParentKind
}

// ParentGraph is the run-persistent record of every parent edge
// discovered during tracking and grouping. It is reconstructed during
// interval stitching from the parents columns of the core attributes.
type ParentGraph struct {
	Edges []ParentEdge
}

// AddEdge appends a parent edge to the graph.
func (g *ParentGraph) AddEdge(child, parent Node, kind ParentKind) {
	g.Edges = append(g.Edges, ParentEdge{Child: child, Parent: parent, Kind: kind})
}

// ParentsOf returns the universal ids of every parent recorded for child,
// in the order they were added.
func (g *ParentGraph) ParentsOf(child Node) []UniversalID {
	var parents []UniversalID
	for _, e := range g.Edges {
		if e.Child == child {
			parents = append(parents, e.Parent.ID)
		}
	}
	return parents
}
