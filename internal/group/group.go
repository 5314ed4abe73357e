// Package group implements the Grouper: it composes the per-band member
// masks of a hierarchy level (e.g. convective, stratiform, echo-top
// bands of the same storm) into grouped objects via a vertical overlap
// graph. Member masks are expected to already carry universal ids
// (i.e. each member object type has already run through its own
// detect+match step this time step) rather than raw per-step detection
// labels, so the only thing left to resolve here is which members at
// which bands belong to the same physical storm this step.
package group

import (
	"fmt"
	"sort"

	"github.com/thuner-project/thuner/internal/detect"
	"github.com/thuner-project/thuner/internal/identity"
	"github.com/thuner-project/thuner/internal/options"
)

// Result is the outcome of one grouping step.
type Result struct {
	// MemberMasks holds, per member object name, a mask whose labels are
	// the accepted component index (1..K), 0 elsewhere.
	MemberMasks map[string]*detect.Mask
	// MatchedMask is MemberMasks[o.MatchedObject], the mask the caller
	// feeds into match.Run to track the grouped object across time.
	MatchedMask *detect.Mask
	// ComponentMemberIDs maps an accepted component index to the sorted,
	// deduplicated universal ids of every member-band object that
	// contributed to it. Callers use this to record ParentKindGroup
	// edges once the grouped object's own universal id for this
	// component is known (after the subsequent match step).
	ComponentMemberIDs map[int][]identity.UniversalID
}

type node struct {
	band  int
	label int
}

// Run builds the vertical overlap graph across members[o.MemberObjects]
// (in that order), accepts only connected components that include at
// least one label from every member band, and emits per-member masks
// relabeled to the accepted component index.
func Run(members map[string]*detect.Mask, o options.GroupOptions) (*Result, error) {
	bands := o.MemberObjects
	if len(bands) < 2 {
		return nil, fmt.Errorf("group.Run: at least two member bands are required")
	}

	var rows, cols int
	for _, b := range bands {
		m := members[b]
		if m == nil {
			continue
		}
		rows, cols = len(m.Labels), len(m.Labels[0])
		break
	}
	if rows == 0 {
		// Every member band is empty this step: nothing to group.
		out := map[string]*detect.Mask{}
		for _, b := range bands {
			out[b] = nil
		}
		return &Result{MemberMasks: out, ComponentMemberIDs: map[int][]identity.UniversalID{}}, nil
	}

	uf := newNodeUnionFind()

	// Register every distinct (band,label) node so singleton bands with
	// no overlap still participate in the span check (and are correctly
	// rejected, since a lone band can never span every member).
	for bi, b := range bands {
		m := members[b]
		if m == nil {
			continue
		}
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				lab := m.Labels[r][c]
				if lab > 0 {
					uf.find(node{bi, lab})
				}
			}
		}
	}

	// Union labels of adjacent bands that overlap at the same pixel.
	for bi := 0; bi+1 < len(bands); bi++ {
		cur, next := members[bands[bi]], members[bands[bi+1]]
		if cur == nil || next == nil {
			continue
		}
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				a, b := cur.Labels[r][c], next.Labels[r][c]
				if a > 0 && b > 0 {
					uf.union(node{bi, a}, node{bi + 1, b})
				}
			}
		}
	}

	// Collect, per root, the set of bands touched and the member nodes.
	type component struct {
		bandsTouched map[int]bool
		members      []node
		firstBand    int
		firstLabel   int
	}
	components := map[node]*component{}
	for n := range uf.parent {
		root := uf.find(n)
		comp, ok := components[root]
		if !ok {
			comp = &component{bandsTouched: map[int]bool{}, firstBand: n.band, firstLabel: n.label}
			components[root] = comp
		}
		comp.bandsTouched[n.band] = true
		comp.members = append(comp.members, n)
		if n.band < comp.firstBand || (n.band == comp.firstBand && n.label < comp.firstLabel) {
			comp.firstBand, comp.firstLabel = n.band, n.label
		}
	}

	var accepted []*component
	for _, comp := range components {
		if len(comp.bandsTouched) == len(bands) {
			accepted = append(accepted, comp)
		}
	}
	sort.Slice(accepted, func(i, j int) bool {
		if accepted[i].firstBand != accepted[j].firstBand {
			return accepted[i].firstBand < accepted[j].firstBand
		}
		return accepted[i].firstLabel < accepted[j].firstLabel
	})

	rootToIndex := map[node]int{}
	memberIDs := map[int][]identity.UniversalID{}
	for k, comp := range accepted {
		index := k + 1
		rootToIndex[uf.find(comp.members[0])] = index
		ids := make([]identity.UniversalID, 0, len(comp.members))
		seen := map[identity.UniversalID]bool{}
		for _, n := range comp.members {
			id := identity.UniversalID(n.label)
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		memberIDs[index] = ids
	}

	out := map[string]*detect.Mask{}
	for bi, b := range bands {
		m := members[b]
		if m == nil {
			out[b] = nil
			continue
		}
		labels := make([][]int, rows)
		for r := 0; r < rows; r++ {
			labels[r] = make([]int, cols)
			for c := 0; c < cols; c++ {
				lab := m.Labels[r][c]
				if lab == 0 {
					continue
				}
				if idx, ok := rootToIndex[uf.find(node{bi, lab})]; ok {
					labels[r][c] = idx
				}
			}
		}
		out[b] = &detect.Mask{Labels: labels, NumLabels: len(accepted)}
	}

	return &Result{
		MemberMasks:        out,
		MatchedMask:        out[o.MatchedObject],
		ComponentMemberIDs: memberIDs,
	}, nil
}

// nodeUnionFind is a union-find over (band,label) pairs, keyed by value
// rather than a dense integer range since bands and labels originate
// from independently numbered member masks.
type nodeUnionFind struct {
	parent map[node]node
}

func newNodeUnionFind() *nodeUnionFind {
	return &nodeUnionFind{parent: map[node]node{}}
}

func (u *nodeUnionFind) find(n node) node {
	if _, ok := u.parent[n]; !ok {
		u.parent[n] = n
		return n
	}
	root := n
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[n] != root {
		next := u.parent[n]
		u.parent[n] = root
		n = next
	}
	return root
}

func (u *nodeUnionFind) union(a, b node) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}
