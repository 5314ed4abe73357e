// Package track implements the per-time-step control flow (spec §4.8):
// advancing each hierarchy level's input window, running detection or
// grouping, matching against the previous step, retrieving attributes,
// and periodically flushing both to disk, all within a bounded memory
// footprint enforced by each object's history deque.
package track

import (
	"fmt"
	"time"

	"github.com/thuner-project/thuner/internal/attribute"
	"github.com/thuner-project/thuner/internal/detect"
	"github.com/thuner-project/thuner/internal/fsutil"
	"github.com/thuner-project/thuner/internal/geo"
	"github.com/thuner-project/thuner/internal/group"
	"github.com/thuner-project/thuner/internal/identity"
	"github.com/thuner-project/thuner/internal/match"
	"github.com/thuner-project/thuner/internal/options"
	"github.com/thuner-project/thuner/internal/trackerr"
)

// MaskWriter persists one step's labeled mask to a chunked on-disk
// store. Kept as a narrow interface here so the track loop never
// imports internal/storage directly; storage.MaskStore satisfies it.
type MaskWriter interface {
	WriteMaskChunk(object, member string, stepTime time.Time, labels [][]int) error
}

// StepSummary is reported to Tracks.OnStep once per object per time
// step, mirroring the teacher's pluggable per-frame debug hook: used by
// tests and by internal/visualize without coupling the loop to any
// concrete UI.
type StepSummary struct {
	ObjectName string
	Time       time.Time
	NumObjects int
	Records    []match.Record
}

// stepFrame is one hierarchy level's per-step bookkeeping, kept in its
// History deque so the matcher can always look one and two steps back
// (TINT/MINT's "displacement before previous" case) without retaining
// the whole run in memory.
type stepFrame struct {
	Time         time.Time
	Field        [][]float32
	Mask         *detect.Mask
	UniversalIDs []identity.UniversalID      // index i -> universal id of mask label i+1
	Displacement map[identity.UniversalID]geo.Vector2
}

// objectState is the per-hierarchy-level state the loop advances each
// step: its own universal-id counter and parent graph (per §5, a
// counter is scoped to one tracking interval), history deque, and
// attribute table(s).
type objectState struct {
	opts    options.TrackOptions
	counter identity.Counter
	graph   *identity.ParentGraph
	history *History[stepFrame]

	table        *attribute.Table // nil for grouped objects until wired below
	memberTables map[string]*attribute.Table

	flushedPaths       []string
	memberFlushedPaths map[string][]string
}

// Tracks is the owning arena for every hierarchy level in one run: the
// track loop never holds per-object pointers outside this structure,
// matching §9's "arena with indices" guidance for the identity graph's
// otherwise cyclic parent/child references.
type Tracks struct {
	Paths  options.Paths
	Grid   *geo.Grid
	Writer MaskWriter // nil disables mask persistence even when SaveMasks is set

	OnStep func(StepSummary)

	objects map[string]*objectState
	order   []string
}

// NewTracks builds an empty arena for the given hierarchy, in the order
// objects must run each step (member object types before any grouped
// object that depends on them).
func NewTracks(paths options.Paths, g *geo.Grid, writer MaskWriter, objectOpts []options.TrackOptions) (*Tracks, error) {
	t := &Tracks{Paths: paths, Grid: g, Writer: writer, objects: map[string]*objectState{}}
	for _, o := range objectOpts {
		if err := o.Validate(); err != nil {
			return nil, err
		}
		t.order = append(t.order, o.ObjectName)
		t.objects[o.ObjectName] = &objectState{
			opts:               o,
			graph:              &identity.ParentGraph{},
			history:            NewHistory[stepFrame](o.DequeLength),
			memberTables:       map[string]*attribute.Table{},
			memberFlushedPaths: map[string][]string{},
		}
	}
	return t, nil
}

// StepDetected advances one detect-based object by one time step: field
// is the already-extracted (altitude, row, col) slab for stepTime,
// cellAreas the per-cell area table used by both the detector's
// min-area filter and the matcher's area-difference cost term.
func (t *Tracks) StepDetected(objectName string, stepTime time.Time, field detect.Field3D, altitudeCoords []float32, cellAreas [][]float32, fg *geo.FieldGrid) error {
	st, ok := t.objects[objectName]
	if !ok {
		return trackerr.New(trackerr.KindConfig, "track.Tracks.StepDetected", fmt.Errorf("unknown object %q", objectName))
	}
	if st.opts.Detect == nil {
		return trackerr.New(trackerr.KindConfig, "track.Tracks.StepDetected", fmt.Errorf("object %q is not detect-based", objectName))
	}

	flat, err := detect.Flatten(field, altitudeCoords, *st.opts.Detect)
	if err != nil {
		return trackerr.New(trackerr.KindNumericalEdge, "track.Tracks.StepDetected", err)
	}
	mask, err := detect.Run(field, altitudeCoords, t.Grid, cellAreas, *st.opts.Detect)
	if err != nil {
		return err
	}
	return t.step(st, stepTime, flat, mask, cellAreas, fg)
}

// StepGrouped advances one group-based object by one time step: members
// is the current step's already-identity-matched member masks (each
// produced by that member's own earlier StepDetected call this same
// step), keyed by member object name.
func (t *Tracks) StepGrouped(objectName string, stepTime time.Time, members map[string]*detect.Mask, cellAreas [][]float32, fg *geo.FieldGrid) error {
	st, ok := t.objects[objectName]
	if !ok {
		return trackerr.New(trackerr.KindConfig, "track.Tracks.StepGrouped", fmt.Errorf("unknown object %q", objectName))
	}
	if st.opts.Group == nil {
		return trackerr.New(trackerr.KindConfig, "track.Tracks.StepGrouped", fmt.Errorf("object %q is not group-based", objectName))
	}

	res, err := group.Run(members, *st.opts.Group)
	if err != nil {
		return trackerr.New(trackerr.KindNumericalEdge, "track.Tracks.StepGrouped", err)
	}

	if err := t.step(st, stepTime, nil, res.MatchedMask, cellAreas, fg); err != nil {
		return err
	}

	// Record grouping-discovered parents: a grouped object's universal id
	// for this step now exists in st.history's latest frame, so every
	// member universal id a component subsumed becomes a ParentKindGroup
	// edge of that id.
	if frame, ok := st.history.Previous(1); ok {
		for compIdx, memberIDs := range res.ComponentMemberIDs {
			childLabel := compIdx
			if childLabel < 1 || childLabel > len(frame.UniversalIDs) {
				continue
			}
			child := frame.UniversalIDs[childLabel-1]
			for _, pid := range memberIDs {
				st.graph.AddEdge(
					identity.Node{Time: stepTime, ID: child},
					identity.Node{Time: stepTime, ID: pid},
					identity.ParentKindGroup,
				)
			}
		}
	}

	if st.opts.Attribute.WriteIntervalHours > 0 {
		for member, mask := range res.MemberMasks {
			t.recordMemberAttributes(st, member, stepTime, mask, cellAreas, fg)
		}
	}
	return nil
}

// step runs the shared matcher/attribute/flush/mask-write sequence for
// one hierarchy level, given the detector- or grouper-produced mask for
// this step. field may be nil for grouped objects, which have no flow
// field of their own to correlate (member objects already carried flow
// correction before being grouped).
func (t *Tracks) step(st *objectState, stepTime time.Time, field [][]float32, mask *detect.Mask, cellAreas [][]float32, fg *geo.FieldGrid) error {
	prevFrame, hasPrev := st.history.Previous(1)

	var previousMask *detect.Mask
	var previousField [][]float32
	var previousUniversalIDs []identity.UniversalID
	var previousTime time.Time
	if hasPrev {
		previousMask = prevFrame.Mask
		previousField = prevFrame.Field
		previousUniversalIDs = prevFrame.UniversalIDs
		previousTime = prevFrame.Time
	}

	dt := 0.0
	if hasPrev {
		dt = stepTime.Sub(previousTime).Seconds()
	}

	lastDisplacement := func(id identity.UniversalID) (geo.Vector2, bool) {
		older, ok := st.history.Previous(2)
		if !ok {
			return geo.Vector2{}, false
		}
		v, ok := older.Displacement[id]
		return v, ok
	}

	result, err := match.Run(
		previousField, field,
		previousMask, mask,
		cellAreas,
		previousUniversalIDs,
		lastDisplacement,
		dt,
		t.Grid,
		&st.counter,
		st.graph,
		previousTime, stepTime,
		st.opts.Match, st.opts.Flow,
	)
	if err != nil {
		return trackerr.New(trackerr.KindMatchSolver, "track.Tracks.step", err)
	}

	var nextMask *detect.Mask
	if result.MatchedMask != nil && mask != nil {
		nextMask = &detect.Mask{Labels: result.MatchedMask, NumLabels: mask.NumLabels}
	}

	frame := stepFrame{
		Time:         stepTime,
		Field:        field,
		Mask:         nextMask,
		UniversalIDs: make([]identity.UniversalID, len(result.Records)),
		Displacement: map[identity.UniversalID]geo.Vector2{},
	}
	for i, rec := range result.Records {
		frame.UniversalIDs[i] = rec.UniversalID
		frame.Displacement[rec.UniversalID] = rec.Displacement
	}
	st.history.Add(frame)

	if st.opts.SaveMasks && t.Writer != nil && nextMask != nil {
		if err := t.Writer.WriteMaskChunk(st.opts.ObjectName, "", stepTime, nextMask.Labels); err != nil {
			return trackerr.New(trackerr.KindIO, "track.Tracks.step", err)
		}
	}

	if st.opts.Attribute.WriteIntervalHours > 0 {
		t.recordObjectAttributes(st, stepTime, nextMask, result.Records, fg, dt)
	}

	if t.OnStep != nil {
		t.OnStep(StepSummary{ObjectName: st.opts.ObjectName, Time: stepTime, NumObjects: len(result.Records), Records: result.Records})
	}
	return nil
}

func (t *Tracks) recordObjectAttributes(st *objectState, stepTime time.Time, mask *detect.Mask, records []match.Record, fg *geo.FieldGrid, dt float64) {
	if st.table == nil {
		st.table = attribute.NewTable(st.opts.ObjectName, "", defaultCoreAttributeType(), []string{"time", "id", "universal_id"}, stepTime)
	}
	objects := make([]attribute.ObjectStep, len(records))
	for i, r := range records {
		objects[i] = attribute.ObjectStep{
			UniversalID:  r.UniversalID,
			Label:        r.NextLabel,
			CentreRow:    r.CentreRow,
			CentreCol:    r.CentreCol,
			Displacement: r.Displacement,
			Parents:      r.Parents,
		}
	}
	ctx := attribute.RetrievalContext{Time: stepTime, DtSeconds: dt, Grid: t.Grid, Mask: mask, Objects: objects}
	if fg != nil {
		ctx.BoundaryMask = fg.BoundaryMask
	}
	cols, err := attribute.RetrieveType(st.table.Type, ctx)
	if err != nil {
		return
	}
	st.table.Append(stepTime, cols)

	if st.table.ShouldFlush(stepTime, st.opts.Attribute.WriteIntervalHours) {
		if path, err := st.table.Flush(t.Paths.FS, t.Paths.Root, stepTime); err == nil && path != "" {
			st.flushedPaths = append(st.flushedPaths, path)
		}
	}
}

func (t *Tracks) recordMemberAttributes(st *objectState, member string, stepTime time.Time, mask *detect.Mask, cellAreas [][]float32, fg *geo.FieldGrid) {
	tbl, ok := st.memberTables[member]
	if !ok {
		tbl = attribute.NewTable(st.opts.ObjectName, member, defaultCoreAttributeType(), []string{"time", "id", "universal_id"}, stepTime)
		st.memberTables[member] = tbl
	}
	if mask == nil {
		return
	}
	objects := describeForAttributes(mask)
	ctx := attribute.RetrievalContext{Time: stepTime, Grid: t.Grid, Mask: mask, Objects: objects}
	if fg != nil {
		ctx.BoundaryMask = fg.BoundaryMask
	}
	cols, err := attribute.RetrieveType(tbl.Type, ctx)
	if err != nil {
		return
	}
	tbl.Append(stepTime, cols)
	if tbl.ShouldFlush(stepTime, st.opts.Attribute.WriteIntervalHours) {
		if path, err := tbl.Flush(t.Paths.FS, t.Paths.Root, stepTime); err == nil && path != "" {
			st.memberFlushedPaths[member] = append(st.memberFlushedPaths[member], path)
		}
	}
}

// describeForAttributes builds an ObjectStep list straight from a
// relabeled mask's distinct labels, used for grouped-object member
// attribute rows that have no independent match.Record of their own
// (their identity already came from that member's own detect+match step
// earlier this hierarchy).
func describeForAttributes(mask *detect.Mask) []attribute.ObjectStep {
	seen := map[int]bool{}
	var out []attribute.ObjectStep
	rows := len(mask.Labels)
	sums := map[int][2]float64{}
	counts := map[int]int{}
	for r := 0; r < rows; r++ {
		cols := len(mask.Labels[r])
		for c := 0; c < cols; c++ {
			lab := mask.Labels[r][c]
			if lab == 0 {
				continue
			}
			seen[lab] = true
			s := sums[lab]
			s[0] += float64(r)
			s[1] += float64(c)
			sums[lab] = s
			counts[lab]++
		}
	}
	for lab := range seen {
		n := float64(counts[lab])
		out = append(out, attribute.ObjectStep{
			UniversalID: identity.UniversalID(lab),
			Label:       lab,
			CentreRow:   sums[lab][0] / n,
			CentreCol:   sums[lab][1] / n,
		})
	}
	return out
}

// defaultCoreAttributeType is the always-on attribute type every
// object (and grouped-object member) carries: id, coordinates, area,
// and parents, matching the source's "core" attribute group that every
// object type registers regardless of what else is configured.
func defaultCoreAttributeType() attribute.AttributeType {
	return attribute.AttributeType{
		Name: "core",
		Groups: []attribute.AttributeGroup{
			{Attributes: []attribute.Attribute{{Name: "id", DataType: "int"}, {Name: "universal_id", DataType: "int"}}, Retrieval: attribute.RetrieveCoreID},
			{Attributes: []attribute.Attribute{{Name: "latitude", DataType: "float", Precision: 4}, {Name: "longitude", DataType: "float", Precision: 4}}, Retrieval: attribute.RetrieveCoreCoordinates},
			{Attributes: []attribute.Attribute{{Name: "parents", DataType: "string"}}, Retrieval: attribute.RetrieveCoreParents},
		},
	}
}

// FlushedPaths returns every attribute csv shard objectName has flushed
// so far this run, for Finalize's end-of-run aggregation.
func (t *Tracks) FlushedPaths(objectName string) []string {
	st, ok := t.objects[objectName]
	if !ok {
		return nil
	}
	return st.flushedPaths
}

// Finalize flushes every object's remaining buffered rows at endTime
// and aggregates each object's time-sharded attribute csvs into one
// file per attribute type, per spec §4.8 step 4.
func (t *Tracks) Finalize(fsys fsutil.FileSystem, endTime time.Time) error {
	for _, name := range t.order {
		st := t.objects[name]
		if st.table != nil {
			if path, err := st.table.Flush(fsys, t.Paths.Root, endTime); err != nil {
				return err
			} else if path != "" {
				st.flushedPaths = append(st.flushedPaths, path)
			}
			if len(st.flushedPaths) > 0 {
				out := t.Paths.AttributesDir() + "/" + name + "/" + st.table.Type.Name + ".csv"
				if err := attribute.Aggregate(fsys, st.flushedPaths, out, st.table.IndexColumns); err != nil {
					return err
				}
			}
		}
		for member, tbl := range st.memberTables {
			if path, err := tbl.Flush(fsys, t.Paths.Root, endTime); err != nil {
				return err
			} else if path != "" {
				st.memberFlushedPaths[member] = append(st.memberFlushedPaths[member], path)
			}
			paths := st.memberFlushedPaths[member]
			if len(paths) == 0 {
				continue
			}
			out := t.Paths.AttributesDir() + "/" + name + "/" + member + "/" + tbl.Type.Name + ".csv"
			if err := attribute.Aggregate(fsys, paths, out, tbl.IndexColumns); err != nil {
				return err
			}
		}
	}
	return nil
}

// FlushedMemberPaths returns every attribute csv shard member has
// flushed so far for objectName, for Finalize's end-of-run aggregation.
func (t *Tracks) FlushedMemberPaths(objectName, member string) []string {
	st, ok := t.objects[objectName]
	if !ok {
		return nil
	}
	return st.memberFlushedPaths[member]
}
