// Package attribute implements the per-object attribute subsystem: a
// typed retrieval registry (replacing the source's string-keyed dynamic
// dispatch), the concrete core/ellipse/quality/profile/tag retrievals,
// and the in-memory table with its periodic csv flush and post-run
// aggregation.
package attribute

import (
	"fmt"
	"time"

	"github.com/thuner-project/thuner/internal/detect"
	"github.com/thuner-project/thuner/internal/geo"
	"github.com/thuner-project/thuner/internal/identity"
)

// RetrievalKind enumerates every attribute retrieval function this
// module implements, replacing the source's lookup-by-string dispatch.
type RetrievalKind int

const (
	RetrieveCoreID RetrievalKind = iota
	RetrieveCoreCoordinates
	RetrieveCoreArea
	RetrieveCoreFlowVelocity
	RetrieveCoreDisplacementVelocity
	RetrieveCoreParents
	RetrieveEllipse
	RetrieveQualityBoundaryOverlap
	RetrieveProfile
	RetrieveTag
)

func (k RetrievalKind) String() string {
	switch k {
	case RetrieveCoreID:
		return "core.id"
	case RetrieveCoreCoordinates:
		return "core.coordinates"
	case RetrieveCoreArea:
		return "core.area"
	case RetrieveCoreFlowVelocity:
		return "core.flow_velocity"
	case RetrieveCoreDisplacementVelocity:
		return "core.displacement_velocity"
	case RetrieveCoreParents:
		return "core.parents"
	case RetrieveEllipse:
		return "ellipse"
	case RetrieveQualityBoundaryOverlap:
		return "quality.boundary_overlap"
	case RetrieveProfile:
		return "profile"
	case RetrieveTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Attribute describes a single output column.
type Attribute struct {
	Name        string
	DataType    string // "int", "float", "string"
	Precision   int    // decimal places for float columns
	Units       string
	Description string
}

// AttributeGroup is a set of Attributes sharing one retrieval call (e.g.
// a coordinates group that returns both latitude and longitude from a
// single pass over the object list).
type AttributeGroup struct {
	Attributes []Attribute
	Retrieval  RetrievalKind
	Args       RetrievalArgs
}

// AttributeType is one named table (core, ellipse, quality, profile,
// tag, ...) written to its own csv per §4.7.
type AttributeType struct {
	Name   string
	Groups []AttributeGroup
}

// ObjectStep is the subset of a match step's bookkeeping every
// retrieval needs, handed in by the track loop rather than importing
// the match package's Record type directly: attribute retrievals only
// ever need this projection, never the matcher's cost-matrix internals.
type ObjectStep struct {
	UniversalID          identity.UniversalID
	Label                int
	CentreRow, CentreCol float64
	FlowVector           geo.Vector2 // uncorrected local flow, pixel units
	Displacement         geo.Vector2 // corrected flow / centre-to-centre displacement, pixel units
	AreaKm2              float32
	Parents              []identity.UniversalID
}

// SecondaryDataset resolves profile/tag retrievals against a secondary
// dataset (e.g. a reanalysis field) at an object's centre coordinates.
// Supplied by the adapter, never implemented by the core.
type SecondaryDataset interface {
	InterpolateProfile(variable string, centreLat, centreLon float32, altitudes []float32, timeOffsets []float64) ([]float64, error)
	InterpolateTag(variable string, centreLat, centreLon float32, timeOffset float64) (float64, error)
}

// RetrievalContext is everything a retrieval function may consult for
// the current step: the object list (in step order), the mask and grid
// it was detected on, and (for grouped objects) which member it
// concerns.
type RetrievalContext struct {
	Time         time.Time
	DtSeconds    float64
	Grid         *geo.Grid
	Mask         *detect.Mask
	BoundaryMask [][]bool
	Objects      []ObjectStep
	Member       string
	Secondary    SecondaryDataset
}

// RetrievalArgs is the keyword-argument struct every retrieval receives
// in place of the source's **kwargs.
type RetrievalArgs struct {
	Variable        string
	Altitudes       []float32
	TimeOffsets     []float64
	BoundaryEpsilon float32
}

// RetrieveFunc is the signature every registered retrieval implements:
// it returns one or more columns, aligned to ctx.Objects order.
type RetrieveFunc func(RetrievalContext, RetrievalArgs) (map[string][]any, error)

// Registry maps every RetrievalKind to its implementation, populated at
// package init so no retrieval is ever looked up by an unchecked string.
var Registry = map[RetrievalKind]RetrieveFunc{}

func init() {
	Registry[RetrieveCoreID] = retrieveCoreID
	Registry[RetrieveCoreCoordinates] = retrieveCoreCoordinates
	Registry[RetrieveCoreArea] = retrieveCoreArea
	Registry[RetrieveCoreFlowVelocity] = retrieveCoreFlowVelocity
	Registry[RetrieveCoreDisplacementVelocity] = retrieveCoreDisplacementVelocity
	Registry[RetrieveCoreParents] = retrieveCoreParents
	Registry[RetrieveEllipse] = retrieveEllipse
	Registry[RetrieveQualityBoundaryOverlap] = retrieveQualityBoundaryOverlap
	Registry[RetrieveProfile] = retrieveProfile
	Registry[RetrieveTag] = retrieveTag
}

// Retrieve dispatches to the registered function for kind.
func Retrieve(kind RetrievalKind, ctx RetrievalContext, args RetrievalArgs) (map[string][]any, error) {
	fn, ok := Registry[kind]
	if !ok {
		return nil, fmt.Errorf("attribute.Retrieve: no retrieval registered for %v", kind)
	}
	return fn(ctx, args)
}

// RetrieveType runs every group of t in order and merges their columns
// into one row set for this step.
func RetrieveType(t AttributeType, ctx RetrievalContext) (map[string][]any, error) {
	out := map[string][]any{}
	for _, g := range t.Groups {
		cols, err := Retrieve(g.Retrieval, ctx, g.Args)
		if err != nil {
			return nil, fmt.Errorf("attribute.RetrieveType: %s/%v: %w", t.Name, g.Retrieval, err)
		}
		for k, v := range cols {
			out[k] = v
		}
	}
	return out, nil
}
