package options

import (
	"fmt"

	"github.com/ghodss/yaml"
	"github.com/thuner-project/thuner/internal/trackerr"
)

// GridOptions describes a single field's coordinate system.
// Field names mirror the teacher's config.TuningConfig style: pointer
// fields are optional and left nil when the caller wants a package
// default, non-pointer fields are required.
type GridOptions struct {
	Name string `json:"name"` // "geographic" or "cartesian"

	Latitude  []float32 `json:"latitude,omitempty"`
	Longitude []float32 `json:"longitude,omitempty"`
	Y         []float32 `json:"y,omitempty"`
	X         []float32 `json:"x,omitempty"`
	Altitude  []float32 `json:"altitude,omitempty"`

	GeographicSpacing *[2]float32 `json:"geographic_spacing,omitempty"` // (dlat, dlon) degrees
	CartesianSpacing  *[2]float32 `json:"cartesian_spacing,omitempty"`  // (dy, dx) metres

	CentralLatitude  *float32 `json:"central_latitude,omitempty"`
	CentralLongitude *float32 `json:"central_longitude,omitempty"`
}

// Validate enforces the grid invariants that can be checked without a
// concrete field: strictly monotonic coordinate arrays and a name drawn
// from the two supported grid kinds.
func (o *GridOptions) Validate() error {
	switch o.Name {
	case "geographic":
		if len(o.Latitude) < 2 || len(o.Longitude) < 2 {
			return configErr("GridOptions.Validate", fmt.Errorf("geographic grid requires latitude and longitude arrays"))
		}
		if err := strictlyMonotonic(o.Latitude); err != nil {
			return configErr("GridOptions.Validate", fmt.Errorf("latitude: %w", err))
		}
		if err := strictlyMonotonic(o.Longitude); err != nil {
			return configErr("GridOptions.Validate", fmt.Errorf("longitude: %w", err))
		}
	case "cartesian":
		if len(o.Y) < 2 || len(o.X) < 2 {
			return configErr("GridOptions.Validate", fmt.Errorf("cartesian grid requires y and x arrays"))
		}
		if o.CentralLatitude == nil || o.CentralLongitude == nil {
			return configErr("GridOptions.Validate", fmt.Errorf("cartesian grid requires a central lat/lon projection origin"))
		}
	default:
		return configErr("GridOptions.Validate", fmt.Errorf("unknown grid name %q", o.Name))
	}
	return nil
}

func strictlyMonotonic(v []float32) error {
	if len(v) < 2 {
		return nil
	}
	ascending := v[1] > v[0]
	for i := 1; i < len(v); i++ {
		if ascending && v[i] <= v[i-1] {
			return fmt.Errorf("not strictly increasing at index %d", i)
		}
		if !ascending && v[i] >= v[i-1] {
			return fmt.Errorf("not strictly decreasing at index %d", i)
		}
	}
	return nil
}

// DetectOptions configures the Detector.
type DetectOptions struct {
	Method        string     `json:"method"` // "threshold" or "steiner"
	Altitudes     [2]float32 `json:"altitudes"`
	Threshold     *float32   `json:"threshold,omitempty"`
	FlattenMethod string     `json:"flatten_method"` // "vertical_max" or "cross_section"
	MinAreaKm2    float32    `json:"min_area_km2"`
	Smooth        bool       `json:"smooth,omitempty"`
	RadiusOption  string     `json:"radius_option,omitempty"`  // Steiner radius shift variant
	DeltaZOption  string     `json:"delta_z_option,omitempty"` // Steiner delta-Z shift variant
}

func (o *DetectOptions) Validate() error {
	switch o.Method {
	case "threshold":
		if o.Threshold == nil {
			return configErr("DetectOptions.Validate", fmt.Errorf("threshold method requires a threshold value"))
		}
	case "steiner":
		// radius_option/delta_z_option default when empty; no fatal check.
	default:
		return configErr("DetectOptions.Validate", fmt.Errorf("unknown detection method %q", o.Method))
	}
	switch o.FlattenMethod {
	case "vertical_max", "cross_section":
	default:
		return configErr("DetectOptions.Validate", fmt.Errorf("unknown flatten method %q", o.FlattenMethod))
	}
	if o.MinAreaKm2 < 0 {
		return configErr("DetectOptions.Validate", fmt.Errorf("min_area_km2 must be >= 0"))
	}
	return nil
}

// FlowOptions configures the phase-correlation flow engine.
type FlowOptions struct {
	LocalFlowMarginKm  float32 `json:"local_flow_margin_km"`
	GlobalFlowMarginKm float32 `json:"global_flow_margin_km"`
	UniqueGlobalFlow   bool    `json:"unique_global_flow"`
}

func (o *FlowOptions) Validate() error {
	if o.LocalFlowMarginKm <= 0 || o.GlobalFlowMarginKm <= 0 {
		return configErr("FlowOptions.Validate", fmt.Errorf("flow margins must be positive"))
	}
	return nil
}

// MatchOptions configures the Matcher.
type MatchOptions struct {
	SearchMarginKm       float32 `json:"search_margin_km"`
	MaxCost              float32 `json:"max_cost"`
	MaxShiftDisparity    float32 `json:"max_shift_disparity"`     // max_diff in shifts_disagree
	MaxShiftDisparityAlt float32 `json:"max_shift_disparity_alt"` // max_diff_alt for the MINT variant
	UseMINT              bool    `json:"use_mint"`
	SplitOverlapFraction float32 `json:"split_overlap_fraction"`
}

func (o *MatchOptions) Validate() error {
	if o.MaxCost <= 0 {
		return configErr("MatchOptions.Validate", fmt.Errorf("max_cost must be positive"))
	}
	if o.SplitOverlapFraction < 0 || o.SplitOverlapFraction > 1 {
		return configErr("MatchOptions.Validate", fmt.Errorf("split_overlap_fraction must be in [0,1]"))
	}
	return nil
}

// GroupOptions configures the Grouper.
type GroupOptions struct {
	MemberObjects []string `json:"member_objects"` // ordered, lowest altitude band first
	MatchedObject string   `json:"matched_object"` // which member the Matcher tracks
}

func (o *GroupOptions) Validate() error {
	if len(o.MemberObjects) < 2 {
		return configErr("GroupOptions.Validate", fmt.Errorf("grouping requires at least two member object types"))
	}
	found := false
	for _, m := range o.MemberObjects {
		if m == o.MatchedObject {
			found = true
		}
	}
	if !found {
		return configErr("GroupOptions.Validate", fmt.Errorf("matched_object %q is not among member_objects", o.MatchedObject))
	}
	return nil
}

// AttributeOptions configures the attribute flush/aggregation policy.
type AttributeOptions struct {
	WriteIntervalHours float64 `json:"write_interval_hours"`
}

func (o *AttributeOptions) Validate() error {
	if o.WriteIntervalHours <= 0 {
		return configErr("AttributeOptions.Validate", fmt.Errorf("write_interval_hours must be positive"))
	}
	return nil
}

// TrackOptions configures the per-object-type hierarchy run by the track
// loop.
type TrackOptions struct {
	ObjectName  string           `json:"object_name"`
	Variable    string           `json:"variable"`
	DequeLength int              `json:"deque_length"`
	SaveMasks   bool             `json:"save_masks"`
	Detect      *DetectOptions   `json:"detect,omitempty"`
	Group       *GroupOptions    `json:"group,omitempty"`
	Flow        FlowOptions      `json:"flow"`
	Match       MatchOptions     `json:"match"`
	Attribute   AttributeOptions `json:"attribute"`
}

func (o *TrackOptions) Validate() error {
	if o.ObjectName == "" {
		return configErr("TrackOptions.Validate", fmt.Errorf("object_name is required"))
	}
	if o.Variable == "" && o.Group == nil {
		return configErr("TrackOptions.Validate", fmt.Errorf("object %q needs a variable to detect on", o.ObjectName))
	}
	if o.DequeLength < 2 {
		return configErr("TrackOptions.Validate", fmt.Errorf("deque_length must be >= 2"))
	}
	if o.Detect == nil && o.Group == nil {
		return configErr("TrackOptions.Validate", fmt.Errorf("object %q needs either detect or group options", o.ObjectName))
	}
	if o.Detect != nil {
		if err := o.Detect.Validate(); err != nil {
			return err
		}
	}
	if o.Group != nil {
		if err := o.Group.Validate(); err != nil {
			return err
		}
	}
	if err := o.Flow.Validate(); err != nil {
		return err
	}
	if err := o.Match.Validate(); err != nil {
		return err
	}
	if err := o.Attribute.Validate(); err != nil {
		return err
	}
	return nil
}

// VisualizeOptions configures the optional runtime/diagnostic visualiser.
// Disabled by default: the core never depends on this for correctness.
type VisualizeOptions struct {
	Enabled       bool   `json:"enabled"`
	TrackPathsOut string `json:"track_paths_out,omitempty"`
}

// AnalysisOptions configures the post-run analysis pass.
type AnalysisOptions struct {
	SmoothingWindow      int     `json:"smoothing_window"`
	MinContainedFraction float32 `json:"min_contained_fraction"`
}

func (o *AnalysisOptions) Validate() error {
	if o.SmoothingWindow < 1 {
		return configErr("AnalysisOptions.Validate", fmt.Errorf("smoothing_window must be >= 1"))
	}
	if o.MinContainedFraction < 0 || o.MinContainedFraction > 1 {
		return configErr("AnalysisOptions.Validate", fmt.Errorf("min_contained_fraction must be in [0,1]"))
	}
	return nil
}

// RunOptions aggregates every options struct a single run needs and is
// the top-level unit serialised to <out>/options/*.yml.
type RunOptions struct {
	Grid      GridOptions      `json:"grid"`
	Track     []TrackOptions   `json:"track"`
	Visualize VisualizeOptions `json:"visualize"`
	Analysis  AnalysisOptions  `json:"analysis"`
}

// Validate runs every nested Validate and fails fast on the first
// configuration error.
func (o *RunOptions) Validate() error {
	if err := o.Grid.Validate(); err != nil {
		return err
	}
	if len(o.Track) == 0 {
		return configErr("RunOptions.Validate", fmt.Errorf("at least one track object must be configured"))
	}
	seen := map[string]bool{}
	for i := range o.Track {
		if err := o.Track[i].Validate(); err != nil {
			return err
		}
		if seen[o.Track[i].ObjectName] {
			return configErr("RunOptions.Validate", fmt.Errorf("duplicate object_name %q", o.Track[i].ObjectName))
		}
		seen[o.Track[i].ObjectName] = true
	}
	if err := o.Analysis.Validate(); err != nil {
		return err
	}
	return nil
}

// MarshalYAML serialises RunOptions using the ghodss/yaml codec, which
// round-trips through the same encoding/json tags every struct above
// already carries (mirroring the teacher's config.TuningConfig tagging
// convention) rather than introducing a second set of yaml struct tags.
func (o *RunOptions) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(o)
}

// UnmarshalRunOptionsYAML parses a YAML options file into a validated
// RunOptions value.
func UnmarshalRunOptionsYAML(data []byte) (*RunOptions, error) {
	var o RunOptions
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, trackerr.New(trackerr.KindConfig, "UnmarshalRunOptionsYAML", err)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

func configErr(op string, err error) error {
	return trackerr.New(trackerr.KindConfig, op, err)
}
