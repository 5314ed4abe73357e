package options

import (
	"strings"
	"testing"
)

func validGrid() GridOptions {
	return GridOptions{
		Name:      "geographic",
		Latitude:  []float32{-30, -29.975, -29.95},
		Longitude: []float32{140, 140.025, 140.05},
	}
}

func validDetect() *DetectOptions {
	threshold := float32(30)
	return &DetectOptions{
		Method:        "threshold",
		Altitudes:     [2]float32{0, 3000},
		Threshold:     &threshold,
		FlattenMethod: "vertical_max",
		MinAreaKm2:    10,
	}
}

func validTrack() TrackOptions {
	return TrackOptions{
		ObjectName:  "cell",
		Variable:    "reflectivity",
		DequeLength: 2,
		Detect:      validDetect(),
		Flow: FlowOptions{
			LocalFlowMarginKm:  20,
			GlobalFlowMarginKm: 150,
		},
		Match: MatchOptions{
			MaxCost: 10,
		},
		Attribute: AttributeOptions{
			WriteIntervalHours: 1,
		},
	}
}

func TestGridOptionsValidate_Geographic(t *testing.T) {
	g := validGrid()
	if err := g.Validate(); err != nil {
		t.Fatalf("expected valid geographic grid, got %v", err)
	}
}

func TestGridOptionsValidate_NonMonotonicLatitude(t *testing.T) {
	g := validGrid()
	g.Latitude = []float32{-30, -30, -29.95}
	if err := g.Validate(); err == nil {
		t.Fatal("expected error for non-monotonic latitude")
	}
}

func TestGridOptionsValidate_DescendingIsMonotonic(t *testing.T) {
	g := validGrid()
	g.Latitude = []float32{-29.95, -29.975, -30}
	if err := g.Validate(); err != nil {
		t.Fatalf("descending latitude should still be strictly monotonic, got %v", err)
	}
}

func TestGridOptionsValidate_UnknownName(t *testing.T) {
	g := validGrid()
	g.Name = "polar"
	if err := g.Validate(); err == nil {
		t.Fatal("expected error for unknown grid name")
	}
}

func TestGridOptionsValidate_CartesianRequiresOrigin(t *testing.T) {
	g := GridOptions{Name: "cartesian", Y: []float32{0, 1000}, X: []float32{0, 1000}}
	if err := g.Validate(); err == nil {
		t.Fatal("expected error for cartesian grid missing projection origin")
	}
}

func TestDetectOptionsValidate_ThresholdRequiresValue(t *testing.T) {
	d := DetectOptions{Method: "threshold", FlattenMethod: "vertical_max"}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error when threshold method has no threshold")
	}
}

func TestDetectOptionsValidate_UnknownFlattenMethod(t *testing.T) {
	d := validDetect()
	d.FlattenMethod = "sideways"
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for unknown flatten method")
	}
}

func TestDetectOptionsValidate_NegativeMinArea(t *testing.T) {
	d := validDetect()
	d.MinAreaKm2 = -1
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for negative min_area_km2")
	}
}

func TestGroupOptionsValidate_MatchedObjectMustBeMember(t *testing.T) {
	g := GroupOptions{MemberObjects: []string{"low", "middle"}, MatchedObject: "high"}
	if err := g.Validate(); err == nil {
		t.Fatal("expected error when matched_object is not a member")
	}
}

func TestGroupOptionsValidate_RequiresTwoMembers(t *testing.T) {
	g := GroupOptions{MemberObjects: []string{"low"}, MatchedObject: "low"}
	if err := g.Validate(); err == nil {
		t.Fatal("expected error with fewer than two member objects")
	}
}

func TestTrackOptionsValidate_RequiresDetectOrGroup(t *testing.T) {
	tr := validTrack()
	tr.Detect = nil
	if err := tr.Validate(); err == nil {
		t.Fatal("expected error when neither detect nor group options are set")
	}
}

func TestTrackOptionsValidate_DequeLengthTooShort(t *testing.T) {
	tr := validTrack()
	tr.DequeLength = 1
	if err := tr.Validate(); err == nil {
		t.Fatal("expected error for deque_length below 2")
	}
}

func TestRunOptionsValidate_Full(t *testing.T) {
	ro := RunOptions{
		Grid:     validGrid(),
		Track:    []TrackOptions{validTrack()},
		Analysis: AnalysisOptions{SmoothingWindow: 3, MinContainedFraction: 0.5},
	}
	if err := ro.Validate(); err != nil {
		t.Fatalf("expected valid RunOptions, got %v", err)
	}
}

func TestRunOptionsValidate_DuplicateObjectName(t *testing.T) {
	ro := RunOptions{
		Grid:     validGrid(),
		Track:    []TrackOptions{validTrack(), validTrack()},
		Analysis: AnalysisOptions{SmoothingWindow: 1},
	}
	if err := ro.Validate(); err == nil {
		t.Fatal("expected error for duplicate object_name")
	}
}

func TestRunOptionsValidate_RequiresAtLeastOneTrackObject(t *testing.T) {
	ro := RunOptions{Grid: validGrid(), Analysis: AnalysisOptions{SmoothingWindow: 1}}
	if err := ro.Validate(); err == nil {
		t.Fatal("expected error when no track objects are configured")
	}
}

func TestRunOptionsYAMLRoundTrip(t *testing.T) {
	ro := RunOptions{
		Grid:     validGrid(),
		Track:    []TrackOptions{validTrack()},
		Analysis: AnalysisOptions{SmoothingWindow: 3, MinContainedFraction: 0.5},
	}
	data, err := ro.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML failed: %v", err)
	}
	if !strings.Contains(string(data), "object_name: cell") {
		t.Fatalf("expected marshalled YAML to contain object_name: cell, got %s", data)
	}

	back, err := UnmarshalRunOptionsYAML(data)
	if err != nil {
		t.Fatalf("UnmarshalRunOptionsYAML failed: %v", err)
	}
	if back.Track[0].ObjectName != "cell" {
		t.Errorf("round trip lost ObjectName: got %q", back.Track[0].ObjectName)
	}
	if back.Track[0].Detect == nil || back.Track[0].Detect.Method != "threshold" {
		t.Errorf("round trip lost Detect.Method")
	}
}

func TestUnmarshalRunOptionsYAML_InvalidFailsValidation(t *testing.T) {
	_, err := UnmarshalRunOptionsYAML([]byte("grid:\n  name: polar\n"))
	if err == nil {
		t.Fatal("expected error for a grid with an unknown name")
	}
}
