package detect

import (
	"fmt"

	"github.com/thuner-project/thuner/internal/geo"
	"github.com/thuner-project/thuner/internal/options"
	"github.com/thuner-project/thuner/internal/trackerr"
)

// Mask is a labeled 2-D object mask. A nil *Mask represents an empty
// detection result (no objects above the minimum area survived).
type Mask struct {
	Labels    [][]int
	NumLabels int
}

// Run flattens field, classifies it as convective per o.Method, labels
// connected components, and drops components below o.MinAreaKm2. It
// returns (nil, nil) when every component is filtered out, matching the
// source implementation's "mask is None" empty result.
func Run(field Field3D, altitudeCoords []float32, g *geo.Grid, cellAreas [][]float32, o options.DetectOptions) (*Mask, error) {
	flattened, err := Flatten(field, altitudeCoords, o)
	if err != nil {
		return nil, trackerr.New(trackerr.KindConfig, "detect.Run", err)
	}
	if o.Smooth {
		flattened = Preprocess(flattened)
	}

	var binary [][]bool
	switch o.Method {
	case "threshold":
		if o.Threshold == nil {
			return nil, trackerr.New(trackerr.KindConfig, "detect.Run", fmt.Errorf("threshold method requires a threshold"))
		}
		binary = Threshold(flattened, *o.Threshold)
	case "steiner":
		binary, err = Steiner(flattened, g, o)
		if err != nil {
			return nil, trackerr.New(trackerr.KindConfig, "detect.Run", err)
		}
	default:
		return nil, trackerr.New(trackerr.KindConfig, "detect.Run", fmt.Errorf("unknown detection method %q", o.Method))
	}

	labels := ConnectedComponents(binary)
	labels, numLabels := FilterByArea(labels, cellAreas, o.MinAreaKm2)
	if numLabels == 0 {
		return nil, nil
	}
	return &Mask{Labels: labels, NumLabels: numLabels}, nil
}
