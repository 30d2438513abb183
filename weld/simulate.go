package weld

import (
	"context"
	"math"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

const (
	// DefectThreshold is the probability at or above which a weld is labelled defective.
	DefectThreshold = 0.5

	DefaultLengthMm = 100.0
	DefaultSegments = 10
	MaxSegments     = 10000
)

// DefectLabel maps a defect probability to 0 or 1.
func DefectLabel(p float64) int {
	if p >= DefectThreshold {
		return 1
	}
	return 0
}

func round(v float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))
	return math.Round(v*pow) / pow
}

// TrajectoryPoint is one segment of a simulated weld pass.
type TrajectoryPoint struct {
	PositionMm        float64 `json:"position_mm"`
	TravelSpeed       float64 `json:"travel_speed"`
	TorchAngle        float64 `json:"torch_angle"`
	PenetrationMm     float64 `json:"penetration_mm"`
	BeadWidthMm       float64 `json:"bead_width_mm"`
	DefectProbability float64 `json:"defect_probability"`
	DefectLabel       int     `json:"defect_label"`
}

// SimulateTrajectory sweeps travel speed and torch angle over one period
// along a pass of lengthMm and predicts every segment.
func SimulateTrajectory(ctx context.Context, bank *ModelBank, base FeatureVector, lengthMm float64, segments int) (points []TrajectoryPoint, err error) {
	defer errors.Recover(&err, "SimulateTrajectory")

	if math.IsNaN(lengthMm) || math.IsInf(lengthMm, 0) || lengthMm < 0 {
		return nil, errors.NewInvalidInputError("length_mm", lengthMm, "must be a finite number >= 0")
	}
	if segments < 1 || segments > MaxSegments {
		return nil, errors.NewInvalidInputError("segments", segments, "must be between 1 and 10000")
	}
	if bank == nil {
		return nil, errors.NewPredictionError("SimulateTrajectory", errors.New("no model bank loaded"))
	}

	denom := float64(max(1, segments-1))
	points = make([]TrajectoryPoint, 0, segments)
	for i := 0; i < segments; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewPredictionError("SimulateTrajectory", err)
		}

		frac := float64(i) / denom
		v := base
		v[IdxTravelSpeed] = base[IdxTravelSpeed] * (1 + 0.05*math.Sin(2*math.Pi*frac))
		v[IdxTorchAngle] = base[IdxTorchAngle] + 0.5*math.Cos(2*math.Pi*frac)

		res, err := bank.PredictVector(v)
		if err != nil {
			return nil, err
		}
		points = append(points, TrajectoryPoint{
			PositionMm:        round(frac*lengthMm, 3),
			TravelSpeed:       round(v[IdxTravelSpeed], 4),
			TorchAngle:        round(v[IdxTorchAngle], 4),
			PenetrationMm:     res.PenetrationMm,
			BeadWidthMm:       res.BeadWidthMm,
			DefectProbability: res.DefectProbability,
			DefectLabel:       res.DefectLabel,
		})
	}
	return points, nil
}
