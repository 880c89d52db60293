package kinematics

import (
	"github.com/banshee-data/wormtrack/internal/config"
	"github.com/banshee-data/wormtrack/internal/trajectory"
	"github.com/banshee-data/wormtrack/internal/units"
)

// Result holds every kinematic metric of one trajectory.
type Result struct {
	Well       string
	Distance   Distance
	Speed      Speed
	Turning    Turning
	Meandering float64
	Center     Region
}

// Meandering is the total absolute turn (degree) per distance travelled,
// scaled to degree/m. A trajectory that never moves has zero meandering.
func Meandering(totalTurn, totalDistance float64, decimals int) float64 {
	if totalDistance == 0 {
		return 0
	}
	return units.Round(totalTurn/totalDistance*100, decimals)
}

// Analyze runs the kinematic pipeline for one well. Configuration errors
// (bad interval, missing centre) are reported before any metric is
// computed.
func Analyze(t *trajectory.Table, well string, cfg *config.AnalysisConfig) (*Result, error) {
	if err := config.ValidateInterval(cfg.FrameRate, cfg.Interval); err != nil {
		return nil, err
	}
	if _, err := cfg.RegionCenter(config.KeyCenter, well); err != nil {
		return nil, err
	}

	dist := StepDistances(t, cfg.ConversionRate, cfg.Decimals)
	speed := Speeds(dist, cfg)

	turning, err := Turn(t, cfg)
	if err != nil {
		return nil, err
	}

	center, err := AnalyzeRegion(t, config.KeyCenter, well, cfg)
	if err != nil {
		return nil, err
	}

	return &Result{
		Well:       well,
		Distance:   dist,
		Speed:      speed,
		Turning:    turning,
		Meandering: Meandering(turning.TotalAbs, dist.Total, cfg.Decimals),
		Center:     center,
	}, nil
}
