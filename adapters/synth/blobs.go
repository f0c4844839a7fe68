package synth

import (
	"math"
	"math/rand"

	"goconform/domain/core"
)

// BlobsConfig controls Gaussian blob generation
type BlobsConfig struct {
	Samples    int     `json:"samples"`
	Features   int     `json:"features"`
	Classes    int     `json:"classes"`
	Spread     float64 `json:"spread"`
	Separation float64 `json:"separation"`
}

// DefaultBlobsConfig returns a three-class layout whose clusters
// overlap just enough to keep prediction sets interesting
func DefaultBlobsConfig() BlobsConfig {
	return BlobsConfig{
		Samples:    1200,
		Features:   2,
		Classes:    3,
		Spread:     1.0,
		Separation: 6.0,
	}
}

// Dataset is a labeled sample matrix plus the generating centers
type Dataset struct {
	X       [][]float64
	Y       []int
	Centers [][]float64
}

// BlobsGenerator samples isotropic Gaussian clusters with class
// centers spaced on a circle
type BlobsGenerator struct{}

// NewBlobsGenerator creates a blob generator
func NewBlobsGenerator() *BlobsGenerator {
	return &BlobsGenerator{}
}

// Generate draws a balanced labeled dataset. All randomness comes
// from rng, so a seeded stream reproduces the dataset exactly.
func (g *BlobsGenerator) Generate(cfg BlobsConfig, rng *rand.Rand) (*Dataset, error) {
	if err := validateBlobsConfig(cfg); err != nil {
		return nil, err
	}

	centers := classCenters(cfg)

	X := make([][]float64, 0, cfg.Samples)
	y := make([]int, 0, cfg.Samples)

	perClass := cfg.Samples / cfg.Classes
	remainder := cfg.Samples % cfg.Classes
	for class := 0; class < cfg.Classes; class++ {
		count := perClass
		if class < remainder {
			count++
		}
		for i := 0; i < count; i++ {
			row := make([]float64, cfg.Features)
			for f := 0; f < cfg.Features; f++ {
				row[f] = centers[class][f] + rng.NormFloat64()*cfg.Spread
			}
			X = append(X, row)
			y = append(y, class)
		}
	}

	return &Dataset{X: X, Y: y, Centers: centers}, nil
}

// Params describes the generation inputs for dataset fingerprinting
func (cfg BlobsConfig) Params(seed int64) map[string]interface{} {
	return map[string]interface{}{
		"samples":    cfg.Samples,
		"features":   cfg.Features,
		"classes":    cfg.Classes,
		"spread":     cfg.Spread,
		"separation": cfg.Separation,
		"seed":       seed,
	}
}

func validateBlobsConfig(cfg BlobsConfig) error {
	if cfg.Classes < 2 {
		return core.NewConfigurationError("classes", "must be at least 2")
	}
	if cfg.Features < 1 {
		return core.NewConfigurationError("features", "must be at least 1")
	}
	if cfg.Samples < cfg.Classes {
		return core.NewConfigurationError("samples", "must cover every class")
	}
	if cfg.Spread <= 0 {
		return core.NewConfigurationError("spread", "must be positive")
	}
	if cfg.Separation <= 0 {
		return core.NewConfigurationError("separation", "must be positive")
	}
	return nil
}

// classCenters spaces centers evenly on a circle in the first two
// dimensions; with one feature they fall on a line instead
func classCenters(cfg BlobsConfig) [][]float64 {
	centers := make([][]float64, cfg.Classes)
	for class := range centers {
		center := make([]float64, cfg.Features)
		if cfg.Features == 1 {
			center[0] = cfg.Separation * float64(class)
		} else {
			angle := 2 * math.Pi * float64(class) / float64(cfg.Classes)
			center[0] = cfg.Separation * math.Cos(angle)
			center[1] = cfg.Separation * math.Sin(angle)
		}
		centers[class] = center
	}
	return centers
}
