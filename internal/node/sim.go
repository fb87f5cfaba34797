package node

import (
	"math/rand"

	"github.com/rtorralba/floodwatch/internal/classify"
)

// Simulator is a random-walk stand-in for the real sensor pair, for local
// development and load testing without hardware. Rain drifts slowly so
// classifications change on realistic timescales; water distance tracks the
// rain regime with lag, the way a creek rises after rain sets in.
type Simulator struct {
	rng        *rand.Rand
	rainAnalog float64
	distanceCM float64
	// NoEchoChance is the per-read probability of simulating an
	// ultrasonic timeout.
	NoEchoChance float64
}

func NewSimulator(seed int64) *Simulator {
	rng := rand.New(rand.NewSource(seed))
	return &Simulator{
		rng:          rng,
		rainAnalog:   3800,
		distanceCM:   120,
		NoEchoChance: 0.01,
	}
}

func (s *Simulator) Read() (Sample, error) {
	s.rainAnalog += s.rng.NormFloat64() * 60
	if s.rainAnalog < 0 {
		s.rainAnalog = 0
	}
	if s.rainAnalog > classify.MaxRainAnalog {
		s.rainAnalog = classify.MaxRainAnalog
	}

	// Wetter rain regime pulls the water level up (distance down).
	target := 20 + (s.rainAnalog/classify.MaxRainAnalog)*180
	s.distanceCM += (target-s.distanceCM)*0.05 + s.rng.NormFloat64()*2
	if s.distanceCM < 2 {
		s.distanceCM = 2
	}
	if s.distanceCM > classify.NoEchoDistanceCM {
		s.distanceCM = classify.NoEchoDistanceCM
	}

	sample := Sample{
		RainAnalog: int(s.rainAnalog),
		DistanceCM: s.distanceCM,
	}
	if s.rng.Float64() < s.NoEchoChance {
		sample.NoEcho = true
	}
	return sample, nil
}
