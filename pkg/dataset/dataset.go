// Package dataset generates the synthetic classification sets the
// trainer fits on: Gaussian blobs around per-class centers, fully
// determined by the seed.
package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// Set is a labeled sample collection. Features[i] belongs to Labels[i].
type Set struct {
	Features [][]float64
	Labels   []int
}

func (s Set) Len() int {
	return len(s.Features)
}

// Config tunes Generate. Zero values fall back to defaults.
type Config struct {
	Samples int   // default 1000
	Dim     int   // default 20
	Classes int   // default 2
	Seed    int64 // default 42

	// distance between neighboring class centers on every axis.
	// default 3.
	Separation float64

	// stddev of each blob around its center. default 1.
	Spread float64
}

// WithDefaults fills the zero fields in. Generate applies it itself;
// callers needing the effective values (the seed, say) can too.
func (c Config) WithDefaults() Config {
	if c.Samples == 0 {
		c.Samples = 1000
	}
	if c.Dim == 0 {
		c.Dim = 20
	}
	if c.Classes == 0 {
		c.Classes = 2
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.Separation == 0 {
		c.Separation = 3
	}
	if c.Spread == 0 {
		c.Spread = 1
	}
	return c
}

// Params describes the effective generation configuration, for run
// tracking.
func (c Config) Params() map[string]string {
	c = c.WithDefaults()
	return map[string]string{
		"n_samples":  fmt.Sprintf("%d", c.Samples),
		"n_features": fmt.Sprintf("%d", c.Dim),
		"n_classes":  fmt.Sprintf("%d", c.Classes),
		"seed":       fmt.Sprintf("%d", c.Seed),
		"separation": fmt.Sprintf("%g", c.Separation),
		"spread":     fmt.Sprintf("%g", c.Spread),
	}
}

// Generate draws a synthetic classification set. The same Config
// always yields the same set.
//
// Class k is a Gaussian blob centered at (k*Separation, ...,
// k*Separation); labels cycle over the classes, so the set is
// balanced up to a remainder of one sample.
func Generate(conf Config) (Set, error) {
	conf = conf.WithDefaults()

	if conf.Samples < conf.Classes {
		return Set{}, fmt.Errorf(
			"%d samples cannot cover %d classes", conf.Samples, conf.Classes,
		)
	}
	if conf.Dim < 1 || conf.Classes < 2 {
		return Set{}, fmt.Errorf(
			"degenerate dataset: dim = %d, classes = %d", conf.Dim, conf.Classes,
		)
	}

	rng := rand.New(rand.NewSource(conf.Seed))

	s := Set{
		Features: make([][]float64, conf.Samples),
		Labels:   make([]int, conf.Samples),
	}
	for i := 0; i < conf.Samples; i++ {
		label := i % conf.Classes
		center := float64(label) * conf.Separation

		x := make([]float64, conf.Dim)
		for j := range x {
			x[j] = center + rng.NormFloat64()*conf.Spread
		}

		s.Features[i] = x
		s.Labels[i] = label
	}
	return s, nil
}

// Split shuffles the set and partitions it into train and test. The
// split is deterministic in seed.
func Split(s Set, testFraction float64, seed int64) (train Set, test Set, err error) {
	if testFraction <= 0 || 1 <= testFraction {
		return Set{}, Set{}, fmt.Errorf(
			"test fraction must be in (0, 1), got %g", testFraction,
		)
	}

	n := s.Len()
	testN := int(math.Round(float64(n) * testFraction))
	if testN == 0 || testN == n {
		return Set{}, Set{}, fmt.Errorf(
			"%d samples cannot be split by fraction %g", n, testFraction,
		)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)

	pick := func(indexes []int) Set {
		part := Set{
			Features: make([][]float64, len(indexes)),
			Labels:   make([]int, len(indexes)),
		}
		for i, idx := range indexes {
			part.Features[i] = s.Features[idx]
			part.Labels[i] = s.Labels[idx]
		}
		return part
	}

	return pick(perm[testN:]), pick(perm[:testN]), nil
}
