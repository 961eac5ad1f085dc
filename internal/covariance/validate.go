package covariance

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// symmetryTol is the absolute tolerance used when comparing m[i][j] and m[j][i].
const symmetryTol = 1e-9

var sizes = []struct {
	key string
	dim int
}{
	{KeyOrientation, 3},
	{KeyAngularVelocity, 3},
	{KeyLinearAcceleration, 3},
	{KeyPose, 6},
}

// Validate checks every configured parameter in src. Keys that are absent
// or empty are accepted; a configured sequence must hold exactly dim*dim
// finite values forming a symmetric matrix with a non-negative diagonal.
// Non-finite values cannot be encoded on the wire. All problems are
// reported together.
func Validate(src ParamSource) error {
	if src == nil {
		return nil
	}

	var errs []error
	for _, sz := range sizes {
		values, ok := src.Float64s(sz.key)
		if !ok || len(values) == 0 {
			continue
		}
		if len(values) != sz.dim*sz.dim {
			errs = append(errs, fmt.Errorf("%s: got %d values, want %d", sz.key, len(values), sz.dim*sz.dim))
			continue
		}
		if bad := nonFinite(sz.key, values); len(bad) > 0 {
			errs = append(errs, bad...)
			continue
		}
		m := dense(sz.dim, values)
		if !mat.EqualApprox(m, m.T(), symmetryTol) {
			errs = append(errs, fmt.Errorf("%s: matrix is not symmetric", sz.key))
		}
		for i := 0; i < sz.dim; i++ {
			if v := m.At(i, i); v < 0 {
				errs = append(errs, fmt.Errorf("%s: negative variance %g at diagonal %d", sz.key, v, i))
			}
		}
	}
	return errors.Join(errs...)
}

func nonFinite(key string, values []float64) []error {
	var errs []error
	for i, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			errs = append(errs, fmt.Errorf("%s: non-finite value %g at index %d", key, v, i))
		}
	}
	return errs
}
