package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Params holds named numeric sequences, such as covariance matrices.
// It satisfies covariance.ParamSource.
type Params map[string][]float64

// Float64s returns the sequence stored under key.
func (p Params) Float64s(key string) ([]float64, bool) {
	values, ok := p[key]
	return values, ok
}

// LoadParams reads a YAML parameter file. Top-level keys whose value is a
// sequence are decoded as numbers; other keys are skipped. An empty path
// yields empty params.
//
//	imu_orientation_covariance: [0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.01]
//	pose_covariance: []
func LoadParams(path string) (Params, error) {
	params := Params{}
	if path == "" {
		return params, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read params file: %w", err)
	}

	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse params file %s: %w", path, err)
	}

	for key, node := range doc {
		if node.Kind != yaml.SequenceNode {
			continue
		}
		var values []float64
		if err := node.Decode(&values); err != nil {
			return nil, fmt.Errorf("params file %s: %s (line %d): %w", path, key, node.Line, err)
		}
		params[key] = values
	}
	return params, nil
}

// Merge returns a new Params with every key of overlay replacing the
// same key in base.
func Merge(base, overlay Params) Params {
	out := make(Params, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// CovarianceParams loads PARAMS_FILE and overlays the inline covariance
// keys from the config file.
func (c *Config) CovarianceParams() (Params, error) {
	fromFile, err := LoadParams(c.ParamsFile)
	if err != nil {
		return nil, err
	}
	return Merge(fromFile, c.Inline), nil
}

// parseFloatList parses "1, 0, 0.5". Surrounding brackets are allowed
// and an empty value gives an empty list.
func parseFloatList(value string) ([]float64, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "[")
	value = strings.TrimSuffix(value, "]")
	if strings.TrimSpace(value) == "" {
		return []float64{}, nil
	}

	fields := strings.Split(value, ",")
	values := make([]float64, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("element %d %q: %w", i, strings.TrimSpace(f), err)
		}
		values = append(values, v)
	}
	return values, nil
}
