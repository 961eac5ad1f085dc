package covariance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/imu_adapter/internal/imu"
)

type params map[string][]float64

func (p params) Float64s(key string) ([]float64, bool) {
	v, ok := p[key]
	return v, ok
}

var identity3 = []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name   string
		src    ParamSource
		orient imu.Covariance3
		angVel imu.Covariance3
		accel  imu.Covariance3
	}{
		{
			name: "nil source",
			src:  nil,
		},
		{
			name: "no keys",
			src:  params{},
		},
		{
			name:   "identity orientation only",
			src:    params{KeyOrientation: identity3},
			orient: imu.Covariance3{1, 0, 0, 0, 1, 0, 0, 0, 1},
		},
		{
			name:   "partial fill",
			src:    params{KeyOrientation: {1, 2, 3, 4, 5}},
			orient: imu.Covariance3{1, 2, 3, 4, 5, 0, 0, 0, 0},
		},
		{
			name:   "extra values ignored",
			src:    params{KeyAngularVelocity: {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
			angVel: imu.Covariance3{1, 2, 3, 4, 5, 6, 7, 8, 9},
		},
		{
			name:  "empty sequence",
			src:   params{KeyLinearAcceleration: {}},
			accel: imu.Covariance3{},
		},
		{
			name:   "all three",
			src:    params{KeyOrientation: {0.1}, KeyAngularVelocity: {0.2}, KeyLinearAcceleration: {0.3}},
			orient: imu.Covariance3{0.1},
			angVel: imu.Covariance3{0.2},
			accel:  imu.Covariance3{0.3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.src)
			assert.Equal(t, tt.orient, s.Orientation())
			assert.Equal(t, tt.angVel, s.AngularVelocity())
			assert.Equal(t, tt.accel, s.LinearAcceleration())
			assert.Equal(t, imu.Covariance6{}, s.Pose())
		})
	}
}

func TestNewStore_Pose(t *testing.T) {
	pose := make([]float64, 36)
	for i := range pose {
		pose[i] = float64(i)
	}
	s := NewStore(params{KeyPose: pose})

	got := s.Pose()
	assert.Equal(t, pose, got[:])

	m := s.PoseMatrix()
	r, c := m.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 6, c)
	assert.Equal(t, 7.0, m.At(1, 1))
}

func TestNewStore_DoesNotAliasSource(t *testing.T) {
	values := append([]float64(nil), identity3...)
	s := NewStore(params{KeyOrientation: values})

	values[0] = 42
	assert.Equal(t, 1.0, s.Orientation()[0])
}

func TestStore_Apply(t *testing.T) {
	s := NewStore(params{
		KeyOrientation:        identity3,
		KeyLinearAcceleration: {0.5, 0, 0, 0, 0.5, 0, 0, 0, 0.5},
		KeyPose:               {9, 9, 9},
	})

	out := imu.Sample{
		OrientationCovariance:        imu.Covariance3{7, 7, 7, 7, 7, 7, 7, 7, 7},
		AngularVelocityCovariance:    imu.Covariance3{-1, 0, 0, 0, -1, 0, 0, 0, -1},
		LinearAccelerationCovariance: imu.Covariance3{3},
	}
	s.Apply(&out)

	assert.Equal(t, imu.Covariance3{1, 0, 0, 0, 1, 0, 0, 0, 1}, out.OrientationCovariance)
	assert.Equal(t, imu.Covariance3{}, out.AngularVelocityCovariance)
	assert.Equal(t, imu.Covariance3{0.5, 0, 0, 0, 0.5, 0, 0, 0, 0.5}, out.LinearAccelerationCovariance)
}

func TestStore_Matrices(t *testing.T) {
	s := NewStore(params{KeyOrientation: identity3})

	m := s.OrientationMatrix()
	require.NotNil(t, m)
	assert.True(t, mat.Equal(m, mat.NewDiagDense(3, []float64{1, 1, 1})))

	// Mutating the returned matrix leaves the store unchanged.
	m.Set(0, 0, 100)
	assert.Equal(t, 1.0, s.Orientation()[0])

	assert.Equal(t, 0.0, mat.Sum(s.AngularVelocityMatrix()))
	assert.Equal(t, 0.0, mat.Sum(s.LinearAccelerationMatrix()))
}
