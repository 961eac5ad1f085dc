// Package covariance holds the statically configured uncertainty attached
// to every adapted IMU sample.
//
// Configuration is read leniently: a missing parameter leaves its matrix at
// zero and a short one fills only the provided prefix. Nothing here fails.
// Callers that want to catch misconfiguration run Validate first.
package covariance

import (
	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/imu_adapter/internal/imu"
)

// Parameter names, as found in the node's private parameter namespace.
const (
	KeyOrientation        = "imu_orientation_covariance"
	KeyAngularVelocity    = "imu_angular_velocity_covariance"
	KeyLinearAcceleration = "imu_linear_acceleration_covariance"
	KeyPose               = "pose_covariance"
)

// ParamSource looks up named numeric sequences. ok is false when the
// key is not configured.
type ParamSource interface {
	Float64s(key string) (values []float64, ok bool)
}

// Store holds the four covariance matrices. It is immutable once built
// and may be shared between goroutines without locking.
type Store struct {
	orientation        imu.Covariance3
	angularVelocity    imu.Covariance3
	linearAcceleration imu.Covariance3

	// pose is read for consumers outside the IMU output and is never
	// attached to an adapted sample.
	pose imu.Covariance6
}

// NewStore reads the four parameters from src. A nil src yields an
// all-zero store.
func NewStore(src ParamSource) *Store {
	s := &Store{}
	if src == nil {
		return s
	}
	fill(s.orientation[:], src, KeyOrientation)
	fill(s.angularVelocity[:], src, KeyAngularVelocity)
	fill(s.linearAcceleration[:], src, KeyLinearAcceleration)
	fill(s.pose[:], src, KeyPose)
	return s
}

// fill copies the configured prefix of key into dst. Entries past the
// configured length keep their zero value; extra values are ignored.
func fill(dst []float64, src ParamSource, key string) {
	values, _ := src.Float64s(key)
	copy(dst, values)
}

// Orientation returns the orientation covariance.
func (s *Store) Orientation() imu.Covariance3 { return s.orientation }

// AngularVelocity returns the angular velocity covariance.
func (s *Store) AngularVelocity() imu.Covariance3 { return s.angularVelocity }

// LinearAcceleration returns the linear acceleration covariance.
func (s *Store) LinearAcceleration() imu.Covariance3 { return s.linearAcceleration }

// Pose returns the pose covariance.
func (s *Store) Pose() imu.Covariance6 { return s.pose }

// Apply overwrites the three geometric covariances of out with the
// stored values, whatever out carried before.
func (s *Store) Apply(out *imu.Sample) {
	out.OrientationCovariance = s.orientation
	out.AngularVelocityCovariance = s.angularVelocity
	out.LinearAccelerationCovariance = s.linearAcceleration
}

// OrientationMatrix returns a 3x3 copy of the orientation covariance.
func (s *Store) OrientationMatrix() *mat.Dense { return dense(3, s.orientation[:]) }

// AngularVelocityMatrix returns a 3x3 copy of the angular velocity covariance.
func (s *Store) AngularVelocityMatrix() *mat.Dense { return dense(3, s.angularVelocity[:]) }

// LinearAccelerationMatrix returns a 3x3 copy of the linear acceleration covariance.
func (s *Store) LinearAccelerationMatrix() *mat.Dense {
	return dense(3, s.linearAcceleration[:])
}

// PoseMatrix returns a 6x6 copy of the pose covariance.
func (s *Store) PoseMatrix() *mat.Dense { return dense(6, s.pose[:]) }

func dense(n int, data []float64) *mat.Dense {
	return mat.NewDense(n, n, append([]float64(nil), data...))
}
