// Package imu defines the IMU message carried on the bus and a mock source
// for exercising the pipeline without hardware.
package imu

import "time"

// Header carries the stamp and reference frame of a sample.
type Header struct {
	Stamp   time.Time `json:"stamp"`
	FrameID string    `json:"frame_id"`
}

// Quaternion is an orientation in x, y, z, w order.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Vector3 is a 3-axis reading.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Covariance3 is a row-major 3x3 covariance matrix.
type Covariance3 [9]float64

// Covariance6 is a row-major 6x6 covariance matrix.
type Covariance6 [36]float64

// Sample is a single IMU message as carried on the bus. The same shape is
// used for the inbound stream and the adapted output. All fields are values,
// so copying a Sample never shares memory with its source.
type Sample struct {
	Header Header `json:"header"`

	Orientation           Quaternion  `json:"orientation"`
	OrientationCovariance Covariance3 `json:"orientation_covariance"`

	AngularVelocity           Vector3     `json:"angular_velocity"`            // rad/s
	AngularVelocityCovariance Covariance3 `json:"angular_velocity_covariance"` // row-major

	LinearAcceleration           Vector3     `json:"linear_acceleration"` // m/s²
	LinearAccelerationCovariance Covariance3 `json:"linear_acceleration_covariance"`
}

// Source is anything that can provide samples over time.
type Source interface {
	Next() (Sample, error)
}
