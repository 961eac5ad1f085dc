// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"math"
	"time"

	"github.com/relabs-tech/imu_adapter/internal/clock"
)

// StandardGravity in m/s².
const StandardGravity = 9.80665

type mockSource struct {
	clock clock.Clock
	start time.Time
}

// NewMockSource creates a mock IMU source that generates smoothly
// changing orientation and rates. Covariances are left at zero, as a
// bare driver would publish them.
func NewMockSource(c clock.Clock) Source {
	if c == nil {
		c = clock.RealClock{}
	}
	return &mockSource{clock: c, start: c.Now()}
}

func (m *mockSource) Next() (Sample, error) {
	now := m.clock.Now()
	elapsed := now.Sub(m.start).Seconds()

	roll := 20 * math.Sin(elapsed) * math.Pi / 180
	pitch := 15 * math.Cos(elapsed*0.7) * math.Pi / 180
	yaw := math.Mod(elapsed*30, 360) * math.Pi / 180

	// Time derivatives of the angles above.
	rollRate := 20 * math.Cos(elapsed) * math.Pi / 180
	pitchRate := -15 * 0.7 * math.Sin(elapsed*0.7) * math.Pi / 180
	yawRate := 30 * math.Pi / 180

	return Sample{
		Header:             Header{Stamp: now, FrameID: "imu_link"},
		Orientation:        QuaternionFromEuler(roll, pitch, yaw),
		AngularVelocity:    Vector3{X: rollRate, Y: pitchRate, Z: yawRate},
		LinearAcceleration: GravityInBody(roll, pitch),
	}, nil
}

// QuaternionFromEuler converts roll, pitch and yaw (radians, ZYX order)
// into a unit quaternion.
func QuaternionFromEuler(roll, pitch, yaw float64) Quaternion {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)

	return Quaternion{
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
		W: cr*cp*cy + sr*sp*sy,
	}
}

// GravityInBody returns the accelerometer reading of a body at rest with
// the given roll and pitch. It is the inverse of the usual tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func GravityInBody(roll, pitch float64) Vector3 {
	return Vector3{
		X: -StandardGravity * math.Sin(pitch),
		Y: StandardGravity * math.Cos(pitch) * math.Sin(roll),
		Z: StandardGravity * math.Cos(pitch) * math.Cos(roll),
	}
}
