// Package adapter republishes IMU samples with configured covariances
// and a fresh publish-time stamp.
package adapter

import (
	"sync"
	"sync/atomic"

	"github.com/relabs-tech/imu_adapter/internal/clock"
	"github.com/relabs-tech/imu_adapter/internal/covariance"
	"github.com/relabs-tech/imu_adapter/internal/imu"
)

// PublishFunc hands an adapted sample to the transport. The sample is
// passed by value and may be retained by the callee.
type PublishFunc func(imu.Sample) error

// Stats counts what the adapter has handed to the publisher.
type Stats struct {
	Forwarded uint64 // publishes that returned nil
	Failed    uint64 // publishes that returned an error
}

// Adapter owns one output buffer that is overwritten on every inbound
// sample. OnMessage calls are serialized, so a host may dispatch from
// several goroutines.
type Adapter struct {
	publish PublishFunc
	store   *covariance.Store
	clock   clock.Clock

	mu  sync.Mutex
	out imu.Sample

	forwarded atomic.Uint64
	failed    atomic.Uint64
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock sets the clock used to stamp outgoing samples.
func WithClock(c clock.Clock) Option {
	return func(a *Adapter) {
		if c != nil {
			a.clock = c
		}
	}
}

// New wires an adapter to its publisher and covariance store. It does not
// subscribe to anything; the host delivers samples through OnMessage.
// A nil store behaves as an all-zero one.
func New(publish PublishFunc, store *covariance.Store, opts ...Option) *Adapter {
	if store == nil {
		store = covariance.NewStore(nil)
	}
	a := &Adapter{
		publish: publish,
		store:   store,
		clock:   clock.RealClock{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OnMessage adapts in and publishes exactly one sample. The inbound stamp
// and covariances are ignored. The publisher's error is returned as is
// and the sample is not retried.
func (a *Adapter) OnMessage(in imu.Sample) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.out.Header.Stamp = a.clock.Now()

	a.out.Orientation.X = in.Orientation.X
	a.out.Orientation.Y = in.Orientation.Y
	a.out.Orientation.Z = in.Orientation.Z
	a.out.Orientation.W = in.Orientation.W

	a.out.AngularVelocity.X = in.AngularVelocity.X
	a.out.AngularVelocity.Y = in.AngularVelocity.Y
	a.out.AngularVelocity.Z = in.AngularVelocity.Z

	a.out.LinearAcceleration.X = in.LinearAcceleration.X
	a.out.LinearAcceleration.Y = in.LinearAcceleration.Y
	a.out.LinearAcceleration.Z = in.LinearAcceleration.Z

	a.store.Apply(&a.out)

	if err := a.publish(a.out); err != nil {
		a.failed.Add(1)
		return err
	}
	a.forwarded.Add(1)
	return nil
}

// Stats returns the publish counters.
func (a *Adapter) Stats() Stats {
	return Stats{
		Forwarded: a.forwarded.Load(),
		Failed:    a.failed.Load(),
	}
}
