package adapter

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/imu_adapter/internal/clock"
	"github.com/relabs-tech/imu_adapter/internal/covariance"
	"github.com/relabs-tech/imu_adapter/internal/imu"
)

type params map[string][]float64

func (p params) Float64s(key string) ([]float64, bool) {
	v, ok := p[key]
	return v, ok
}

// recorder collects every published sample.
type recorder struct {
	mu  sync.Mutex
	got []imu.Sample
	err error
}

func (r *recorder) publish(s imu.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, s)
	return r.err
}

var epoch = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func sample(seed float64) imu.Sample {
	return imu.Sample{
		Header:                       imu.Header{Stamp: epoch.Add(-time.Hour), FrameID: "imu_link"},
		Orientation:                  imu.Quaternion{X: seed, Y: seed + 0.1, Z: seed + 0.2, W: seed + 0.3},
		OrientationCovariance:        imu.Covariance3{5, 5, 5, 5, 5, 5, 5, 5, 5},
		AngularVelocity:              imu.Vector3{X: -seed, Y: 2 * seed, Z: 3 * seed},
		AngularVelocityCovariance:    imu.Covariance3{6},
		LinearAcceleration:           imu.Vector3{X: seed / 2, Y: seed / 3, Z: 9.8},
		LinearAccelerationCovariance: imu.Covariance3{-1, -1, -1},
	}
}

func TestOnMessage_IdentityScenario(t *testing.T) {
	rec := &recorder{}
	clk := clock.NewMockClock(epoch)
	store := covariance.NewStore(params{
		covariance.KeyOrientation: {1, 0, 0, 0, 1, 0, 0, 0, 1},
	})
	a := New(rec.publish, store, WithClock(clk))

	in := imu.Sample{
		Orientation:        imu.Quaternion{X: 0, Y: 0, Z: 0, W: 1},
		AngularVelocity:    imu.Vector3{X: 0.1, Y: 0.2, Z: 0.3},
		LinearAcceleration: imu.Vector3{X: 0, Y: 0, Z: 9.8},
	}
	require.NoError(t, a.OnMessage(in))
	require.Len(t, rec.got, 1)

	want := imu.Sample{
		Header:                imu.Header{Stamp: epoch},
		Orientation:           imu.Quaternion{W: 1},
		OrientationCovariance: imu.Covariance3{1, 0, 0, 0, 1, 0, 0, 0, 1},
		AngularVelocity:       imu.Vector3{X: 0.1, Y: 0.2, Z: 0.3},
		LinearAcceleration:    imu.Vector3{Z: 9.8},
	}
	if diff := cmp.Diff(want, rec.got[0]); diff != "" {
		t.Errorf("published sample mismatch (-want +got):\n%s", diff)
	}
}

func TestOnMessage_CopiesGeometry(t *testing.T) {
	rec := &recorder{}
	a := New(rec.publish, nil, WithClock(clock.NewMockClock(epoch)))

	for i, seed := range []float64{0, 1.5, -3.25, 1e-9, 12345.678} {
		in := sample(seed)
		require.NoError(t, a.OnMessage(in))

		out := rec.got[i]
		assert.Equal(t, in.Orientation, out.Orientation)
		assert.Equal(t, in.AngularVelocity, out.AngularVelocity)
		assert.Equal(t, in.LinearAcceleration, out.LinearAcceleration)
	}
}

func TestOnMessage_OverridesCovariances(t *testing.T) {
	rec := &recorder{}
	store := covariance.NewStore(params{
		covariance.KeyAngularVelocity: {0.02, 0, 0, 0, 0.02, 0, 0, 0, 0.02},
		covariance.KeyPose:            {1, 1, 1, 1},
	})
	a := New(rec.publish, store, WithClock(clock.NewMockClock(epoch)))

	require.NoError(t, a.OnMessage(sample(1)))
	out := rec.got[0]

	assert.Equal(t, store.Orientation(), out.OrientationCovariance)
	assert.Equal(t, store.AngularVelocity(), out.AngularVelocityCovariance)
	assert.Equal(t, store.LinearAcceleration(), out.LinearAccelerationCovariance)
	assert.Equal(t, imu.Covariance3{}, out.OrientationCovariance)
}

func TestOnMessage_NoConfigGivesZeroCovariances(t *testing.T) {
	rec := &recorder{}
	a := New(rec.publish, covariance.NewStore(params{}))

	require.NoError(t, a.OnMessage(sample(2)))
	out := rec.got[0]
	assert.Equal(t, imu.Covariance3{}, out.OrientationCovariance)
	assert.Equal(t, imu.Covariance3{}, out.AngularVelocityCovariance)
	assert.Equal(t, imu.Covariance3{}, out.LinearAccelerationCovariance)
}

func TestOnMessage_StampsPublishTime(t *testing.T) {
	rec := &recorder{}
	clk := clock.NewMockClock(epoch)
	a := New(rec.publish, nil, WithClock(clk))

	in := sample(1)
	require.NoError(t, a.OnMessage(in))
	clk.Advance(10 * time.Millisecond)
	require.NoError(t, a.OnMessage(in))

	require.Len(t, rec.got, 2)
	assert.Equal(t, epoch, rec.got[0].Header.Stamp)
	assert.Equal(t, epoch.Add(10*time.Millisecond), rec.got[1].Header.Stamp)
	assert.NotEqual(t, in.Header.Stamp, rec.got[0].Header.Stamp)
}

func TestOnMessage_FrameIDNotCopied(t *testing.T) {
	rec := &recorder{}
	a := New(rec.publish, nil, WithClock(clock.NewMockClock(epoch)))

	require.NoError(t, a.OnMessage(sample(1)))
	assert.Empty(t, rec.got[0].Header.FrameID)
}

func TestOnMessage_PublishedValuesDoNotAlias(t *testing.T) {
	rec := &recorder{}
	a := New(rec.publish, covariance.NewStore(params{covariance.KeyOrientation: {1}}),
		WithClock(clock.NewMockClock(epoch)))

	require.NoError(t, a.OnMessage(sample(1)))
	first := rec.got[0]
	require.NoError(t, a.OnMessage(sample(2)))

	assert.Equal(t, first, rec.got[0])
	assert.NotEqual(t, rec.got[0].Orientation, rec.got[1].Orientation)

	rec.got[0].OrientationCovariance[0] = 99
	require.NoError(t, a.OnMessage(sample(3)))
	assert.Equal(t, 1.0, rec.got[2].OrientationCovariance[0])
}

func TestOnMessage_Deterministic(t *testing.T) {
	run := func() []imu.Sample {
		rec := &recorder{}
		clk := clock.NewMockClock(epoch)
		a := New(rec.publish, covariance.NewStore(params{
			covariance.KeyLinearAcceleration: {0.04, 0, 0, 0, 0.04, 0, 0, 0, 0.04},
		}), WithClock(clk))
		for i := 0; i < 20; i++ {
			require.NoError(t, a.OnMessage(sample(float64(i)*0.37)))
			clk.Advance(5 * time.Millisecond)
		}
		return rec.got
	}

	first, second := run(), run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("replay differs (-first +second):\n%s", diff)
	}
}

func TestOnMessage_PublishError(t *testing.T) {
	errBroker := errors.New("broker unavailable")
	rec := &recorder{err: errBroker}
	a := New(rec.publish, nil)

	err := a.OnMessage(sample(1))
	assert.ErrorIs(t, err, errBroker)
	assert.Len(t, rec.got, 1, "publish is attempted exactly once")
	assert.Equal(t, Stats{Failed: 1}, a.Stats())

	rec.err = nil
	require.NoError(t, a.OnMessage(sample(2)))
	assert.Equal(t, Stats{Forwarded: 1, Failed: 1}, a.Stats())
}

func TestOnMessage_Concurrent(t *testing.T) {
	rec := &recorder{}
	a := New(rec.publish, covariance.NewStore(params{covariance.KeyOrientation: {1}}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed float64) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = a.OnMessage(sample(seed))
			}
		}(float64(i))
	}
	wg.Wait()

	require.Len(t, rec.got, 400)
	assert.Equal(t, uint64(400), a.Stats().Forwarded)
	for _, s := range rec.got {
		// Every published sample is internally consistent.
		assert.Equal(t, s.Orientation.X, -s.AngularVelocity.X)
		assert.Equal(t, 1.0, s.OrientationCovariance[0])
	}
}
