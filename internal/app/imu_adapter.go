// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/imu_adapter/internal/adapter"
	"github.com/relabs-tech/imu_adapter/internal/clock"
	"github.com/relabs-tech/imu_adapter/internal/config"
	"github.com/relabs-tech/imu_adapter/internal/covariance"
	"github.com/relabs-tech/imu_adapter/internal/imu"
)

// RunIMUAdapter subscribes to the inbound IMU topic and republishes every
// sample with the configured covariances until ctx is cancelled.
func RunIMUAdapter(ctx context.Context) error {
	cfg := config.Get()

	store, err := loadStore(cfg)
	if err != nil {
		return err
	}

	bus, err := connect(cfg, cfg.MQTTClientIDAdapter, "imu-adapter")
	if err != nil {
		return err
	}
	defer bus.Close()

	a, err := startAdapter(cfg, bus, store, clock.RealClock{})
	if err != nil {
		return err
	}
	log.Printf("adapter: %s → %s", cfg.TopicIMUIn, cfg.TopicIMUOut)

	logStats(ctx, a, time.Duration(cfg.StatsLogInterval)*time.Millisecond)

	st := a.Stats()
	log.Printf("adapter: shutting down after %s forwarded, %s failed",
		humanize.Comma(int64(st.Forwarded)), humanize.Comma(int64(st.Failed)))
	return nil
}

// loadStore reads the covariance parameters once. Problems found by
// covariance.Validate are fatal only with COVARIANCE_STRICT=true.
func loadStore(cfg *config.Config) (*covariance.Store, error) {
	params, err := cfg.CovarianceParams()
	if err != nil {
		return nil, err
	}

	if err := covariance.Validate(params); err != nil {
		if cfg.CovarianceStrict {
			return nil, fmt.Errorf("covariance parameters: %w", err)
		}
		log.Printf("adapter: WARNING: covariance parameters: %v", err)
	}

	store := covariance.NewStore(params)
	for _, e := range []struct {
		key string
		m   *mat.Dense
	}{
		{covariance.KeyOrientation, store.OrientationMatrix()},
		{covariance.KeyAngularVelocity, store.AngularVelocityMatrix()},
		{covariance.KeyLinearAcceleration, store.LinearAccelerationMatrix()},
		{covariance.KeyPose, store.PoseMatrix()},
	} {
		logMatrix(params, e.key, e.m)
	}

	return store, nil
}

// logMatrix logs one configured matrix, or that it defaulted to zeros.
func logMatrix(params covariance.ParamSource, key string, m *mat.Dense) {
	values, ok := params.Float64s(key)
	if !ok {
		log.Printf("adapter: %s not set, using zeros", key)
		return
	}
	log.Printf("adapter: %s (%d values):\n%v", key, len(values),
		mat.Formatted(m, mat.Prefix("    "), mat.Squeeze()))
}

// startAdapter wires an adapter between the configured topics.
func startAdapter(cfg *config.Config, bus sampleBus, store *covariance.Store, c clock.Clock) (*adapter.Adapter, error) {
	a := adapter.New(bus.Publisher(cfg.TopicIMUOut), store, adapter.WithClock(c))

	err := bus.Subscribe(cfg.TopicIMUIn, func(s imu.Sample) {
		if err := a.OnMessage(s); err != nil {
			log.Printf("adapter: publish error: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// logStats blocks until ctx is done, logging counters every interval.
// A zero interval only waits.
func logStats(ctx context.Context, a *adapter.Adapter, interval time.Duration) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last adapter.Stats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := a.Stats()
			log.Printf("adapter: forwarded %s (+%s), failed %s",
				humanize.Comma(int64(st.Forwarded)),
				humanize.Comma(int64(st.Forwarded-last.Forwarded)),
				humanize.Comma(int64(st.Failed)))
			last = st
		}
	}
}
