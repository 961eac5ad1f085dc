package app

import (
	"context"
	"log"
	"time"

	"github.com/relabs-tech/imu_adapter/internal/clock"
	"github.com/relabs-tech/imu_adapter/internal/config"
	"github.com/relabs-tech/imu_adapter/internal/imu"
)

// RunMockProducer publishes synthetic IMU samples on the inbound topic.
func RunMockProducer(ctx context.Context) error {
	cfg := config.Get()

	bus, err := connect(cfg, cfg.MQTTClientIDProducer, "imu-producer-mock")
	if err != nil {
		return err
	}
	defer bus.Close()

	log.Println("connected to MQTT, starting publish loop")
	src := imu.NewMockSource(clock.RealClock{})
	return produce(ctx, bus, src, cfg.TopicIMUIn, time.Duration(cfg.MockSampleInterval)*time.Millisecond)
}

func produce(ctx context.Context, bus sampleBus, src imu.Source, topic string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			s, err := src.Next()
			if err != nil {
				log.Printf("error from mock source: %v", err)
				continue
			}
			if err := bus.Publish(topic, s); err != nil {
				log.Printf("MQTT publish error (%s): %v", topic, err)
				continue
			}
			log.Printf("%s published imu: q=(%.3f %.3f %.3f %.3f)",
				t.Format(time.RFC3339), s.Orientation.X, s.Orientation.Y, s.Orientation.Z, s.Orientation.W)
		}
	}
}
