package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/relabs-tech/imu_adapter/internal/config"
	"github.com/relabs-tech/imu_adapter/internal/imu"
)

// RunConsole prints every adapted sample until ctx is cancelled.
func RunConsole(ctx context.Context) error {
	cfg := config.Get()

	bus, err := connect(cfg, cfg.MQTTClientIDConsole, "imu-console")
	if err != nil {
		return err
	}
	defer bus.Close()

	if err := bus.Subscribe(cfg.TopicIMUOut, func(s imu.Sample) {
		printSample(os.Stdout, s)
	}); err != nil {
		return err
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

func printSample(w io.Writer, s imu.Sample) {
	fmt.Fprintf(w,
		"[IMU] %s q=(%6.3f %6.3f %6.3f %6.3f) w=(%6.3f %6.3f %6.3f) a=(%6.3f %6.3f %6.3f) var o=(%g %g %g) w=(%g %g %g) a=(%g %g %g)\n",
		s.Header.Stamp.Format(time.RFC3339Nano),
		s.Orientation.X, s.Orientation.Y, s.Orientation.Z, s.Orientation.W,
		s.AngularVelocity.X, s.AngularVelocity.Y, s.AngularVelocity.Z,
		s.LinearAcceleration.X, s.LinearAcceleration.Y, s.LinearAcceleration.Z,
		s.OrientationCovariance[0], s.OrientationCovariance[4], s.OrientationCovariance[8],
		s.AngularVelocityCovariance[0], s.AngularVelocityCovariance[4], s.AngularVelocityCovariance[8],
		s.LinearAccelerationCovariance[0], s.LinearAccelerationCovariance[4], s.LinearAccelerationCovariance[8],
	)
}
