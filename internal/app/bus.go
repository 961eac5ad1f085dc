package app

import (
	"time"

	"github.com/relabs-tech/imu_adapter/internal/config"
	"github.com/relabs-tech/imu_adapter/internal/imu"
	"github.com/relabs-tech/imu_adapter/internal/transport"
)

// sampleBus is the slice of the transport the runners need. It lets
// tests drive them without a broker.
type sampleBus interface {
	Subscribe(topic string, handler func(imu.Sample)) error
	Publish(topic string, s imu.Sample) error
	Publisher(topic string) func(imu.Sample) error
}

var _ sampleBus = (*transport.Bus)(nil)

// connect opens the MQTT bus for one of the commands. prefix names the
// generated client id when none is configured.
func connect(cfg *config.Config, clientID, prefix string) (*transport.Bus, error) {
	return transport.Connect(transport.Options{
		Broker:         cfg.MQTTBroker,
		ClientID:       transport.ClientID(clientID, prefix),
		QoS:            cfg.MQTTQoS,
		ConnectTimeout: time.Duration(cfg.MQTTConnectTimeout) * time.Millisecond,
	})
}
