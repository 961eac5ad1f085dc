// Package transport binds IMU samples to an MQTT broker.
package transport

import (
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/imu_adapter/internal/imu"
)

// Options describes the broker connection.
type Options struct {
	Broker         string
	ClientID       string // a unique id is generated when empty
	QoS            byte
	Retained       bool
	ConnectTimeout time.Duration
}

// ClientID returns id, or "<prefix>-<uuid>" when id is empty.
func ClientID(id, prefix string) string {
	if id != "" {
		return id
	}
	return prefix + "-" + uuid.NewString()
}

// Bus publishes and subscribes IMU samples as JSON over MQTT. Subscriptions
// are remembered and re-issued every time the client (re)connects, so they
// survive a broker restart under auto-reconnect.
type Bus struct {
	client   mqtt.Client
	qos      byte
	retained bool
	timeout  time.Duration

	mu   sync.Mutex
	subs map[string]mqtt.MessageHandler
}

// Connect dials the broker and returns a ready Bus.
func Connect(opts Options) (*Bus, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	bus := newBus(nil, opts)
	client := mqtt.NewClient(bus.clientOptions(opts))
	bus.client = client

	token := client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		return nil, fmt.Errorf("MQTT connect to %s: timed out after %s", opts.Broker, opts.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("MQTT connect to %s: %w", opts.Broker, err)
	}
	log.Printf("connected to MQTT broker at %s", opts.Broker)

	return bus, nil
}

func (b *Bus) clientOptions(opts Options) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(ClientID(opts.ClientID, "imu-adapter")).
		SetConnectTimeout(opts.ConnectTimeout).
		SetAutoReconnect(true).
		SetOrderMatters(true).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		})
}

// NewBus wraps an already connected client.
func NewBus(client mqtt.Client, opts Options) *Bus {
	return newBus(client, opts)
}

func newBus(client mqtt.Client, opts Options) *Bus {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Bus{
		client:   client,
		qos:      opts.QoS,
		retained: opts.Retained,
		timeout:  timeout,
		subs:     make(map[string]mqtt.MessageHandler),
	}
}

// onConnect restores every recorded subscription. paho runs it on its own
// goroutine after each successful connect, including auto-reconnects.
func (b *Bus) onConnect(client mqtt.Client) {
	b.mu.Lock()
	subs := make(map[string]mqtt.MessageHandler, len(b.subs))
	for topic, h := range b.subs {
		subs[topic] = h
	}
	b.mu.Unlock()

	for topic, h := range subs {
		if err := b.subscribe(client, topic, h); err != nil {
			log.Printf("MQTT resubscribe: %v", err)
			continue
		}
		log.Printf("resubscribed to MQTT topic %s", topic)
	}
}

// Subscribe delivers every decodable sample on topic to handler. Payloads
// that fail to decode are logged and dropped.
func (b *Bus) Subscribe(topic string, handler func(imu.Sample)) error {
	h := func(_ mqtt.Client, msg mqtt.Message) {
		s, err := Decode(msg.Payload())
		if err != nil {
			log.Printf("MQTT %s: dropping message: %v", msg.Topic(), err)
			return
		}
		handler(s)
	}

	b.mu.Lock()
	b.subs[topic] = h
	b.mu.Unlock()

	if err := b.subscribe(b.client, topic, h); err != nil {
		return err
	}
	log.Printf("subscribed to MQTT topic %s", topic)
	return nil
}

func (b *Bus) subscribe(client mqtt.Client, topic string, h mqtt.MessageHandler) error {
	token := client.Subscribe(topic, b.qos, h)
	if !token.WaitTimeout(b.timeout) {
		return fmt.Errorf("MQTT subscribe %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT subscribe %s: %w", topic, err)
	}
	return nil
}

// Publish sends s on topic and waits for the broker to accept it.
func (b *Bus) Publish(topic string, s imu.Sample) error {
	payload, err := Encode(s)
	if err != nil {
		return err
	}
	token := b.client.Publish(topic, b.qos, b.retained, payload)
	if !token.WaitTimeout(b.timeout) {
		return fmt.Errorf("MQTT publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT publish %s: %w", topic, err)
	}
	return nil
}

// Publisher returns a function publishing on topic, suitable for
// adapter.New.
func (b *Bus) Publisher(topic string) func(imu.Sample) error {
	return func(s imu.Sample) error {
		return b.Publish(topic, s)
	}
}

// Close disconnects, giving in-flight work 250ms to finish.
func (b *Bus) Close() {
	b.client.Disconnect(250)
}
