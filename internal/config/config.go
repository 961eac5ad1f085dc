package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Defaults applied before the file is read.
const (
	DefaultTopicIMUIn         = "imu"
	DefaultTopicIMUOut        = "imu_fusion"
	DefaultConnectTimeout     = 5000 // milliseconds
	DefaultStatsLogInterval   = 10000
	DefaultMockSampleInterval = 100
	DefaultWebServerPort      = 8080
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDAdapter  string
	MQTTClientIDProducer string
	MQTTClientIDMonitor  string
	MQTTClientIDConsole  string
	MQTTQoS              byte
	MQTTConnectTimeout   int // milliseconds

	// Topics
	TopicIMUIn  string
	TopicIMUOut string

	// Covariance parameters
	ParamsFile       string
	CovarianceStrict bool
	Inline           Params // IMU_*_COVARIANCE / POSE_COVARIANCE lines

	// Timing
	StatsLogInterval   int // milliseconds, 0 disables
	MockSampleInterval int // milliseconds

	// Web Server
	WebServerPort int
}

// inlineKeys maps config file keys to covariance parameter names.
var inlineKeys = map[string]string{
	"IMU_ORIENTATION_COVARIANCE":         "imu_orientation_covariance",
	"IMU_ANGULAR_VELOCITY_COVARIANCE":    "imu_angular_velocity_covariance",
	"IMU_LINEAR_ACCELERATION_COVARIANCE": "imu_linear_acceleration_covariance",
	"POSE_COVARIANCE":                    "pose_covariance",
}

// Package-level singleton. InitGlobal sets it once; Get reads it under
// a read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional value at its default.
func Default() *Config {
	return &Config{
		MQTTConnectTimeout: DefaultConnectTimeout,
		TopicIMUIn:         DefaultTopicIMUIn,
		TopicIMUOut:        DefaultTopicIMUOut,
		StatsLogInterval:   DefaultStatsLogInterval,
		MockSampleInterval: DefaultMockSampleInterval,
		WebServerPort:      DefaultWebServerPort,
		Inline:             Params{},
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	if name, ok := inlineKeys[key]; ok {
		values, err := parseFloatList(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		c.Inline[name] = values
		return nil
	}

	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_ADAPTER":
		c.MQTTClientIDAdapter = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_MONITOR":
		c.MQTTClientIDMonitor = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_QOS":
		qos, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_QOS %q: %w", value, err)
		}
		if qos < 0 || qos > 2 {
			return fmt.Errorf("MQTT_QOS must be 0-2, got %d", qos)
		}
		c.MQTTQoS = byte(qos)
	case "MQTT_CONNECT_TIMEOUT":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_CONNECT_TIMEOUT %q: %w", value, err)
		}
		c.MQTTConnectTimeout = ms

	// Topics
	case "TOPIC_IMU_IN":
		c.TopicIMUIn = value
	case "TOPIC_IMU_OUT":
		c.TopicIMUOut = value

	// Covariance parameters
	case "PARAMS_FILE":
		c.ParamsFile = value
	case "COVARIANCE_STRICT":
		strict, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid COVARIANCE_STRICT %q: %w", value, err)
		}
		c.CovarianceStrict = strict

	// Timing
	case "STATS_LOG_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid STATS_LOG_INTERVAL %q: %w", value, err)
		}
		c.StatsLogInterval = interval
	case "MOCK_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOCK_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.MockSampleInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicIMUIn == "" {
		return fmt.Errorf("TOPIC_IMU_IN must not be empty")
	}
	if c.TopicIMUOut == "" {
		return fmt.Errorf("TOPIC_IMU_OUT must not be empty")
	}
	if c.TopicIMUIn == c.TopicIMUOut {
		return fmt.Errorf("TOPIC_IMU_IN and TOPIC_IMU_OUT must differ, both are %q", c.TopicIMUIn)
	}
	if c.MQTTConnectTimeout <= 0 {
		return fmt.Errorf("MQTT_CONNECT_TIMEOUT must be positive, got %d", c.MQTTConnectTimeout)
	}
	if c.StatsLogInterval < 0 {
		return fmt.Errorf("STATS_LOG_INTERVAL must not be negative, got %d", c.StatsLogInterval)
	}
	if c.MockSampleInterval <= 0 {
		return fmt.Errorf("MOCK_SAMPLE_INTERVAL must be positive, got %d", c.MockSampleInterval)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
