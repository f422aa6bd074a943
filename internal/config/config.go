package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// Sensor endpoints
	OutdoorBaseURL string
	IndoorBaseURL  string

	// Outdoor source: "http" (scrape <base>/data) or "serial" (local NMEA GPS)
	OutdoorSource string
	GPSSerialPort string
	GPSBaudRate   int

	// Static offset between the GPS anchor and the indoor reference origin
	OffsetDistanceM  float64
	OffsetBearingDeg float64

	// Timing (milliseconds)
	OutdoorPollInterval int
	IndoorPollInterval  int
	HTTPTimeout         int

	// MQTT
	MQTTBroker          string
	MQTTClientIDTracker string
	MQTTClientIDWeb     string
	MQTTClientIDConsole string
	TopicOrigin         string
	TopicPosition       string

	// Web Server
	WebServerPort int

	// Map overlay
	OverlayFile string

	// Track snapshot image
	SnapshotWidth  int
	SnapshotHeight int
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported (lowercase) so other packages cannot access it directly.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access.
//
// External code must use InitGlobal() to set and Get() to read, ensuring thread safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// defaults returns a Config pre-filled with the values that may be omitted
// from the file. Endpoints and the broker have no sane default and are
// checked by validate.
func defaults() *Config {
	return &Config{
		OutdoorSource:       "http",
		GPSBaudRate:         9600,
		OutdoorPollInterval: 1000,
		IndoorPollInterval:  250,
		HTTPTimeout:         1000,
		MQTTClientIDTracker: "fusion-tracker",
		MQTTClientIDWeb:     "fusion-web-subscriber",
		MQTTClientIDConsole: "fusion-console-subscriber",
		TopicOrigin:         "tracker/origin",
		TopicPosition:       "tracker/position",
		WebServerPort:       8080,
		OverlayFile:         "assets/map.osm",
		SnapshotWidth:       640,
		SnapshotHeight:      480,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
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

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Sensor endpoints
	case "OUTDOOR_BASE_URL":
		c.OutdoorBaseURL = value
	case "INDOOR_BASE_URL":
		c.IndoorBaseURL = value
	case "OUTDOOR_SOURCE":
		if value != "http" && value != "serial" {
			return fmt.Errorf("OUTDOOR_SOURCE must be \"http\" or \"serial\", got %q", value)
		}
		c.OutdoorSource = value
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Offset
	case "OFFSET_DISTANCE_M":
		dist, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid OFFSET_DISTANCE_M %q: %w", value, err)
		}
		if dist < 0 {
			return fmt.Errorf("OFFSET_DISTANCE_M must be >= 0, got %v", dist)
		}
		c.OffsetDistanceM = dist
	case "OFFSET_BEARING_DEG":
		deg, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid OFFSET_BEARING_DEG %q: %w", value, err)
		}
		c.OffsetBearingDeg = deg

	// Timing
	case "OUTDOOR_POLL_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid OUTDOOR_POLL_INTERVAL %q: %w", value, err)
		}
		c.OutdoorPollInterval = interval
	case "INDOOR_POLL_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid INDOOR_POLL_INTERVAL %q: %w", value, err)
		}
		c.IndoorPollInterval = interval
	case "HTTP_TIMEOUT":
		timeout, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT %q: %w", value, err)
		}
		c.HTTPTimeout = timeout

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_TRACKER":
		c.MQTTClientIDTracker = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "TOPIC_ORIGIN":
		c.TopicOrigin = value
	case "TOPIC_POSITION":
		c.TopicPosition = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Map overlay
	case "OVERLAY_FILE":
		c.OverlayFile = value

	// Track snapshot
	case "SNAPSHOT_WIDTH":
		w, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SNAPSHOT_WIDTH %q: %w", value, err)
		}
		c.SnapshotWidth = w
	case "SNAPSHOT_HEIGHT":
		h, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SNAPSHOT_HEIGHT %q: %w", value, err)
		}
		c.SnapshotHeight = h

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
	if c.IndoorBaseURL == "" {
		return fmt.Errorf("INDOOR_BASE_URL is required")
	}
	switch c.OutdoorSource {
	case "http":
		if c.OutdoorBaseURL == "" {
			return fmt.Errorf("OUTDOOR_BASE_URL is required when OUTDOOR_SOURCE=http")
		}
	case "serial":
		if c.GPSSerialPort == "" {
			return fmt.Errorf("GPS_SERIAL_PORT is required when OUTDOOR_SOURCE=serial")
		}
	}
	if c.OutdoorPollInterval <= 0 {
		return fmt.Errorf("OUTDOOR_POLL_INTERVAL must be positive")
	}
	if c.IndoorPollInterval <= 0 {
		return fmt.Errorf("INDOOR_POLL_INTERVAL must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
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
