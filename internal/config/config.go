package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is built once at startup and never mutated. The serial device and
// baud rate come from the two positional arguments; everything else comes
// from the environment.
type Config struct {
	AppEnv   string
	LogLevel slog.Level

	Device      string
	BaudRate    int
	ReadTimeout time.Duration
	NetworkKey  string
	StationID   string

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string

	SQLitePath string
}

// Load builds the configuration from positional args (device path, baud
// rate) and the environment.
func Load(args []string) (Config, error) {
	if len(args) != 2 {
		return Config{}, fmt.Errorf("usage: lora-receiver <tty> <baud_rate>")
	}
	device := strings.TrimSpace(args[0])
	if device == "" {
		return Config{}, fmt.Errorf("serial device path must not be empty")
	}
	baudRate, err := strconv.Atoi(strings.TrimSpace(args[1]))
	if err != nil || baudRate <= 0 {
		return Config{}, fmt.Errorf("invalid baud rate %q", args[1])
	}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	readTimeoutStr := strings.TrimSpace(os.Getenv("LORA_READ_TIMEOUT"))
	if readTimeoutStr == "" {
		readTimeoutStr = "5s"
	}
	readTimeout, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid LORA_READ_TIMEOUT %q: %w", readTimeoutStr, err)
	}
	if readTimeout <= 0 {
		return Config{}, fmt.Errorf("LORA_READ_TIMEOUT must be positive, got %v", readTimeout)
	}

	networkKey := strings.TrimSpace(os.Getenv("LORA_NETWORK_KEY"))
	if networkKey == "" {
		networkKey = "92A0ECEC9000DA0DCF0CAAB0ABA2E0EF"
	}

	stationID := strings.TrimSpace(os.Getenv("DEVICE_STATION_ID"))
	if stationID == "" {
		stationID = "outdoor"
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if mqttBroker == "" {
		mqttBroker = "localhost"
	}

	mqttPortStr := strings.TrimSpace(os.Getenv("MQTT_PORT"))
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "lora-receiver"
	}

	sqlitePath := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if sqlitePath == "" {
		sqlitePath = "data/readings.db"
	}

	return Config{
		AppEnv:       appEnv,
		LogLevel:     level,
		Device:       device,
		BaudRate:     baudRate,
		ReadTimeout:  readTimeout,
		NetworkKey:   networkKey,
		StationID:    stationID,
		MQTTBroker:   mqttBroker,
		MQTTPort:     mqttPort,
		MQTTClientID: mqttClientID,
		SQLitePath:   sqlitePath,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
