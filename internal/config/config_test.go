package config

import (
	"log/slog"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "LOG_LEVEL", "LORA_READ_TIMEOUT", "LORA_NETWORK_KEY",
		"DEVICE_STATION_ID", "MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID",
		"SQLITE_PATH",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := Load([]string{"/dev/ttyAMA0", "115200"})
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if got.Device != "/dev/ttyAMA0" {
		t.Errorf("Device = %q, want %q", got.Device, "/dev/ttyAMA0")
	}
	if got.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", got.BaudRate)
	}
	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", got.ReadTimeout)
	}
	if len(got.NetworkKey) != 32 {
		t.Errorf("NetworkKey length = %d, want 32", len(got.NetworkKey))
	}
	if got.StationID != "outdoor" {
		t.Errorf("StationID = %q, want %q", got.StationID, "outdoor")
	}
	if got.MQTTBroker != "localhost" || got.MQTTPort != 1883 {
		t.Errorf("MQTT defaults = %q:%d, want localhost:1883", got.MQTTBroker, got.MQTTPort)
	}
	if got.SQLitePath != "data/readings.db" {
		t.Errorf("SQLitePath = %q, want %q", got.SQLitePath, "data/readings.db")
	}
}

func TestLoad_ArgErrors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"missing baud", []string{"/dev/ttyAMA0"}},
		{"extra arg", []string{"/dev/ttyAMA0", "115200", "x"}},
		{"empty device", []string{"  ", "115200"}},
		{"non-numeric baud", []string{"/dev/ttyAMA0", "fast"}},
		{"negative baud", []string{"/dev/ttyAMA0", "-9600"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.args); err == nil {
				t.Errorf("Load(%v) error = nil, want error", tt.args)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LORA_READ_TIMEOUT", "2s")
	t.Setenv("LORA_NETWORK_KEY", "00000000000000000000000000000000")
	t.Setenv("DEVICE_STATION_ID", "rooftop")
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("SQLITE_PATH", "/tmp/readings.db")

	got, err := Load([]string{"/dev/ttyUSB0", "9600"})
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if got.AppEnv != "prod" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "prod")
	}
	if got.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelDebug)
	}
	if got.ReadTimeout != 2*time.Second {
		t.Errorf("ReadTimeout = %v, want 2s", got.ReadTimeout)
	}
	if got.StationID != "rooftop" {
		t.Errorf("StationID = %q, want %q", got.StationID, "rooftop")
	}
	if got.MQTTBroker != "broker.local" || got.MQTTPort != 8883 {
		t.Errorf("MQTT = %q:%d, want broker.local:8883", got.MQTTBroker, got.MQTTPort)
	}
	if got.SQLitePath != "/tmp/readings.db" {
		t.Errorf("SQLitePath = %q, want %q", got.SQLitePath, "/tmp/readings.db")
	}
}

func TestLoad_EnvErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad app env", "APP_ENV", "staging"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"bad read timeout", "LORA_READ_TIMEOUT", "soon"},
		{"zero read timeout", "LORA_READ_TIMEOUT", "0s"},
		{"bad mqtt port", "MQTT_PORT", "tcp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load([]string{"/dev/ttyAMA0", "115200"}); err == nil {
				t.Errorf("Load() with %s=%q error = nil, want error", tt.key, tt.value)
			}
		})
	}
}
