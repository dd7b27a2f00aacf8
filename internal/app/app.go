package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/garystafford/iot-lora-demo/internal/config"
	"github.com/garystafford/iot-lora-demo/internal/mqtt"
	"github.com/garystafford/iot-lora-demo/internal/rylr"
	"github.com/garystafford/iot-lora-demo/internal/store"
	"github.com/garystafford/iot-lora-demo/internal/utils"
)

// Run wires the receiver together: serial session, sqlite journal, MQTT
// publisher, and the receive loop with a sink fanning out to all three.
func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"device", cfg.Device,
		"baudRate", cfg.BaudRate,
		"readTimeout", cfg.ReadTimeout,
		"stationID", cfg.StationID,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"sqlitePath", cfg.SQLitePath,
	)

	session, err := rylr.Open(rylr.Config{
		Device:      cfg.Device,
		BaudRate:    cfg.BaudRate,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			slog.Error("session close", "error", closeErr)
		}
	}()
	slog.Info("serial session opened", "device", cfg.Device, "baudRate", cfg.BaudRate)

	journal, err := store.Open(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := journal.Close(); closeErr != nil {
			slog.Error("store close", "error", closeErr)
		}
	}()

	publisher, err := mqtt.NewClient(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer publisher.Disconnect()

	// Short timeout for the initial connect so a down broker does not block
	// startup; readings are still logged and journaled without it.
	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err = publisher.Connect(connectCtx)
	connectCancel()
	if err != nil {
		slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
	}

	sink := &telemetrySink{
		stationID: cfg.StationID,
		journal:   journal,
		publisher: publisher,
		logger:    slog.Default(),
	}

	loop := rylr.NewLoop(session, cfg.NetworkKey, sink, slog.Default())
	return loop.Run(ctx)
}

// telemetrySink handles every loop outcome: decoded records are rendered to
// the log, journaled, and published; decode failures are logged with the
// offending line.
type telemetrySink struct {
	stationID string
	journal   *store.Store
	publisher *mqtt.Client
	logger    *slog.Logger
}

func (s *telemetrySink) HandleRecord(rec rylr.Record) {
	now := time.Now()
	color := rec.DisplayColor()

	s.logger.Info("telemetry received",
		"station_id", s.stationID,
		"temperature_c", rec.Temperature,
		"temperature_f", rylr.CelsiusToFahrenheit(rec.Temperature),
		"humidity_pct", rec.Humidity,
		"pressure_kpa", rec.Pressure,
		"rgba_12bit", []float64{rec.Red, rec.Green, rec.Blue, rec.Ambient},
		"rgba_8bit", []int{int(color.Red), int(color.Green), int(color.Blue), int(color.Ambient)},
	)

	if err := s.journal.InsertReading(store.Reading{
		Time:        now,
		Temperature: rec.Temperature,
		Humidity:    rec.Humidity,
		Pressure:    rec.Pressure,
		Red:         rec.Red,
		Green:       rec.Green,
		Blue:        rec.Blue,
		Ambient:     rec.Ambient,
	}); err != nil {
		s.logger.Error("journal reading", "error", err)
	}

	if err := s.publisher.PublishTelemetry(mqtt.Telemetry{
		StationID:    s.stationID,
		Timestamp:    now,
		TemperatureC: rec.Temperature,
		TemperatureF: rylr.CelsiusToFahrenheit(rec.Temperature),
		HumidityPct:  rec.Humidity,
		PressureKPa:  rec.Pressure,
		Red:          rec.Red,
		Green:        rec.Green,
		Blue:         rec.Blue,
		Ambient:      rec.Ambient,
		Red8:         color.Red,
		Green8:       color.Green,
		Blue8:        color.Blue,
		Ambient8:     color.Ambient,
	}); err != nil {
		s.logger.Warn("publish telemetry", "error", err)
	}
}

func (s *telemetrySink) HandleFailure(decodeErr *rylr.DecodeError) {
	s.logger.Warn("malformed telemetry line",
		"kind", decodeErr.Kind.String(),
		"line", string(decodeErr.Line),
		"line_hex", utils.BytesToHex(decodeErr.Line),
		"error", decodeErr,
	)
}
