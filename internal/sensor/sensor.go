package sensor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// SensorConfig is the radio configuration accepted by the gateway's
// /sensor/config endpoint. The squelch threshold travels as "squelti" on the
// wire; gateways in the field expect that exact key.
type SensorConfig struct {
	SensorType string `json:"sensor_type"`
	Frequency  uint32 `json:"frequency"`
	Power      uint32 `json:"power"`
	Squelch    uint32 `json:"squelti"`
}

func Default() SensorConfig {
	return SensorConfig{
		SensorType: "radio",
		Frequency:  2100000,
		Power:      300,
		Squelch:    200,
	}
}

// Key is the identity the gateway stores configs under.
func (c SensorConfig) Key() string {
	return c.SensorType
}

func (c SensorConfig) Marshal() ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sensor config: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a payload strictly: it must be a single JSON object
// carrying exactly sensor_type, frequency, power and squelti.
func Unmarshal(b []byte) (SensorConfig, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return SensorConfig{}, fmt.Errorf("sensor config must be a JSON object, got %q", b)
	}

	var wire struct {
		SensorType *string `json:"sensor_type"`
		Frequency  *uint32 `json:"frequency"`
		Power      *uint32 `json:"power"`
		Squelch    *uint32 `json:"squelti"`
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return SensorConfig{}, fmt.Errorf("failed to unmarshal sensor config: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return SensorConfig{}, fmt.Errorf("unexpected data after sensor config object")
	}

	var missing []string
	if wire.SensorType == nil {
		missing = append(missing, "sensor_type")
	}
	if wire.Frequency == nil {
		missing = append(missing, "frequency")
	}
	if wire.Power == nil {
		missing = append(missing, "power")
	}
	if wire.Squelch == nil {
		missing = append(missing, "squelti")
	}
	if len(missing) > 0 {
		return SensorConfig{}, fmt.Errorf("sensor config is missing fields %v", missing)
	}

	return SensorConfig{
		SensorType: *wire.SensorType,
		Frequency:  *wire.Frequency,
		Power:      *wire.Power,
		Squelch:    *wire.Squelch,
	}, nil
}
