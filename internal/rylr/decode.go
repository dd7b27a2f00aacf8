package rylr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FailureKind classifies a decode failure.
type FailureKind int

const (
	KindEncoding FailureKind = iota
	KindFieldCount
	KindNumericFormat
)

func (k FailureKind) String() string {
	switch k {
	case KindEncoding:
		return "encoding"
	case KindFieldCount:
		return "field-count"
	case KindNumericFormat:
		return "numeric-format"
	default:
		return "unknown"
	}
}

// DecodeError reports one malformed line. The offending raw line is carried
// so sinks can log it.
type DecodeError struct {
	Kind FailureKind
	Line []byte
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rylr: decode (%s): %v: %q", e.Kind, e.Err, e.Line)
	}
	return fmt.Sprintf("rylr: decode (%s): %q", e.Kind, e.Line)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Record is one decoded telemetry report. The color channels are raw 12-bit
// ADC samples in [0, 4095].
type Record struct {
	Temperature float64 // °C
	Humidity    float64 // %
	Pressure    float64 // kPa
	Red         float64
	Green       float64
	Blue        float64
	Ambient     float64
}

// DisplayColor is the 8-bit-scaled view of the four color channels, derived
// on demand and never stored back into the record.
type DisplayColor struct {
	Red     uint8
	Green   uint8
	Blue    uint8
	Ambient uint8
}

// DisplayColor derives the display-ready 8-bit channel values.
func (r Record) DisplayColor() DisplayColor {
	return DisplayColor{
		Red:     ScaleTo8Bit(r.Red),
		Green:   ScaleTo8Bit(r.Green),
		Blue:    ScaleTo8Bit(r.Blue),
		Ambient: ScaleTo8Bit(r.Ambient),
	}
}

const (
	payloadFieldCount = 7
	// terminatorLen is the CR/LF pair ending every received frame.
	terminatorLen = 2
)

// Decode turns one raw frame into a Record.
//
// Frame format: +RCV=<addr>,<len>,<t>|<h>|<p>|<r>|<g>|<b>|<a>,<rssi>,<snr>
// Only the third comma-segment is consumed here; address, length, RSSI and
// SNR belong to the framing layer and are discarded. Incoming bytes must be
// valid UTF-8 (the payload is plain ASCII in practice; RF corruption with
// the high bit set fails with KindEncoding rather than turning into
// replacement runes).
func Decode(line []byte) (Record, error) {
	if !utf8.Valid(line) {
		return Record{}, &DecodeError{Kind: KindEncoding, Line: line}
	}
	text := string(line)
	if len(text) >= terminatorLen {
		text = text[:len(text)-terminatorLen]
	}

	segments := strings.Split(text, ",")
	if len(segments) < 3 {
		return Record{}, &DecodeError{
			Kind: KindFieldCount,
			Line: line,
			Err:  fmt.Errorf("%d comma-separated segments, need at least 3", len(segments)),
		}
	}

	fields := strings.Split(segments[2], "|")
	if len(fields) != payloadFieldCount {
		return Record{}, &DecodeError{
			Kind: KindFieldCount,
			Line: line,
			Err:  fmt.Errorf("%d payload fields, want %d", len(fields), payloadFieldCount),
		}
	}

	var values [payloadFieldCount]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Record{}, &DecodeError{Kind: KindNumericFormat, Line: line, Err: err}
		}
		values[i] = v
	}

	return Record{
		Temperature: values[0],
		Humidity:    values[1],
		Pressure:    values[2],
		Red:         values[3],
		Green:       values[4],
		Blue:        values[5],
		Ambient:     values[6],
	}, nil
}

// CelsiusToFahrenheit converts a temperature reading for display.
func CelsiusToFahrenheit(c float64) float64 {
	return c*1.8 + 32
}

// ScaleTo8Bit maps a raw 12-bit sample to the 0-255 display range, rounding
// half away from zero. The 4097 divisor matches the transmitting firmware's
// scaling convention and is kept as-is.
func ScaleTo8Bit(raw float64) uint8 {
	return uint8(math.Round(raw / (4097.0 / 255.0)))
}
