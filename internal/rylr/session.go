// Package rylr implements the device session, telemetry decoder and receive
// loop for a REYAX RYLR896 LoRa transceiver on a serial link.
package rylr

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

var (
	// ErrTransportUnavailable means the serial channel could not be opened.
	ErrTransportUnavailable = errors.New("rylr: transport unavailable")
	// ErrProtocolTimeout means the module produced no response line before
	// the read deadline.
	ErrProtocolTimeout = errors.New("rylr: no response before read deadline")
)

// DefaultReadTimeout is the per-line read deadline used when the config does
// not set one.
const DefaultReadTimeout = 5 * time.Second

// Config describes how to open the serial link. The module speaks 8 data
// bits, no parity, 1 stop bit; only device and baud rate vary.
type Config struct {
	Device      string
	BaudRate    int
	ReadTimeout time.Duration
}

// Conn is the duplex byte channel the session drives. A deadline expiry must
// surface as a zero-byte read with a nil error, which is how a
// serial.Port behaves after SetReadTimeout. Tests substitute an in-memory
// fake.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Session owns the serial link to the transceiver: it issues AT commands
// during setup and hands raw received lines to the receive loop. One
// Session must have exactly one reader and one writer; concurrent command
// issuers would interleave partial writes and desynchronize the
// request/response pairing.
type Session struct {
	conn Conn
}

// Open establishes the serial channel and applies the read deadline.
func Open(cfg Config) (*Session, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrTransportUnavailable, cfg.Device, err)
	}

	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("%w: set read timeout: %w", ErrTransportUnavailable, err)
	}

	return NewSession(port), nil
}

// NewSession wraps an already-open connection.
func NewSession(conn Conn) *Session {
	return &Session{conn: conn}
}

// Close closes the underlying channel.
func (s *Session) Close() error {
	return s.conn.Close()
}

// ApplyNetworkKey writes the AES128 network key (32 hex digits) to the
// module and returns its one-line acknowledgement. Returns
// ErrProtocolTimeout when no acknowledgement arrives before the deadline.
func (s *Session) ApplyNetworkKey(key string) (string, error) {
	if len(key) != 32 {
		return "", fmt.Errorf("rylr: network key must be 32 hex digits, got %d characters", len(key))
	}
	if _, err := hex.DecodeString(key); err != nil {
		return "", fmt.Errorf("rylr: network key is not hexadecimal: %w", err)
	}

	if err := s.writeCommand(CmdNetworkKeySet + key); err != nil {
		return "", err
	}
	line, err := s.ReadLine()
	if err != nil {
		return "", err
	}
	if len(line) == 0 {
		return "", ErrProtocolTimeout
	}
	return trimLine(line), nil
}

// Diagnostic is one label/response pair produced by RunDiagnostics. A query
// that timed out carries an empty Response.
type Diagnostic struct {
	Label    string
	Response string
}

// RunDiagnostics issues the fixed query script, one write followed by one
// blocking read per query. A timed-out query is reported with an empty
// response and the remaining queries still run; only a transport error
// aborts the script.
func (s *Session) RunDiagnostics() ([]Diagnostic, error) {
	out := make([]Diagnostic, 0, len(diagnosticQueries))
	for _, q := range diagnosticQueries {
		if err := s.writeCommand(q.Command); err != nil {
			return out, err
		}
		line, err := s.ReadLine()
		if err != nil {
			return out, err
		}
		out = append(out, Diagnostic{Label: q.Label, Response: trimLine(line)})
	}
	return out, nil
}

// ReadLine blocks until an LF-terminated line arrives or the read deadline
// expires. On expiry it returns whatever bytes arrived, usually none;
// callers must treat an empty result as "no data this cycle", not as a
// malformed record. The returned line includes its terminator.
//
// Reads are one byte at a time rather than through a bufio.Reader: the
// port's deadline expiry is a (0, nil) read, which bufio escalates to
// io.ErrNoProgress.
func (s *Session) ReadLine() ([]byte, error) {
	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			return line, fmt.Errorf("rylr: read: %w", err)
		}
		if n == 0 {
			// Deadline expired.
			return line, nil
		}
		line = append(line, buf[0])
		if buf[0] == '\n' {
			return line, nil
		}
	}
}

func (s *Session) writeCommand(cmd string) error {
	if _, err := s.conn.Write([]byte(cmd + CRLF)); err != nil {
		return fmt.Errorf("rylr: write %s: %w", cmd, err)
	}
	return nil
}

// trimLine strips the trailing CR/LF from a response line.
func trimLine(line []byte) string {
	return strings.TrimSuffix(strings.TrimSuffix(string(line), "\n"), "\r")
}
