package rylr

import (
	"errors"
	"strings"
	"testing"
)

// fakeConn scripts the transport: each script entry is delivered as a burst
// of bytes, and an empty entry (or an exhausted script) behaves like a
// deadline expiry, i.e. a zero-byte read with no error.
type fakeConn struct {
	script []string
	buf    []byte
	writes []string
	closed bool
}

func (f *fakeConn) Read(p []byte) (int, error) {
	if len(f.buf) == 0 {
		if len(f.script) == 0 {
			return 0, nil
		}
		next := f.script[0]
		f.script = f.script[1:]
		if next == "" {
			return 0, nil
		}
		f.buf = []byte(next)
	}
	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

func (f *fakeConn) Write(p []byte) (int, error) {
	f.writes = append(f.writes, string(p))
	return len(p), nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

const testKey = "92A0ECEC9000DA0DCF0CAAB0ABA2E0EF"

func TestReadLine_DeadlineExpiryReturnsEmpty(t *testing.T) {
	s := NewSession(&fakeConn{script: []string{""}})

	line, err := s.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine() error = %v, want nil", err)
	}
	if len(line) != 0 {
		t.Errorf("ReadLine() = %q, want empty", line)
	}
}

func TestReadLine_ReturnsTerminatedLine(t *testing.T) {
	s := NewSession(&fakeConn{script: []string{"+OK\r\n+IGNORED\r\n"}})

	line, err := s.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine() error = %v, want nil", err)
	}
	if string(line) != "+OK\r\n" {
		t.Errorf("ReadLine() = %q, want %q", line, "+OK\r\n")
	}
}

func TestApplyNetworkKey(t *testing.T) {
	conn := &fakeConn{script: []string{"+OK\r\n"}}
	s := NewSession(conn)

	resp, err := s.ApplyNetworkKey(testKey)
	if err != nil {
		t.Fatalf("ApplyNetworkKey() error = %v, want nil", err)
	}
	if resp != "+OK" {
		t.Errorf("response = %q, want %q", resp, "+OK")
	}
	if len(conn.writes) != 1 || conn.writes[0] != "AT+CPIN="+testKey+"\r\n" {
		t.Errorf("writes = %q, want single AT+CPIN command", conn.writes)
	}
}

func TestApplyNetworkKey_Timeout(t *testing.T) {
	s := NewSession(&fakeConn{script: []string{""}})

	_, err := s.ApplyNetworkKey(testKey)
	if !errors.Is(err, ErrProtocolTimeout) {
		t.Errorf("ApplyNetworkKey() error = %v, want ErrProtocolTimeout", err)
	}
}

func TestApplyNetworkKey_RejectsInvalidKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"too short", "92A0ECEC"},
		{"not hex", strings.Repeat("ZZ", 16)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{}
			s := NewSession(conn)

			if _, err := s.ApplyNetworkKey(tt.key); err == nil {
				t.Fatal("ApplyNetworkKey() error = nil, want error")
			}
			if len(conn.writes) != 0 {
				t.Errorf("writes = %q, want none for a rejected key", conn.writes)
			}
		})
	}
}

func TestRunDiagnostics_OrderAndIndependentTimeouts(t *testing.T) {
	// Ten queries; the third response never arrives.
	script := []string{
		"+OK\r\n",
		"+ADDRESS=116\r\n",
		"",
		"+NETWORKID=6\r\n",
		"+IPR=115200\r\n",
		"+BAND=915000000\r\n",
		"+CRFOP=15\r\n",
		"+MODE=0\r\n",
		"+PARAMETER=12,7,1,4\r\n",
		"+CPIN=" + testKey + "\r\n",
	}
	conn := &fakeConn{script: script}
	s := NewSession(conn)

	diags, err := s.RunDiagnostics()
	if err != nil {
		t.Fatalf("RunDiagnostics() error = %v, want nil", err)
	}
	if len(diags) != len(diagnosticQueries) {
		t.Fatalf("len(diags) = %d, want %d", len(diags), len(diagnosticQueries))
	}
	for i, d := range diags {
		if d.Label != diagnosticQueries[i].Label {
			t.Errorf("diags[%d].Label = %q, want %q", i, d.Label, diagnosticQueries[i].Label)
		}
	}
	if diags[2].Response != "" {
		t.Errorf("timed-out query response = %q, want empty", diags[2].Response)
	}
	if diags[3].Response != "+NETWORKID=6" {
		t.Errorf("diags[3].Response = %q, want %q", diags[3].Response, "+NETWORKID=6")
	}

	// One write per query, in script order.
	if len(conn.writes) != len(diagnosticQueries) {
		t.Fatalf("len(writes) = %d, want %d", len(conn.writes), len(diagnosticQueries))
	}
	for i, w := range conn.writes {
		want := diagnosticQueries[i].Command + "\r\n"
		if w != want {
			t.Errorf("writes[%d] = %q, want %q", i, w, want)
		}
	}
}

func TestSessionClose(t *testing.T) {
	conn := &fakeConn{}
	s := NewSession(conn)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v, want nil", err)
	}
	if !conn.closed {
		t.Error("Close() did not close the connection")
	}
}
