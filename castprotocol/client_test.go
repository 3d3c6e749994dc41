package castprotocol

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestParseDeviceAddr(t *testing.T) {
	tt := []struct {
		input    string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"http://192.168.1.10:8009", "192.168.1.10", 8009, false},
		{"http://192.168.1.10", "192.168.1.10", 8009, false},
		{"192.168.1.10:8010", "192.168.1.10", 8010, false},
		{"livingroom.local:8009", "livingroom.local", 8009, false},
		{"", "", 0, true},
		{"http://host:notaport", "", 0, true},
	}

	for _, tc := range tt {
		host, port, err := parseDeviceAddr(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseDeviceAddr(%q) err = nil, want error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseDeviceAddr(%q) err = %v", tc.input, err)
		}
		if host != tc.wantHost || port != tc.wantPort {
			t.Fatalf("parseDeviceAddr(%q) = %s:%d, want %s:%d", tc.input, host, port, tc.wantHost, tc.wantPort)
		}
	}
}

func TestCanonicalAddr(t *testing.T) {
	tt := []struct {
		input string
		want  string
	}{
		{"http://192.168.1.5:8009", "192.168.1.5:8009"},
		{"192.168.1.5:8009", "192.168.1.5:8009"},
		{" http://192.168.1.5 ", "192.168.1.5:8009"},
		{"[fe80::1]:8009", "[fe80::1]:8009"},
		{"http://host:notaport", "http://host:notaport"},
	}

	for _, tc := range tt {
		if got := CanonicalAddr(tc.input); got != tc.want {
			t.Fatalf("CanonicalAddr(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNewCastClientDefaults(t *testing.T) {
	c, err := NewCastClient("http://10.0.0.5:8009", "")
	if err != nil {
		t.Fatalf("NewCastClient() err = %v", err)
	}
	if c.IsConnected() {
		t.Fatalf("IsConnected() = true before Connect")
	}
	if c.Host() != "10.0.0.5" || c.Addr() != "10.0.0.5:8009" {
		t.Fatalf("Host/Addr = %q/%q", c.Host(), c.Addr())
	}
	if c.receiverID != DefaultReceiverID {
		t.Fatalf("receiverID = %q, want %q", c.receiverID, DefaultReceiverID)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTimeoutError(t *testing.T) {
	if isTimeoutError(nil) {
		t.Fatalf("isTimeoutError(nil) = true")
	}
	if !isTimeoutError(fmt.Errorf("load: %w", context.DeadlineExceeded)) {
		t.Fatalf("wrapped deadline not detected")
	}
	if !isTimeoutError(fmt.Errorf("dial: %w", timeoutErr{})) {
		t.Fatalf("net timeout not detected")
	}
	if isTimeoutError(errors.New("refused")) {
		t.Fatalf("plain error detected as timeout")
	}
}
