package features

import (
	"errors"
	"testing"
)

func TestParseBackend(t *testing.T) {
	cases := []struct {
		in   string
		want Backend
	}{
		{"gftt", BackendGFTT},
		{"ORB", BackendORB},
		{" akaze ", BackendAKAZE},
		{"Brisk", BackendBRISK},
	}
	for _, tc := range cases {
		got, err := ParseBackend(tc.in)
		if err != nil {
			t.Fatalf("ParseBackend(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseBackend(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseBackendRejectsUnknown(t *testing.T) {
	if _, err := ParseBackend("sift-but-not-really"); !errors.Is(err, ErrUnsupportedBackend) {
		t.Fatalf("expected ErrUnsupportedBackend, got %v", err)
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	if _, err := New(Backend("surf"), DefaultConfig()); !errors.Is(err, ErrUnsupportedBackend) {
		t.Fatalf("expected ErrUnsupportedBackend, got %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxCorners != 200 || cfg.QualityLevel != 0.01 || cfg.MinDistance != 30 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
