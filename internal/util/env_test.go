package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{"unset uses default", "", true, true},
		{"true", "true", false, true},
		{"numeric true", "1", false, true},
		{"yes", "YES", false, true},
		{"on", "on", false, true},
		{"false", "false", true, false},
		{"numeric false", "0", true, false},
		{"off", "Off", true, false},
		{"garbage uses default", "maybe", true, true},
		{"padded value", " true ", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("TEST_BOOL", tt.value)
			}
			if got := ParseBoolEnv("TEST_BOOL", tt.def); got != tt.expected {
				t.Errorf("ParseBoolEnv(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	if got := GetEnv("TEST_UNSET_VAR", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
	t.Setenv("TEST_SET_VAR", "value")
	if got := GetEnv("TEST_SET_VAR", "fallback"); got != "value" {
		t.Errorf("expected value, got %q", got)
	}
}

func TestParseIntEnv(t *testing.T) {
	if got := ParseIntEnv("TEST_UNSET_INT", 42); got != 42 {
		t.Errorf("expected default 42, got %d", got)
	}
	t.Setenv("TEST_INT", "7")
	if got := ParseIntEnv("TEST_INT", 42); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	t.Setenv("TEST_INT", "not a number")
	if got := ParseIntEnv("TEST_INT", 42); got != 42 {
		t.Errorf("invalid value should use default, got %d", got)
	}
}

func TestParseDurationEnv(t *testing.T) {
	if got := ParseDurationEnv("TEST_UNSET_DUR", time.Minute); got != time.Minute {
		t.Errorf("expected default, got %v", got)
	}
	t.Setenv("TEST_DUR", "30s")
	if got := ParseDurationEnv("TEST_DUR", time.Minute); got != 30*time.Second {
		t.Errorf("expected 30s, got %v", got)
	}
	t.Setenv("TEST_DUR", "soon")
	if got := ParseDurationEnv("TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("invalid value should use default, got %v", got)
	}
}
