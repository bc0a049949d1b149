package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration that also accepts a whole-day "d" suffix,
// which time.ParseDuration stops short of.
type Duration struct {
	time.Duration
}

// EnvDecode implements envconfig.Decoder.
func (d *Duration) EnvDecode(_ context.Context, v string) error {
	return d.UnmarshalText([]byte(v))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v := string(text)
	if v == "" {
		return nil
	}

	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return fmt.Errorf("invalid days value %q: %w", v, err)
		}
		d.Duration = time.Duration(n) * 24 * time.Hour
		return nil
	}

	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", v, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// String returns the string representation of the duration
func (d Duration) String() string {
	return d.Duration.String()
}
