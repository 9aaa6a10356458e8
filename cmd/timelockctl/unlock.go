package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// parseUnlock accepts an RFC3339 time, a unix timestamp in seconds, or a
// duration from now prefixed with "+". Durations may lead with whole days,
// as in "+7d" or "+1d12h".
func parseUnlock(s string, now time.Time) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("unlock time is required")
	}

	if strings.HasPrefix(s, "+") {
		d, err := parseRelative(s[1:])
		if err != nil {
			return 0, errors.Wrapf(err, "invalid unlock duration %q", s)
		}
		if d <= 0 {
			return 0, errors.Errorf("unlock duration %q must be positive", s)
		}
		return now.Add(d).Unix(), nil
	}

	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, errors.Errorf("invalid unlock time %q: expected RFC3339, unix seconds or +duration", s)
	}
	return t.Unix(), nil
}

func parseRelative(s string) (time.Duration, error) {
	var days time.Duration
	if i := strings.Index(s, "d"); i >= 0 {
		n, err := strconv.ParseUint(s[:i], 10, 32)
		if err != nil {
			return 0, err
		}
		days = time.Duration(n) * 24 * time.Hour
		s = s[i+1:]
	}

	if s == "" {
		return days, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return days + d, nil
}
