package collector

import (
	"fmt"
	"time"
)

// ParseInterval converts a short interval ("15m", "4h", "1d", "1w") into a duration.
func ParseInterval(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, fmt.Errorf("invalid interval: %q", interval)
	}
	unit := interval[len(interval)-1]
	n, err := parseCount(interval[:len(interval)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid interval number: %s", interval)
	}

	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported interval unit: %c", unit)
	}
}

func parseCount(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid number %q", s)
		}
		n = n*10 + int64(r-'0')
	}
	if n == 0 {
		return 0, fmt.Errorf("zero interval")
	}
	return n, nil
}
