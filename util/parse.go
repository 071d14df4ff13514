package util

import (
	"strconv"
	"time"
)

func ParseTime(val string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, val)
}

// ParseLimit reads a page size, falling back to def and capping at max.
func ParseLimit(val string, def int, max int) int {
	limit, err := strconv.Atoi(val)
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
