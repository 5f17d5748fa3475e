package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCurrentShiftDate(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"after midnight", time.Date(2024, 1, 11, 0, 30, 0, 0, cairo), "2024-01-10"},
		{"03:59", time.Date(2024, 1, 11, 3, 59, 0, 0, cairo), "2024-01-10"},
		{"04:00", time.Date(2024, 1, 11, 4, 0, 0, 0, cairo), "2024-01-10"},
		{"04:01", time.Date(2024, 1, 11, 4, 1, 0, 0, cairo), "2024-01-11"},
		{"afternoon", time.Date(2024, 1, 11, 16, 0, 0, 0, cairo), "2024-01-11"},
		{"new year", time.Date(2024, 1, 1, 1, 0, 0, 0, cairo), "2023-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DateString(CurrentShiftDate(tt.now)))
		})
	}
}

func TestClockUsesZone(t *testing.T) {
	// 01:30 UTC is 03:30 in Cairo, still the previous shift day there
	utc := time.Date(2024, 1, 11, 1, 30, 0, 0, time.UTC)
	c := NewClock(cairo).WithNow(func() time.Time { return utc })

	assert.Equal(t, 3, c.Now().Hour())
	assert.Equal(t, "2024-01-10", c.ShiftDate())
	assert.Equal(t, cairo, c.Location())
}
