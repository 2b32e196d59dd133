package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOccursOn(t *testing.T) {
	tests := []struct {
		name  string
		dob   time.Time
		today time.Time
		want  bool
	}{
		{"same month and day", date(1990, time.June, 15), date(2025, time.June, 15), true},
		{"year is ignored", date(1961, time.June, 15), date(2025, time.June, 15), true},
		{"different day", date(1990, time.June, 15), date(2025, time.June, 16), false},
		{"different month", date(1990, time.June, 15), date(2025, time.July, 15), false},
		{"day matches but month differs", date(1990, time.January, 3), date(2025, time.March, 3), false},
		{"leap day matches leap day", date(1992, time.February, 29), date(2024, time.February, 29), true},
		{"leap day does not match march 1st", date(1992, time.February, 29), date(2025, time.March, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Birthday{DOB: tt.dob}
			assert.Equal(t, tt.want, b.OccursOn(tt.today))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("Ada@Example.COM"))
	assert.Equal(t, "ada@example.com", NormalizeEmail("  ada@example.com "))
}
