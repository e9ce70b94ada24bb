package dateparse

import (
	"testing"
	"time"
)

// Wednesday, 2024-09-04 15:30 UTC
var testNow = time.Date(2024, 9, 4, 15, 30, 0, 0, time.UTC)

func day(d, m, y int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestParseFrom(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"02.09.2024", day(2, 9, 2024)},
		{"2024-12-31", day(31, 12, 2024)},
		{"today", day(4, 9, 2024)},
		{"  Сегодня ", day(4, 9, 2024)},
		{"tomorrow", day(5, 9, 2024)},
		{"завтра", day(5, 9, 2024)},
		{"yesterday", day(3, 9, 2024)},
		{"+0d", day(4, 9, 2024)},
		{"+3d", day(7, 9, 2024)},
		{"-4d", day(31, 8, 2024)},
		{"+2w", day(18, 9, 2024)},
		{"wednesday", day(4, 9, 2024)},
		{"friday", day(6, 9, 2024)},
		{"пн", day(9, 9, 2024)},
		{"Tue", day(10, 9, 2024)},
	}
	for _, tt := range tests {
		got, err := ParseFrom(tt.input, testNow)
		if err != nil {
			t.Errorf("ParseFrom(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseFrom(%q) = %s, want %s", tt.input, got.Format("02.01.2006"), tt.want.Format("02.01.2006"))
		}
	}
}

func TestParseFromErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "someday", "+3m", "+xd", "31.02.2024", "2024/09/01"} {
		if _, err := ParseFrom(input, testNow); err == nil {
			t.Errorf("ParseFrom(%q): expected error", input)
		}
	}
}

func TestRange(t *testing.T) {
	got := Range(day(30, 8, 2024), 3)
	want := []time.Time{day(30, 8, 2024), day(31, 8, 2024), day(1, 9, 2024)}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("Range[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if len(Range(day(1, 9, 2024), 0)) != 0 {
		t.Error("Range(0) should be empty")
	}
}
