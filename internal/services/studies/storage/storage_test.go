package storage

import (
	"testing"
	"time"
)

func TestWeekdayOf(t *testing.T) {
	tests := []struct {
		in   time.Weekday
		want Weekday
	}{
		{time.Monday, Monday},
		{time.Wednesday, Wednesday},
		{time.Saturday, Saturday},
		{time.Sunday, Sunday},
	}
	for _, tc := range tests {
		if got := WeekdayOf(tc.in); got != tc.want {
			t.Errorf("WeekdayOf(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestWeekdayIndex(t *testing.T) {
	if Monday.Index() != 1 || Sunday.Index() != 7 {
		t.Fatalf("unexpected indexes %d %d", Monday.Index(), Sunday.Index())
	}
	if Weekday("FUNDAY").Valid() {
		t.Fatal("expected unknown weekday to be invalid")
	}
}

func TestTaskDue(t *testing.T) {
	loc := time.UTC

	if _, ok := (Task{}).Due(loc); ok {
		t.Fatal("expected undated task to have no due instant")
	}

	timed, ok := Task{DueDate: "2025-03-10", DueTime: "14:30"}.Due(loc)
	if !ok {
		t.Fatal("expected timed task to be due")
	}
	if want := time.Date(2025, 3, 10, 14, 30, 0, 0, loc); !timed.Equal(want) {
		t.Fatalf("got %v, want %v", timed, want)
	}

	untimed, ok := Task{DueDate: "2025-03-10"}.Due(loc)
	if !ok {
		t.Fatal("expected dated task to be due")
	}
	if untimed.Day() != 10 || untimed.Hour() != 23 {
		t.Fatalf("expected end of day, got %v", untimed)
	}
}
