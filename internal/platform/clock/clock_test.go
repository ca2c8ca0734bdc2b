package clock

import (
	"testing"
	"time"
)

func TestToday_TruncatesToMidnight(t *testing.T) {
	at := time.Date(2024, 6, 15, 17, 42, 3, 0, time.UTC)
	today := Today(Fixed(at))

	if today.Hour() != 0 || today.Minute() != 0 || today.Second() != 0 {
		t.Errorf("expected midnight, got %v", today)
	}
	if today.Year() != 2024 || today.Month() != time.June || today.Day() != 15 {
		t.Errorf("expected 2024-06-15, got %v", today)
	}
}

func TestFixed_ReturnsSameInstant(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fixed(at)
	if !c.Now().Equal(at) {
		t.Errorf("expected %v, got %v", at, c.Now())
	}
}

func TestSystem_Advances(t *testing.T) {
	c := System()
	a := c.Now()
	b := c.Now()
	if b.Before(a) {
		t.Error("system clock went backwards")
	}
}
