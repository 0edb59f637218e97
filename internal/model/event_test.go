package model

import "testing"

func TestLevelSeverityOrder(t *testing.T) {
	prev := -1
	for _, l := range Levels {
		s := l.Severity()
		if s <= prev {
			t.Errorf("Severity(%s) = %d, want > %d", l, s, prev)
		}
		prev = s
	}
}

func TestLevelSeverityUnknown(t *testing.T) {
	if s := Level("verbose").Severity(); s != -1 {
		t.Errorf("Severity(verbose) = %d, want -1", s)
	}
}

func TestLevelValid(t *testing.T) {
	for _, l := range Levels {
		if !l.Valid() {
			t.Errorf("Valid(%s) = false, want true", l)
		}
	}
	if Level("trace").Valid() {
		t.Error("Valid(trace) = true, want false")
	}
}

func TestLevelAtLeast(t *testing.T) {
	tests := []struct {
		l, other Level
		want     bool
	}{
		{LevelWarning, LevelWarning, true},
		{LevelError, LevelWarning, true},
		{LevelCritical, LevelDebug, true},
		{LevelInfo, LevelWarning, false},
		{LevelDebug, LevelInfo, false},
		{Level("bogus"), LevelDebug, false},
		{LevelCritical, Level("bogus"), false},
	}
	for _, tt := range tests {
		if got := tt.l.AtLeast(tt.other); got != tt.want {
			t.Errorf("AtLeast(%s, %s) = %v, want %v", tt.l, tt.other, got, tt.want)
		}
	}
}

func TestCategoryAlwaysAdmit(t *testing.T) {
	for _, c := range []Category{CategorySecurity, CategorySystemAction, CategoryCriticalOperation} {
		if !c.AlwaysAdmit() {
			t.Errorf("AlwaysAdmit(%s) = false, want true", c)
		}
	}
	for _, c := range []Category{CategoryUserAction, CategoryPerformance, Category("billing")} {
		if c.AlwaysAdmit() {
			t.Errorf("AlwaysAdmit(%s) = true, want false", c)
		}
	}
}
