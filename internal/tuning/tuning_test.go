package tuning

import "testing"

func TestLoadWithoutOverridesMatchesDefault(t *testing.T) {
	if got, want := Load(), Default(); got != want {
		t.Fatalf("Load() diverged from Default():\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("ORBSNAKE_BASE_DELAY_TICKS", "2.5")
	t.Setenv("ORBSNAKE_MAX_EXTRAPOLATION_MS", "200")
	t.Setenv("ORBSNAKE_COMMAND_CAPACITY", "32")
	got := Load()
	if got.BaseDelayTicks != 2.5 {
		t.Fatalf("BaseDelayTicks = %v", got.BaseDelayTicks)
	}
	if got.MaxExtrapolateMs != 200 {
		t.Fatalf("MaxExtrapolateMs = %v", got.MaxExtrapolateMs)
	}
	if got.CommandCapacity != 32 {
		t.Fatalf("CommandCapacity = %d", got.CommandCapacity)
	}
	// Untouched fields keep their defaults.
	if got.HardErrorDeg != Default().HardErrorDeg {
		t.Fatalf("HardErrorDeg = %v", got.HardErrorDeg)
	}
}

func TestLoadRejectsMalformedAndNonPositive(t *testing.T) {
	t.Setenv("ORBSNAKE_INPUT_HZ", "many")
	t.Setenv("ORBSNAKE_HARD_ERROR_DEG", "-3")
	t.Setenv("ORBSNAKE_COMMAND_CAPACITY", "0")
	got := Load()
	def := Default()
	if got.InputHz != def.InputHz || got.HardErrorDeg != def.HardErrorDeg || got.CommandCapacity != def.CommandCapacity {
		t.Fatalf("malformed overrides leaked in: %+v", got)
	}
}
