package domain

import "testing"

func boolPtr(v bool) *bool { return &v }

func TestFlagsReconcilePrecedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		flags  Flags
		want   ToggleState
		wantOK bool
	}{
		{name: "json on speak off", flags: NewFlags(true, false), want: ToggleOn, wantOK: true},
		{name: "json off speak on", flags: NewFlags(false, true), want: ToggleOn, wantOK: true},
		{name: "both off", flags: NewFlags(false, false), want: ToggleOff, wantOK: true},
		{name: "both on", flags: NewFlags(true, true), want: ToggleOn, wantOK: true},
		{name: "only json off", flags: Flags{JSONMode: boolPtr(false)}, want: ToggleOff, wantOK: true},
		{name: "only speak on", flags: Flags{SpeakMode: boolPtr(true)}, want: ToggleOn, wantOK: true},
		{name: "nothing reported", flags: Flags{}, wantOK: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tc.flags.Reconcile()
			if ok != tc.wantOK {
				t.Fatalf("unexpected ok: %v", ok)
			}
			if ok && got != tc.want {
				t.Fatalf("unexpected state: %q", got)
			}
		})
	}
}

func TestRegionForIsExclusive(t *testing.T) {
	t.Parallel()

	if got := RegionFor(ModeListening); got != RegionListeningWaveform {
		t.Fatalf("unexpected listening region: %q", got)
	}
	if got := RegionFor(ModeIdle); got != RegionIdleIndicator {
		t.Fatalf("unexpected idle region: %q", got)
	}
	if got := RegionFor(""); got != RegionIdleIndicator {
		t.Fatalf("expected idle fallback, got %q", got)
	}
}

func TestGestureKindValid(t *testing.T) {
	t.Parallel()

	if !GestureToggleMonitorOff.Valid() {
		t.Fatalf("expected known gesture to be valid")
	}
	if GestureKind("wave").Valid() {
		t.Fatalf("expected unknown gesture to be invalid")
	}
}
