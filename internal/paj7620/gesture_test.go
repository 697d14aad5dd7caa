package paj7620

import "testing"

func TestParseGesture(t *testing.T) {
	for _, g := range append(Gestures(), GestureNone) {
		got, err := ParseGesture(g.String())
		if err != nil {
			t.Fatalf("ParseGesture(%q) error = %v", g.String(), err)
		}
		if got != g {
			t.Errorf("ParseGesture(%q) = %v", g.String(), got)
		}
	}

	if got, err := ParseGesture(" Forward "); err != nil || got != GestureForward {
		t.Errorf("ParseGesture(\" Forward \") = %v, %v", got, err)
	}
	if _, err := ParseGesture("push"); err == nil {
		t.Error("ParseGesture(\"push\") error = nil")
	}
}

func TestGestureText(t *testing.T) {
	var g Gesture
	if err := g.UnmarshalText([]byte("anticlockwise")); err != nil {
		t.Fatal(err)
	}
	if g != GestureAnticlockwise {
		t.Errorf("UnmarshalText() = %v", g)
	}
	text, _ := GestureWave.MarshalText()
	if string(text) != "wave" {
		t.Errorf("MarshalText() = %q", text)
	}
	if s := Gesture(42).String(); s != "Gesture(42)" {
		t.Errorf("String() = %q", s)
	}
}

func TestFlagsAreSingleBits(t *testing.T) {
	seen := Flag(0)
	for _, f := range []Flag{FlagRight, FlagLeft, FlagUp, FlagDown, FlagForward, FlagBackward, FlagClockwise, FlagAnticlockwise} {
		if f == 0 || f&(f-1) != 0 {
			t.Errorf("flag 0x%02X is not a single bit", byte(f))
		}
		if seen&f != 0 {
			t.Errorf("flag 0x%02X overlaps", byte(f))
		}
		seen |= f
	}
}
