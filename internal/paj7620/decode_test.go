package paj7620

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/char5742/paj7620-gestures/internal/bus"
)

func TestReadGestureLateral(t *testing.T) {
	laterals := []struct {
		flag Flag
		want Gesture
	}{
		{FlagRight, GestureRight},
		{FlagLeft, GestureLeft},
		{FlagUp, GestureUp},
		{FlagDown, GestureDown},
	}
	seconds := []struct {
		name   string
		second func(first Flag) byte
		depth  Gesture
	}{
		{"forward", func(Flag) byte { return byte(FlagForward) }, GestureForward},
		{"backward", func(Flag) byte { return byte(FlagBackward) }, GestureBackward},
		{"unchanged", func(f Flag) byte { return byte(f) }, GestureNone},
		{"zero", func(Flag) byte { return 0x00 }, GestureNone},
		{"clockwise", func(Flag) byte { return byte(FlagClockwise) }, GestureNone},
		{"forward and backward", func(Flag) byte { return byte(FlagForward | FlagBackward) }, GestureNone},
	}

	for _, lt := range laterals {
		for _, st := range seconds {
			t.Run(lt.want.String()+"/"+st.name, func(t *testing.T) {
				dev, sim, rec := newTestDevice(t)
				dev.SetEntryDelay(15 * time.Millisecond)
				dev.SetExitDelay(250 * time.Millisecond)
				sim.QueueFlags(byte(lt.flag), st.second(lt.flag))

				got, err := dev.ReadGesture(context.Background())
				if err != nil {
					t.Fatalf("ReadGesture() error = %v", err)
				}

				want := lt.want
				wantSleep := []time.Duration{15 * time.Millisecond, 0}
				if st.depth != GestureNone {
					want = st.depth
					wantSleep = []time.Duration{15 * time.Millisecond, 250 * time.Millisecond}
				}
				if got != want {
					t.Errorf("ReadGesture() = %v, want %v", got, want)
				}
				if n := countReads(sim, RegGesture0); n != 2 {
					t.Errorf("flag register read %d times, want 2", n)
				}
				if n := countReads(sim, RegGesture1); n != 0 {
					t.Errorf("wave register read %d times, want 0", n)
				}
				if len(rec.calls) != len(wantSleep) || rec.calls[0] != wantSleep[0] || rec.calls[1] != wantSleep[1] {
					t.Errorf("sleeps = %v, want %v", rec.calls, wantSleep)
				}
			})
		}
	}
}

func TestReadGestureDirect(t *testing.T) {
	tests := []struct {
		name      string
		flag      Flag
		want      Gesture
		wantSleep time.Duration
	}{
		{"forward", FlagForward, GestureForward, 200 * time.Millisecond},
		{"backward", FlagBackward, GestureBackward, 200 * time.Millisecond},
		{"clockwise", FlagClockwise, GestureClockwise, 0},
		{"anticlockwise", FlagAnticlockwise, GestureAnticlockwise, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, sim, rec := newTestDevice(t)
			// 2回目の読み出しがあれば前後判定が混ざる
			sim.QueueFlags(byte(tt.flag), byte(FlagBackward))

			got, err := dev.ReadGesture(context.Background())
			if err != nil {
				t.Fatalf("ReadGesture() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadGesture() = %v, want %v", got, tt.want)
			}
			if n := countReads(sim, RegGesture0); n != 1 {
				t.Errorf("flag register read %d times, want 1", n)
			}
			if rec.total() != tt.wantSleep {
				t.Errorf("slept %v, want %v", rec.total(), tt.wantSleep)
			}
		})
	}
}

func TestReadGestureWave(t *testing.T) {
	tests := []struct {
		name    string
		primary byte
		wave    byte
		want    Gesture
	}{
		{"wave", 0x00, byte(FlagWave), GestureWave},
		{"nothing", 0x00, 0x00, GestureNone},
		{"other wave bits", 0x00, 0x03, GestureNone},
		// 複数ビットが同時に立った場合は未知の値としてウェーブ確認に進む
		{"simultaneous flags with wave", byte(FlagRight | FlagUp), byte(FlagWave), GestureWave},
		{"simultaneous flags", byte(FlagForward | FlagLeft), 0x00, GestureNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, sim, rec := newTestDevice(t)
			sim.QueueFlags(tt.primary)
			sim.QueueWave(tt.wave)

			got, err := dev.ReadGesture(context.Background())
			if err != nil {
				t.Fatalf("ReadGesture() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadGesture() = %v, want %v", got, tt.want)
			}
			if n := countReads(sim, RegGesture1); n != 1 {
				t.Errorf("wave register read %d times, want 1", n)
			}
			if rec.total() != 0 {
				t.Errorf("slept %v, want 0", rec.total())
			}
		})
	}
}

func TestReadGestureTransportError(t *testing.T) {
	dev, sim, _ := newTestDevice(t)
	sim.QueueFlags(byte(FlagForward))
	sim.FailRead(RegGesture0, 3)

	got, err := dev.ReadGesture(context.Background())
	if got != GestureNone {
		t.Errorf("ReadGesture() = %v, want none", got)
	}
	if bus.Status(err) != 3 {
		t.Errorf("status = %d, want 3", bus.Status(err))
	}
}

func TestReadGestureWaveReadError(t *testing.T) {
	dev, sim, _ := newTestDevice(t)
	sim.FailRead(RegGesture1, 5)

	got, err := dev.ReadGesture(context.Background())
	if got != GestureNone || bus.Status(err) != 5 {
		t.Errorf("ReadGesture() = %v, %v", got, err)
	}
}

// failAfterBus はn回目以降の読み出しを失敗させる
type failAfterBus struct {
	*bus.Sim
	reads int
	after int
}

func (f *failAfterBus) ReadRegister(addr, reg byte, n int) ([]byte, error) {
	f.reads++
	if f.reads > f.after {
		return nil, &bus.TransportError{Op: "read", Addr: addr, Reg: reg, Status: 4}
	}
	return f.Sim.ReadRegister(addr, reg, n)
}

func TestReadGestureSecondReadError(t *testing.T) {
	sim := bus.NewSim(Address)
	fb := &failAfterBus{Sim: sim, after: 1 << 30}
	dev := New(fb)
	dev.sleep = (&sleepRecorder{}).sleep
	if err := dev.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	sim.QueueFlags(byte(FlagDown), byte(FlagForward))
	fb.after = fb.reads + 1

	got, err := dev.ReadGesture(context.Background())
	if got != GestureDown {
		t.Errorf("ReadGesture() = %v, want down", got)
	}
	if bus.Status(err) != 4 {
		t.Errorf("status = %d, want 4", bus.Status(err))
	}
}

func TestReadGestureCanceled(t *testing.T) {
	dev, sim, _ := newTestDevice(t)
	dev.sleep = sleepContext
	dev.SetExitDelay(time.Hour)
	sim.QueueFlags(byte(FlagForward))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := dev.ReadGesture(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ReadGesture() error = %v, want context.Canceled", err)
	}
	if got != GestureForward {
		t.Errorf("ReadGesture() = %v, want forward", got)
	}
}

func TestGestureCheckTwoPhase(t *testing.T) {
	dev, sim, rec := newTestDevice(t)
	dev.SetEntryDelay(40 * time.Millisecond)
	sim.QueueFlags(byte(FlagUp))

	check, err := dev.BeginGestureCheck()
	if err != nil {
		t.Fatalf("BeginGestureCheck() error = %v", err)
	}
	if !check.Pending() {
		t.Fatal("Pending() = false, want true")
	}
	if check.Candidate() != GestureUp {
		t.Errorf("Candidate() = %v, want up", check.Candidate())
	}
	if check.SettleDelay() != 40*time.Millisecond {
		t.Errorf("SettleDelay() = %v", check.SettleDelay())
	}
	if check.Result().Gesture != GestureNone {
		t.Errorf("Result() while pending = %v", check.Result())
	}

	sim.QueueFlags(byte(FlagBackward))
	res, err := check.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Gesture != GestureBackward || res.Hold != DefaultExitDelay {
		t.Errorf("Resolve() = %+v", res)
	}
	if check.Pending() {
		t.Error("Pending() after Resolve = true")
	}

	// 確定後のResolveは再読み出ししない
	before := countReads(sim, RegGesture0)
	if again, _ := check.Resolve(); again != res {
		t.Errorf("second Resolve() = %+v, want %+v", again, res)
	}
	if countReads(sim, RegGesture0) != before {
		t.Error("second Resolve() read the flag register")
	}
	if len(rec.calls) != 0 {
		t.Errorf("two-phase API slept: %v", rec.calls)
	}
}

func TestGestureCheckResolvedImmediately(t *testing.T) {
	dev, sim, _ := newTestDevice(t)
	sim.QueueFlags(byte(FlagClockwise))

	check, err := dev.BeginGestureCheck()
	if err != nil {
		t.Fatalf("BeginGestureCheck() error = %v", err)
	}
	if check.Pending() {
		t.Fatal("Pending() = true for clockwise")
	}
	if got := check.Result(); got.Gesture != GestureClockwise || got.Hold != 0 {
		t.Errorf("Result() = %+v", got)
	}
}

func TestScenarios(t *testing.T) {
	t.Run("right then forward", func(t *testing.T) {
		dev, sim, _ := newTestDevice(t)
		sim.QueueFlags(0x01, 0x10)
		if got, _ := dev.ReadGesture(context.Background()); got != GestureForward {
			t.Errorf("got %v, want forward", got)
		}
	})
	t.Run("up then up", func(t *testing.T) {
		dev, sim, _ := newTestDevice(t)
		sim.QueueFlags(0x04, 0x04)
		if got, _ := dev.ReadGesture(context.Background()); got != GestureUp {
			t.Errorf("got %v, want up", got)
		}
	})
	t.Run("none then wave", func(t *testing.T) {
		dev, sim, _ := newTestDevice(t)
		sim.QueueFlags(0x00)
		sim.QueueWave(0x01)
		if got, _ := dev.ReadGesture(context.Background()); got != GestureWave {
			t.Errorf("got %v, want wave", got)
		}
	})
}
