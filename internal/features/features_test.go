package features

import (
	"bytes"
	"encoding/binary"
	"testing"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func TestMotionFilter(t *testing.T) {
	mf := NewMotionFilter(0.5, 1)

	if x, y := mf.Filter(100, 200); x != 100 || y != 200 {
		t.Errorf("warm-up Filter() = %d, %d", x, y)
	}
	if x, y := mf.Filter(200, 400); x != 150 || y != 300 {
		t.Errorf("Filter() = %d, %d, want 150, 300", x, y)
	}

	mf.Reset()
	if x, y := mf.Filter(10, 20); x != 10 || y != 20 {
		t.Errorf("Filter() after Reset = %d, %d", x, y)
	}
}

func TestMotionFilterNoSmoothing(t *testing.T) {
	mf := NewMotionFilter(0, 0)
	for _, v := range []int{5, 900, 4095} {
		if x, y := mf.Filter(v, v); x != v || y != v {
			t.Errorf("Filter(%d) = %d, %d", v, x, y)
		}
	}
}

func TestVirtualKeyboardTap(t *testing.T) {
	buf := &bufferCloser{}
	released := false
	kb := newVirtualKeyboard(buf, map[int]bool{103: true}, func() error {
		released = true
		return nil
	})

	if err := kb.Tap(103); err != nil {
		t.Fatalf("Tap() error = %v", err)
	}

	size := binary.Size(inputEvent{})
	if buf.Len() != 4*size {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), 4*size)
	}

	var events [4]inputEvent
	if err := binary.Read(&buf.Buffer, binary.LittleEndian, &events); err != nil {
		t.Fatal(err)
	}
	want := [4]struct {
		typ, code uint16
		value     int32
	}{
		{evKey, 103, 1},
		{evSyn, synReport, 0},
		{evKey, 103, 0},
		{evSyn, synReport, 0},
	}
	for i, ev := range events {
		if ev.Type != want[i].typ || ev.Code != want[i].code || ev.Value != want[i].value {
			t.Errorf("event %d = %+v, want %+v", i, ev, want[i])
		}
	}

	if err := kb.Tap(30); err == nil {
		t.Error("Tap() of unregistered key error = nil")
	}

	if err := kb.Close(); err != nil {
		t.Fatal(err)
	}
	if !released || !buf.closed {
		t.Errorf("Close() released=%v closed=%v", released, buf.closed)
	}
}

func TestUniqueKeys(t *testing.T) {
	got := uniqueKeys([]int{106, 0, 103, 106, -1, 1000, 28})
	want := []int{28, 103, 106}
	if len(got) != len(want) {
		t.Fatalf("uniqueKeys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("uniqueKeys() = %v, want %v", got, want)
		}
	}
}

func TestToUinputName(t *testing.T) {
	long := bytes.Repeat([]byte("a"), 120)
	name := toUinputName(string(long))
	if name[maxNameSize-1] != 0 {
		t.Error("name is not NUL terminated")
	}
	if name[0] != 'a' {
		t.Error("name was not copied")
	}
}
