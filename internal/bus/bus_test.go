package bus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"transport", &TransportError{Op: "read", Status: 3}, 3},
		{"wrapped", errorsJoin(&TransportError{Op: "write", Status: 5}), 5},
		{"other", errors.New("boom"), StatusOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func errorsJoin(err error) error {
	return errors.Join(errors.New("context"), err)
}

func TestSimFlagsClearOnRead(t *testing.T) {
	s := NewSim(0x73)
	s.SetRegister(0, simFlagsLow, 0x04)

	got, err := s.ReadRegister(0x73, simFlagsLow, 1)
	if err != nil {
		t.Fatalf("ReadRegister() error = %v", err)
	}
	if got[0] != 0x04 {
		t.Errorf("first read = 0x%02X, want 0x04", got[0])
	}

	got, err = s.ReadRegister(0x73, simFlagsLow, 1)
	if err != nil {
		t.Fatalf("ReadRegister() error = %v", err)
	}
	if got[0] != 0x00 {
		t.Errorf("second read = 0x%02X, want 0x00", got[0])
	}
}

func TestSimQueueOrder(t *testing.T) {
	s := NewSim(0x73)
	s.QueueFlags(0x01, 0x10)

	for _, want := range []byte{0x01, 0x10, 0x00} {
		got, err := s.ReadRegister(0x73, simFlagsLow, 1)
		if err != nil {
			t.Fatalf("ReadRegister() error = %v", err)
		}
		if got[0] != want {
			t.Errorf("read = 0x%02X, want 0x%02X", got[0], want)
		}
	}
}

func TestSimBankSelect(t *testing.T) {
	s := NewSim(0x73)
	if err := s.WriteRegister(0x73, simBankSelect, 0x01); err != nil {
		t.Fatalf("WriteRegister() error = %v", err)
	}
	if err := s.WriteRegister(0x73, 0x72, 0x01); err != nil {
		t.Fatalf("WriteRegister() error = %v", err)
	}
	if s.Bank() != 1 {
		t.Errorf("Bank() = %d, want 1", s.Bank())
	}
	if s.Register(1, 0x72) != 0x01 {
		t.Errorf("bank1 0x72 = 0x%02X, want 0x01", s.Register(1, 0x72))
	}
	if s.Register(0, 0x72) != 0x00 {
		t.Errorf("bank0 0x72 = 0x%02X, want 0x00", s.Register(0, 0x72))
	}
}

func TestSimFailures(t *testing.T) {
	s := NewSim(0x73)

	if _, err := s.ReadRegister(0x10, 0x00, 1); Status(err) != StatusNack {
		t.Errorf("wrong address status = %d, want %d", Status(err), StatusNack)
	}

	s.FailRead(simFlagsLow, 3)
	if _, err := s.ReadRegister(0x73, simFlagsLow, 1); Status(err) != 3 {
		t.Errorf("read status = %d, want 3", Status(err))
	}
	s.FailRead(simFlagsLow, 0)
	if _, err := s.ReadRegister(0x73, simFlagsLow, 1); err != nil {
		t.Errorf("read after clear error = %v", err)
	}

	s.FailWrite(simBankSelect, 4)
	if err := s.WriteRegister(0x73, simBankSelect, 1); Status(err) != 4 {
		t.Errorf("write status = %d, want 4", Status(err))
	}
	if s.Bank() != 0 {
		t.Errorf("failed write changed bank to %d", s.Bank())
	}
}

func TestScanBuses(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"i2c-1", "i2c-0", "ttyS0"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0600); err != nil {
			t.Fatal(err)
		}
	}

	buses, err := scanBuses(dir)
	if err != nil {
		t.Fatalf("scanBuses() error = %v", err)
	}
	if len(buses) != 2 {
		t.Fatalf("scanBuses() found %d buses, want 2", len(buses))
	}
	if buses[0].Name != "i2c-0" || buses[1].Name != "i2c-1" {
		t.Errorf("scanBuses() = %+v", buses)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("spi", "", 0x73); err == nil {
		t.Error("Open() with unknown driver returned nil error")
	}
}
