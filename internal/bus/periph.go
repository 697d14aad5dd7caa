package bus

import (
	"errors"
	"fmt"
	"sync"
	"syscall"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// periphBus はperiph.ioのI2Cバスをラップする
type periphBus struct {
	bus i2c.BusCloser
}

// OpenPeriph はperiph.ioのレジストリからI2Cバスを開く。
// nameが空の場合は最初に見つかったバスを使用する
func OpenPeriph(name string, speed physic.Frequency) (Bus, error) {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	if hostErr != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", hostErr)
	}

	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %q: %w", name, err)
	}
	if speed > 0 {
		if err := b.SetSpeed(speed); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to set i2c bus speed: %w", err)
		}
	}
	return &periphBus{bus: b}, nil
}

func (p *periphBus) WriteRegister(addr, reg, value byte) error {
	if err := p.bus.Tx(uint16(addr), []byte{reg, value}, nil); err != nil {
		return &TransportError{Op: "write", Addr: addr, Reg: reg, Status: errnoStatus(err), Err: err}
	}
	return nil
}

func (p *periphBus) ReadRegister(addr, reg byte, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := p.bus.Tx(uint16(addr), []byte{reg}, buf); err != nil {
		return nil, &TransportError{Op: "read", Addr: addr, Reg: reg, Status: errnoStatus(err), Err: err}
	}
	return buf, nil
}

func (p *periphBus) Close() error {
	return p.bus.Close()
}

func (p *periphBus) String() string {
	return p.bus.String()
}

// errnoStatus はOSのエラー番号をステータスコードとして使う
func errnoStatus(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}
	return StatusOther
}
