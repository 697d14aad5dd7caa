package bus

import (
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// i2c-dev のスレーブアドレス設定用IOCTL (linux/i2c-dev.h)
const i2cSlave = 0x0703

// devfsBus は /dev/i2c-N を直接操作するバス
type devfsBus struct {
	mu   sync.Mutex
	file *os.File
	addr int
}

// OpenDevfs はi2c-devのキャラクタデバイスを開く
func OpenDevfs(path string) (Bus, error) {
	f, err := os.OpenFile(path, syscall.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c device file: %w", err)
	}
	return &devfsBus{file: f, addr: -1}, nil
}

func (d *devfsBus) setAddress(addr byte) error {
	if d.addr == int(addr) {
		return nil
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), uintptr(i2cSlave), uintptr(addr))
	if errno != 0 {
		d.addr = -1
		return errno
	}
	d.addr = int(addr)
	return nil
}

func (d *devfsBus) WriteRegister(addr, reg, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.setAddress(addr); err != nil {
		return &TransportError{Op: "write", Addr: addr, Reg: reg, Status: errnoStatus(err), Err: err}
	}
	if _, err := d.file.Write([]byte{reg, value}); err != nil {
		return &TransportError{Op: "write", Addr: addr, Reg: reg, Status: errnoStatus(err), Err: err}
	}
	return nil
}

func (d *devfsBus) ReadRegister(addr, reg byte, n int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.setAddress(addr); err != nil {
		return nil, &TransportError{Op: "read", Addr: addr, Reg: reg, Status: errnoStatus(err), Err: err}
	}
	if _, err := d.file.Write([]byte{reg}); err != nil {
		return nil, &TransportError{Op: "read", Addr: addr, Reg: reg, Status: errnoStatus(err), Err: err}
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.file, buf); err != nil {
		return nil, &TransportError{Op: "read", Addr: addr, Reg: reg, Status: errnoStatus(err), Err: err}
	}
	return buf, nil
}

func (d *devfsBus) Close() error {
	return d.file.Close()
}
