package bus

import (
	"errors"
	"fmt"
)

// Bus はI2Cバス上のレジスタ読み書きを表すインターフェース
type Bus interface {
	// WriteRegister はデバイスのレジスタに1バイト書き込む
	WriteRegister(addr, reg, value byte) error
	// ReadRegister はレジスタから連続してnバイト読み出す
	ReadRegister(addr, reg byte, n int) ([]byte, error)
	Close() error
}

// StatusOther はステータスコードを持たないエラーに割り当てる値
const StatusOther = 4

// TransportError はバス転送の失敗を表す
type TransportError struct {
	Op     string
	Addr   byte
	Reg    byte
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("i2c %s addr=0x%02X reg=0x%02X: status %d: %v", e.Op, e.Addr, e.Reg, e.Status, e.Err)
	}
	return fmt.Sprintf("i2c %s addr=0x%02X reg=0x%02X: status %d", e.Op, e.Addr, e.Reg, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Status はエラーからバスのステータスコードを取り出す。nilなら0
func Status(err error) int {
	if err == nil {
		return 0
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	return StatusOther
}
