package bus

import (
	"errors"
	"sync"
)

// シミュレータが解釈するPAJ7620のレジスタ
const (
	simBankSelect = 0xEF
	simFlagsLow   = 0x43
	simFlagsHigh  = 0x44
)

// StatusNack はアドレスに応答がない場合のステータス
const StatusNack = 2

// Access はシミュレータに対する1回のレジスタアクセス
type Access struct {
	Bank  byte
	Reg   byte
	Value byte
}

// Sim はメモリ上でPAJ7620を模倣するバス。
// フラグレジスタは読み出すとクリアされ、キューに積まれた値が順に返る
type Sim struct {
	mu        sync.Mutex
	address   byte
	bank      byte
	regs      [2][256]byte
	flags     [2][]byte
	writes    []Access
	reads     []Access
	readFail  map[byte]int
	writeFail map[byte]int
	closed    bool
}

// NewSim は指定アドレスで応答するシミュレータを作成する。
// 識別レジスタには正しいPart IDが入っている
func NewSim(address byte) *Sim {
	s := &Sim{
		address:   address,
		readFail:  make(map[byte]int),
		writeFail: make(map[byte]int),
	}
	s.regs[0][0x00] = 0x20
	s.regs[0][0x01] = 0x76
	return s
}

// QueueFlags はジェスチャーフラグレジスタ(0x43)から返す値を積む
func (s *Sim) QueueFlags(values ...byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[0] = append(s.flags[0], values...)
}

// QueueWave はウェーブフラグレジスタ(0x44)から返す値を積む
func (s *Sim) QueueWave(values ...byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[1] = append(s.flags[1], values...)
}

// SetRegister はレジスタの値を直接設定する
func (s *Sim) SetRegister(bank, reg, value byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[bank&1][reg] = value
}

// Register はレジスタの現在値を返す
func (s *Sim) Register(bank, reg byte) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[bank&1][reg]
}

// Bank はシミュレータ上で選択されているバンクを返す
func (s *Sim) Bank() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank
}

// FailRead は以降のregの読み出しを指定ステータスで失敗させる。0で解除
func (s *Sim) FailRead(reg byte, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.readFail, reg)
		return
	}
	s.readFail[reg] = status
}

// FailWrite は以降のregへの書き込みを指定ステータスで失敗させる。0で解除
func (s *Sim) FailWrite(reg byte, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.writeFail, reg)
		return
	}
	s.writeFail[reg] = status
}

// Writes は成功した書き込みの記録を返す
func (s *Sim) Writes() []Access {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Access(nil), s.writes...)
}

// Reads は成功した読み出しの記録を返す
func (s *Sim) Reads() []Access {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Access(nil), s.reads...)
}

// ResetLog はアクセス記録を消去する
func (s *Sim) ResetLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = nil
	s.reads = nil
}

func (s *Sim) WriteRegister(addr, reg, value byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &TransportError{Op: "write", Addr: addr, Reg: reg, Status: StatusOther, Err: errors.New("bus closed")}
	}
	if addr != s.address {
		return &TransportError{Op: "write", Addr: addr, Reg: reg, Status: StatusNack}
	}
	if status, ok := s.writeFail[reg]; ok {
		return &TransportError{Op: "write", Addr: addr, Reg: reg, Status: status}
	}

	if reg == simBankSelect {
		s.bank = value & 1
	}
	s.regs[s.bank][reg] = value
	s.writes = append(s.writes, Access{Bank: s.bank, Reg: reg, Value: value})
	return nil
}

func (s *Sim) ReadRegister(addr, reg byte, n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &TransportError{Op: "read", Addr: addr, Reg: reg, Status: StatusOther, Err: errors.New("bus closed")}
	}
	if addr != s.address {
		return nil, &TransportError{Op: "read", Addr: addr, Reg: reg, Status: StatusNack}
	}
	if status, ok := s.readFail[reg]; ok {
		return nil, &TransportError{Op: "read", Addr: addr, Reg: reg, Status: status}
	}

	buf := make([]byte, n)
	for i := range buf {
		r := reg + byte(i)
		buf[i] = s.readLocked(r)
		s.reads = append(s.reads, Access{Bank: s.bank, Reg: r, Value: buf[i]})
	}
	return buf, nil
}

// readLocked はフラグレジスタのクリア動作を含めて1バイト読み出す
func (s *Sim) readLocked(reg byte) byte {
	if s.bank == 0 && (reg == simFlagsLow || reg == simFlagsHigh) {
		i := int(reg - simFlagsLow)
		if len(s.flags[i]) > 0 {
			v := s.flags[i][0]
			s.flags[i] = s.flags[i][1:]
			return v
		}
		v := s.regs[0][reg]
		s.regs[0][reg] = 0
		return v
	}
	return s.regs[s.bank][reg]
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
