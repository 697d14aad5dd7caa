// Package paj7620 はPixArt PAJ7620U2ジェスチャーセンサーのドライバ。
//
// デバイスはレジスタ空間を2つのバンクで切り替える。ジェスチャーフラグは
// Bank0、動作有効化レジスタはBank1にある。デバイスは選択中のバンクを
// 返さないため、ホスト側でDevice.bankとして追跡する。
package paj7620

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/char5742/paj7620-gestures/internal/bus"
)

// 既定のタイミング
const (
	DefaultEntryDelay = 0
	DefaultExitDelay  = 200 * time.Millisecond

	startupDelay = 700 * time.Microsecond
)

var (
	// ErrWrongDevice は識別レジスタがPAJ7620U2の値と一致しない場合のエラー
	ErrWrongDevice = errors.New("paj7620: part id mismatch")
	// ErrNotInitialized はInitialize前に操作した場合のエラー
	ErrNotInitialized = errors.New("paj7620: device not initialized")
)

// Device はI2C接続されたPAJ7620U2を表す。
// すべてのバス操作はmuで直列化される
type Device struct {
	// Address はI2Cアドレス。Initializeより前に変更すること
	Address byte

	mu          sync.Mutex
	bus         bus.Bus
	bank        Bank
	entryDelay  time.Duration
	exitDelay   time.Duration
	table       []RegisterValue
	initialized bool
	sleep       func(ctx context.Context, d time.Duration) error
}

// New は新しいDeviceを作成する。バスは設定済みである必要がある。
//
// この関数はデバイスに触れない。使用前にInitializeを呼び出すこと
func New(b bus.Bus) *Device {
	return &Device{
		Address:    Address,
		bus:        b,
		bank:       BankUnknown,
		entryDelay: DefaultEntryDelay,
		exitDelay:  DefaultExitDelay,
		table:      GestureTable,
		sleep:      sleepContext,
	}
}

// Initialize はデバイスを接続確認し、ジェスチャー検出モードに設定する。
// 識別に失敗した場合は設定テーブルを一切書き込まずErrWrongDeviceを返す
func (d *Device) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.initialized = false

	// 起動直後の安定待ち
	if err := d.sleep(ctx, startupDelay); err != nil {
		return err
	}

	d.bank = BankUnknown
	if err := d.selectBank(Bank0); err != nil {
		return fmt.Errorf("failed to select bank0: %w", err)
	}

	ok, err := d.isDevicePresent()
	if err != nil {
		return fmt.Errorf("failed to read part id: %w", err)
	}
	if !ok {
		return ErrWrongDevice
	}

	if err := d.applyTable(d.table); err != nil {
		return fmt.Errorf("failed to apply gesture settings: %w", err)
	}

	// テーブルはBank1で終わるため、フラグレジスタのあるBank0に戻す
	if err := d.selectBank(Bank0); err != nil {
		return fmt.Errorf("failed to restore bank0: %w", err)
	}

	d.initialized = true
	return nil
}

// SetInitTable はInitializeで適用する設定テーブルを差し替える
func (d *Device) SetInitTable(table []RegisterValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table = table
}

// SetEntryDelay はフラグ再読み出し前の待ち時間を設定する
func (d *Device) SetEntryDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entryDelay = delay
}

// SetExitDelay は前後ジェスチャー確定後の待ち時間を設定する
func (d *Device) SetExitDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exitDelay = delay
}

// EntryDelay は現在のエントリー待ち時間を返す
func (d *Device) EntryDelay() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entryDelay
}

// ExitDelay は現在のイグジット待ち時間を返す
func (d *Device) ExitDelay() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exitDelay
}

// Bank はホスト側で最後に選択したバンクを返す
func (d *Device) Bank() Bank {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bank
}

// SelectBank はレジスタバンクを切り替える
func (d *Device) SelectBank(bank Bank) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectBank(bank)
}

// IsDevicePresent はBank0の識別レジスタを読み、PAJ7620U2かどうかを返す
func (d *Device) IsDevicePresent() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isDevicePresent()
}

// Enable はセンサーの検出と割り込みを有効にする
func (d *Device) Enable() error {
	return d.setOperation(operationEnable)
}

// Disable はセンサーの検出と割り込みを無効にする
func (d *Device) Disable() error {
	return d.setOperation(operationDisable)
}

// WaveCount はデバイスが数えているウェーブ回数(0-15)を返す
func (d *Device) WaveCount() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.readyBank0(); err != nil {
		return 0, err
	}
	v, err := d.readByte(RegWaveCount)
	if err != nil {
		return 0, err
	}
	return int(v & waveCountMask), nil
}

// ClearGesture は両方のフラグレジスタを読み捨てて保留中のイベントを消す
func (d *Device) ClearGesture() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.readyBank0(); err != nil {
		return err
	}
	if _, err := d.readByte(RegGesture0); err != nil {
		return err
	}
	_, err := d.readByte(RegGesture1)
	return err
}

// SetGestureMode はジェスチャー検出用の設定を適用し直す
func (d *Device) SetGestureMode() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applyMode(d.table)
}

// SetCursorMode はカーソル追跡用の設定を適用する
func (d *Device) SetCursorMode() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applyMode(CursorTable)
}

// CursorX はカーソルのX座標(12bit)を返す
func (d *Device) CursorX() (int, error) {
	return d.cursor(RegCursorXLow, RegCursorXHigh)
}

// CursorY はカーソルのY座標(12bit)を返す
func (d *Device) CursorY() (int, error) {
	return d.cursor(RegCursorYLow, RegCursorYHigh)
}

// IsCursorInView はカーソルモードで物体を検出しているかを返す
func (d *Device) IsCursorInView() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.readyBank0(); err != nil {
		return false, err
	}
	v, err := d.readByte(RegGesture1)
	if err != nil {
		return false, err
	}
	return v == cursorHasObject, nil
}

func (d *Device) cursor(lowReg, highReg byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.readyBank0(); err != nil {
		return 0, err
	}
	low, err := d.readByte(lowReg)
	if err != nil {
		return 0, err
	}
	high, err := d.readByte(highReg)
	if err != nil {
		return 0, err
	}
	return int(high&cursorHighMask)<<8 | int(low), nil
}

func (d *Device) setOperation(value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ready(); err != nil {
		return err
	}
	if err := d.selectBank(Bank1); err != nil {
		return err
	}
	err := d.writeRegister(RegOperationEnable, value)
	// 書き込みに失敗してもBank0には戻す
	if berr := d.selectBank(Bank0); berr != nil {
		return errors.Join(err, berr)
	}
	return err
}

func (d *Device) applyMode(table []RegisterValue) error {
	if err := d.ready(); err != nil {
		return err
	}
	if err := d.applyTable(table); err != nil {
		return err
	}
	return d.selectBank(Bank0)
}

// applyTable はBank0から開始してテーブルを順に書き込む
func (d *Device) applyTable(table []RegisterValue) error {
	if err := d.selectBank(Bank0); err != nil {
		return err
	}
	for _, rv := range table {
		if rv.Reg == RegBankSelect {
			if err := d.selectBank(Bank(rv.Value & 1)); err != nil {
				return err
			}
			continue
		}
		if err := d.writeRegister(rv.Reg, rv.Value); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) isDevicePresent() (bool, error) {
	if err := d.selectBank(Bank0); err != nil {
		return false, err
	}
	low, err := d.readByte(RegPartIDLow)
	if err != nil {
		return false, err
	}
	high, err := d.readByte(RegPartIDHigh)
	if err != nil {
		return false, err
	}
	return low == PartIDLow && high == PartIDHigh, nil
}

// selectBank はバンク選択レジスタに書き込む。
// 失敗した場合、デバイス側のバンクは不明として扱う
func (d *Device) selectBank(bank Bank) error {
	value := byte(bank0Value)
	switch bank {
	case Bank0:
	case Bank1:
		value = bank1Value
	default:
		return fmt.Errorf("paj7620: invalid bank %d", int(bank))
	}
	if err := d.writeRegister(RegBankSelect, value); err != nil {
		d.bank = BankUnknown
		return err
	}
	d.bank = bank
	return nil
}

// ensureBank0 は追跡中のバンクがBank0でない場合のみ選択し直す
func (d *Device) ensureBank0() error {
	if d.bank == Bank0 {
		return nil
	}
	return d.selectBank(Bank0)
}

func (d *Device) ready() error {
	if !d.initialized {
		return ErrNotInitialized
	}
	return nil
}

// readyBank0 はBank0のレジスタを読む前の確認を行う
func (d *Device) readyBank0() error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.ensureBank0()
}

func (d *Device) writeRegister(reg, value byte) error {
	return d.bus.WriteRegister(d.Address, reg, value)
}

func (d *Device) readByte(reg byte) (byte, error) {
	buf, err := d.bus.ReadRegister(d.Address, reg, 1)
	if err != nil {
		return 0, err
	}
	if len(buf) < 1 {
		return 0, fmt.Errorf("paj7620 addr=0x%02X: short read of reg 0x%02X", d.Address, reg)
	}
	return buf[0], nil
}

// sleepContext はdだけ待つ。ctxがキャンセルされた場合はその時点で戻る
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
