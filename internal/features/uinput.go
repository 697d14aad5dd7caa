package features

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// UIInput デバイスの定数（uinput.hから）
const (
	maxNameSize = 80         // デバイス名の最大サイズ
	absSize     = 64         // 絶対座標の配列サイズ
	devCreate   = 0x5501     // デバイス作成用のIOCTL
	devDestroy  = 0x5502     // デバイス破棄用のIOCTL
	setEvBit    = 0x40045564 // イベントビット設定用のIOCTL
	setKeyBit   = 0x40045565 // キービット設定用のIOCTL
	busVirtual  = 0x06       // 仮想バスタイプ
)

// イベントタイプの定数（input-event-codes.hより）
const (
	evSyn     = 0x00 // 同期イベント
	evKey     = 0x01 // キーイベント
	synReport = 0    // イベント報告の同期
	keyMax    = 0x2ff
)

// inputID はデバイス識別子を表す構造体
type inputID struct {
	Bustype uint16 // バスタイプ
	Vendor  uint16 // ベンダーID
	Product uint16 // 製品ID
	Version uint16 // バージョン
}

// userDev はuinputユーザーデバイスの設定を表す構造体
type userDev struct {
	Name       [maxNameSize]byte // デバイス名
	ID         inputID           // デバイス識別子
	EffectsMax uint32            // 最大エフェクト数
	Absmax     [absSize]int32    // 絶対座標の最大値
	Absmin     [absSize]int32    // 絶対座標の最小値
	Absfuzz    [absSize]int32    // 絶対座標のファジー値
	Absflat    [absSize]int32    // 絶対座標のフラット値
}

// inputEvent は入力イベントを表す構造体
type inputEvent struct {
	Time  syscall.Timeval // イベント発生時刻
	Type  uint16          // イベントタイプ
	Code  uint16          // イベントコード
	Value int32           // イベント値
}

// ioctl はファイルに対してIOCTLを発行する
func ioctl(f *os.File, cmd, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), cmd, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// デバイスファイルを作成する
func createDeviceFile(path string) (*os.File, error) {
	deviceFile, err := os.OpenFile(path, syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, errors.Join(errors.New("デバイスファイルを開くのに失敗しました"), err)
	}
	return deviceFile, nil
}

// デバイスを解放する
func releaseDevice(deviceFile *os.File) error {
	return ioctl(deviceFile, devDestroy, 0)
}

// イベント種別を登録する
func registerEventType(deviceFile *os.File, evType uintptr) error {
	if err := ioctl(deviceFile, setEvBit, evType); err != nil {
		return fmt.Errorf("イベント種別 %d の登録に失敗しました: %w", evType, err)
	}
	return nil
}

// uinputデバイスを作成する
func createDevice(deviceFile *os.File, dev userDev) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, dev); err != nil {
		return fmt.Errorf("ユーザーデバイスバッファの書き込みに失敗しました: %w", err)
	}
	if _, err := deviceFile.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("デバイス構造体をデバイスファイルに書き込むのに失敗しました: %w", err)
	}
	if err := ioctl(deviceFile, devCreate, 0); err != nil {
		return fmt.Errorf("デバイスの作成に失敗しました: %w", err)
	}
	return nil
}

// イベントを書き込む
func writeEvents(w io.Writer, events []inputEvent) error {
	for _, ev := range events {
		buf := new(bytes.Buffer)
		if err := binary.Write(buf, binary.LittleEndian, ev); err != nil {
			return fmt.Errorf("イベントをバッファに書き込むのに失敗しました: %w", err)
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("イベントの書き込みに失敗しました: %w", err)
		}
	}
	return nil
}

// 名前をuinput用の固定長配列に変換する
func toUinputName(name string) [maxNameSize]byte {
	var fixedSizeName [maxNameSize]byte
	copy(fixedSizeName[:maxNameSize-1], name)
	return fixedSizeName
}
