package features

import (
	"fmt"
	"io"
	"sort"
)

// GestureKeyboard は認識したジェスチャーをキー入力として送る仮想キーボード
type GestureKeyboard interface {
	// Tap はキーを押して離す
	Tap(key int) error
	io.Closer
}

type virtualKeyboard struct {
	file io.WriteCloser
	keys map[int]bool
	// release は作成したuinputデバイスを破棄する
	release func() error
}

// CreateGestureKeyboard はkeysを送出できる仮想キーボードをuinputに作成する
func CreateGestureKeyboard(path string, name string, keys []int) (GestureKeyboard, error) {
	deviceFile, err := createDeviceFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not create virtual keyboard: %w", err)
	}

	// キー入力イベント(EV_KEY)を登録する
	if err := registerEventType(deviceFile, evKey); err != nil {
		_ = deviceFile.Close()
		return nil, err
	}

	registered := make(map[int]bool, len(keys))
	for _, key := range uniqueKeys(keys) {
		if err := ioctl(deviceFile, setKeyBit, uintptr(key)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("キーコードの登録に失敗しました %v: %w", key, err)
		}
		registered[key] = true
	}

	dev := userDev{
		Name: toUinputName(name),
		ID: inputID{
			Bustype: busVirtual,
			Vendor:  0x4711,
			Product: 0x7620,
			Version: 1,
		},
	}
	if err := createDevice(deviceFile, dev); err != nil {
		_ = deviceFile.Close()
		return nil, err
	}

	return newVirtualKeyboard(deviceFile, registered, func() error {
		return releaseDevice(deviceFile)
	}), nil
}

func newVirtualKeyboard(file io.WriteCloser, keys map[int]bool, release func() error) *virtualKeyboard {
	return &virtualKeyboard{file: file, keys: keys, release: release}
}

// Tap はキーの押下と解放を同期イベント付きで書き込む
func (k *virtualKeyboard) Tap(key int) error {
	if !k.keys[key] {
		return fmt.Errorf("key %d is not registered", key)
	}
	events := []inputEvent{
		{Type: evKey, Code: uint16(key), Value: 1},
		{Type: evSyn, Code: synReport, Value: 0},
		{Type: evKey, Code: uint16(key), Value: 0},
		{Type: evSyn, Code: synReport, Value: 0},
	}
	return writeEvents(k.file, events)
}

func (k *virtualKeyboard) Close() error {
	if k.release != nil {
		_ = k.release()
	}
	return k.file.Close()
}

// uniqueKeys は有効なキーコードを重複なく昇順で返す
func uniqueKeys(keys []int) []int {
	seen := make(map[int]bool, len(keys))
	var out []int
	for _, key := range keys {
		if key <= 0 || key >= keyMax || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	sort.Ints(out)
	return out
}
