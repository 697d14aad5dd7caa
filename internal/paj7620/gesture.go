package paj7620

import (
	"fmt"
	"strings"
)

// Flag はジェスチャーフラグレジスタの生の値
type Flag byte

// RegGesture0 のフラグ。いずれも単一ビット
const (
	FlagRight         Flag = 0x01
	FlagLeft          Flag = 0x02
	FlagUp            Flag = 0x04
	FlagDown          Flag = 0x08
	FlagForward       Flag = 0x10
	FlagBackward      Flag = 0x20
	FlagClockwise     Flag = 0x40
	FlagAnticlockwise Flag = 0x80
)

// FlagWave は RegGesture1 のウェーブフラグ
const FlagWave Flag = 0x01

// Gesture は1回のデコードで得られるジェスチャー
type Gesture int

const (
	GestureNone Gesture = iota
	GestureUp
	GestureDown
	GestureLeft
	GestureRight
	GestureForward
	GestureBackward
	GestureClockwise
	GestureAnticlockwise
	GestureWave
)

var gestureNames = [...]string{
	GestureNone:          "none",
	GestureUp:            "up",
	GestureDown:          "down",
	GestureLeft:          "left",
	GestureRight:         "right",
	GestureForward:       "forward",
	GestureBackward:      "backward",
	GestureClockwise:     "clockwise",
	GestureAnticlockwise: "anticlockwise",
	GestureWave:          "wave",
}

func (g Gesture) String() string {
	if g < 0 || int(g) >= len(gestureNames) {
		return fmt.Sprintf("Gesture(%d)", int(g))
	}
	return gestureNames[g]
}

// ParseGesture は名前からジェスチャーを返す。大文字小文字は区別しない
func ParseGesture(name string) (Gesture, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for g, n := range gestureNames {
		if n == name {
			return Gesture(g), nil
		}
	}
	return GestureNone, fmt.Errorf("unknown gesture %q", name)
}

func (g Gesture) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *Gesture) UnmarshalText(text []byte) error {
	parsed, err := ParseGesture(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Gestures は検出可能なジェスチャーの一覧
func Gestures() []Gesture {
	return []Gesture{
		GestureUp, GestureDown, GestureLeft, GestureRight,
		GestureForward, GestureBackward,
		GestureClockwise, GestureAnticlockwise, GestureWave,
	}
}

// lateralGesture は前後判定が必要な横方向フラグを対応するジェスチャーに変換する
func lateralGesture(f Flag) (Gesture, bool) {
	switch f {
	case FlagRight:
		return GestureRight, true
	case FlagLeft:
		return GestureLeft, true
	case FlagUp:
		return GestureUp, true
	case FlagDown:
		return GestureDown, true
	}
	return GestureNone, false
}

// depthGesture は前後方向フラグを対応するジェスチャーに変換する
func depthGesture(f Flag) (Gesture, bool) {
	switch f {
	case FlagForward:
		return GestureForward, true
	case FlagBackward:
		return GestureBackward, true
	}
	return GestureNone, false
}

// Bank はレジスタページ
type Bank int

const (
	BankUnknown Bank = iota - 1
	Bank0
	Bank1
)

func (b Bank) String() string {
	switch b {
	case Bank0:
		return "bank0"
	case Bank1:
		return "bank1"
	}
	return "unknown"
}
