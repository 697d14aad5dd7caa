package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/char5742/paj7620-gestures/internal/paj7620"
)

// 動作モード
const (
	ModeGesture = "gesture"
	ModeCursor  = "cursor"
)

// Config はアプリケーション全体の設定を表す構造体
type Config struct {
	Bus     BusConfig     `toml:"bus" json:"bus"`
	Gesture GestureConfig `toml:"gesture" json:"gesture"`
	Output  OutputConfig  `toml:"output" json:"output"`
	Cursor  CursorConfig  `toml:"cursor" json:"cursor"`
	API     APIConfig     `toml:"api" json:"api"`
}

// BusConfig はI2Cバスの設定
type BusConfig struct {
	Driver  string `toml:"driver" json:"driver"` // periph, devfs, sim
	Name    string `toml:"name" json:"name"`     // periphのバス名または /dev/i2c-N
	Address uint8  `toml:"address" json:"address"`
}

// GestureConfig はジェスチャー認識の設定
type GestureConfig struct {
	Mode         string        `toml:"mode" json:"mode"`
	EntryDelay   time.Duration `toml:"entry_delay" json:"entry_delay"`
	ExitDelay    time.Duration `toml:"exit_delay" json:"exit_delay"`
	PollInterval time.Duration `toml:"poll_interval" json:"poll_interval"`
}

// OutputConfig は仮想キーボードへの出力設定
type OutputConfig struct {
	Enabled    bool           `toml:"enabled" json:"enabled"`
	UinputPath string         `toml:"uinput_path" json:"uinput_path"`
	DeviceName string         `toml:"device_name" json:"device_name"`
	Keys       map[string]int `toml:"keys" json:"keys"` // ジェスチャー名 -> キーコード
}

// CursorConfig はカーソルモードの平滑化設定
type CursorConfig struct {
	FilterSmoothingFactor float64 `toml:"filter_smoothing_factor" json:"filter_smoothing_factor"`
	FilterWarmUpCount     int     `toml:"filter_warm_up_count" json:"filter_warm_up_count"`
}

// APIConfig はAPIサーバーの設定
type APIConfig struct {
	Port        int `toml:"port" json:"port"`
	HistorySize int `toml:"history_size" json:"history_size"`
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		Bus: BusConfig{
			Driver:  "periph",
			Name:    "",
			Address: paj7620.Address,
		},
		Gesture: GestureConfig{
			Mode:         ModeGesture,
			EntryDelay:   paj7620.DefaultEntryDelay,
			ExitDelay:    paj7620.DefaultExitDelay,
			PollInterval: 100 * time.Millisecond,
		},
		Output: OutputConfig{
			Enabled:    false,
			UinputPath: "/dev/uinput",
			DeviceName: "PAJ7620 Gestures",
			Keys: map[string]int{
				"up":            103, // KEY_UP
				"down":          108, // KEY_DOWN
				"left":          105, // KEY_LEFT
				"right":         106, // KEY_RIGHT
				"forward":       28,  // KEY_ENTER
				"backward":      1,   // KEY_ESC
				"clockwise":     115, // KEY_VOLUMEUP
				"anticlockwise": 114, // KEY_VOLUMEDOWN
				"wave":          164, // KEY_PLAYPAUSE
			},
		},
		Cursor: CursorConfig{
			FilterSmoothingFactor: 0.6,
			FilterWarmUpCount:     3,
		},
		API: APIConfig{
			Port:        8080,
			HistorySize: 64,
		},
	}
}

// Validate は設定値を検証する
func (c *Config) Validate() error {
	switch c.Bus.Driver {
	case "periph", "devfs", "sim":
	default:
		return fmt.Errorf("unknown bus driver %q", c.Bus.Driver)
	}
	if c.Bus.Address == 0 || c.Bus.Address > 0x7F {
		return fmt.Errorf("invalid i2c address 0x%02X", c.Bus.Address)
	}
	switch c.Gesture.Mode {
	case ModeGesture, ModeCursor:
	default:
		return fmt.Errorf("unknown mode %q", c.Gesture.Mode)
	}
	if c.Gesture.EntryDelay < 0 || c.Gesture.ExitDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.Gesture.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	for name := range c.Output.Keys {
		if _, err := paj7620.ParseGesture(name); err != nil {
			return fmt.Errorf("output.keys: %w", err)
		}
	}
	if c.Cursor.FilterSmoothingFactor < 0 || c.Cursor.FilterSmoothingFactor > 1 {
		return fmt.Errorf("filter_smoothing_factor must be within 0-1")
	}
	return nil
}

// KeyFor はジェスチャーに割り当てられたキーコードを返す
func (c *Config) KeyFor(g paj7620.Gesture) (int, bool) {
	key, ok := c.Output.Keys[g.String()]
	return key, ok && key > 0
}

// GetDefaultConfigDir はデフォルトの設定ディレクトリを返す
func GetDefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "paj7620-gestures"), nil
}

// LoadConfig は設定ファイルから設定を読み込む
func LoadConfig(configPath string) (*Config, error) {
	// デフォルト設定を用意
	config := DefaultConfig()

	// ファイルが存在しない場合はデフォルト設定を保存して返す
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveConfig(configPath, config); err != nil {
			return config, err
		}
		return config, nil
	}

	// 設定ファイルの読み込み
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return DefaultConfig(), err
	}

	if err := config.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return config, nil
}

// SaveConfig は設定をTOMLファイルに保存する
func SaveConfig(configPath string, config *Config) error {
	// 設定ディレクトリの作成
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// ファイルを開く（なければ作成）
	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	// TOML形式でエンコードして書き込み
	encoder := toml.NewEncoder(f)
	return encoder.Encode(config)
}
