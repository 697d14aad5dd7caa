package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/char5742/paj7620-gestures/internal/bus"
	"github.com/char5742/paj7620-gestures/internal/config"
	"github.com/char5742/paj7620-gestures/internal/features"
	"github.com/char5742/paj7620-gestures/internal/paj7620"
)

// ErrNotRunning はサービス停止中にセンサーへアクセスした場合のエラー
var ErrNotRunning = errors.New("サービスは実行されていません")

// initTimeout はセンサー初期化の上限時間
const initTimeout = 5 * time.Second

// GestureEvent は認識したジェスチャーの記録
type GestureEvent struct {
	Gesture paj7620.Gesture `json:"gesture"`
	Time    time.Time       `json:"time"`
}

// CursorState はカーソルモードでの最新の位置
type CursorState struct {
	InView bool      `json:"in_view"`
	X      int       `json:"x"`
	Y      int       `json:"y"`
	Time   time.Time `json:"time"`
}

// ServiceStatus はサービスの状態
type ServiceStatus struct {
	Running   bool   `json:"running"`
	Mode      string `json:"mode"`
	Bank      string `json:"bank,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// GestureService はジェスチャー認識サービスを管理する構造体
type GestureService struct {
	cfg          *config.Config
	stopChan     chan struct{}
	done         chan struct{}
	running      bool
	statusMutex  sync.RWMutex
	bus          bus.Bus
	sensor       *paj7620.Device
	keyboard     features.GestureKeyboard
	filter       *features.MotionFilter
	updateConfig chan *config.Config
	mode         string // 実行中のモード

	dataMutex sync.RWMutex
	history   []GestureEvent
	cursor    CursorState
	lastErr   string

	// テスト用に差し替え可能
	openBus      func(config.BusConfig) (bus.Bus, error)
	openKeyboard func(config.OutputConfig, []int) (features.GestureKeyboard, error)
}

// NewGestureService は新しいジェスチャー認識サービスを作成する
func NewGestureService(cfg *config.Config) *GestureService {
	return &GestureService{
		cfg:          cfg,
		stopChan:     make(chan struct{}),
		running:      false,
		updateConfig: make(chan *config.Config, 1),
		openBus: func(bc config.BusConfig) (bus.Bus, error) {
			return bus.Open(bc.Driver, bc.Name, bc.Address)
		},
		openKeyboard: func(oc config.OutputConfig, keys []int) (features.GestureKeyboard, error) {
			return features.CreateGestureKeyboard(oc.UinputPath, oc.DeviceName, keys)
		},
	}
}

// Start はジェスチャー認識サービスを開始する
func (s *GestureService) Start() error {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	if s.running {
		return fmt.Errorf("サービスは既に実行中です")
	}

	// 保留中の設定更新を反映する
	select {
	case cfg := <-s.updateConfig:
		s.cfg = cfg
	default:
	}
	cfg := s.cfg

	b, err := s.openBus(cfg.Bus)
	if err != nil {
		return fmt.Errorf("I2Cバスのオープンに失敗しました: %w", err)
	}

	sensor := paj7620.New(b)
	sensor.Address = cfg.Bus.Address
	sensor.SetEntryDelay(cfg.Gesture.EntryDelay)
	sensor.SetExitDelay(cfg.Gesture.ExitDelay)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := sensor.Initialize(ctx); err != nil {
		b.Close()
		if errors.Is(err, paj7620.ErrWrongDevice) {
			return fmt.Errorf("PAJ7620が見つかりませんでした[addr=0x%02X]: %w", cfg.Bus.Address, err)
		}
		return fmt.Errorf("センサーの初期化に失敗しました: %w", err)
	}

	if cfg.Gesture.Mode == config.ModeCursor {
		if err := sensor.SetCursorMode(); err != nil {
			b.Close()
			return fmt.Errorf("カーソルモードの設定に失敗しました: %w", err)
		}
	}

	var keyboard features.GestureKeyboard
	if cfg.Output.Enabled {
		keys := make([]int, 0, len(cfg.Output.Keys))
		for _, key := range cfg.Output.Keys {
			keys = append(keys, key)
		}
		keyboard, err = s.openKeyboard(cfg.Output, keys)
		if err != nil {
			b.Close()
			return fmt.Errorf("仮想キーボードの作成に失敗しました: %w", err)
		}
	}

	log.Printf("PAJ7620を初期化しました (driver=%s, addr=0x%02X, mode=%s)", cfg.Bus.Driver, cfg.Bus.Address, cfg.Gesture.Mode)

	s.bus = b
	s.sensor = sensor
	s.keyboard = keyboard
	s.filter = features.NewMotionFilter(cfg.Cursor.FilterSmoothingFactor, cfg.Cursor.FilterWarmUpCount)
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.mode = cfg.Gesture.Mode
	s.running = true

	s.dataMutex.Lock()
	s.lastErr = ""
	s.dataMutex.Unlock()

	if sim, ok := b.(*bus.Sim); ok {
		go simulateGestures(sim, s.stopChan)
	}

	// ジェスチャー認識のメインループを開始
	go s.runGestureLoop(cfg)

	return nil
}

// Stop はジェスチャー認識サービスを停止し、ループの終了を待つ
func (s *GestureService) Stop() error {
	s.statusMutex.Lock()
	if !s.running {
		s.statusMutex.Unlock()
		return ErrNotRunning
	}
	close(s.stopChan)
	s.running = false
	done := s.done
	s.statusMutex.Unlock()

	// デバイスのクローズは runGestureLoop 内で行われる
	<-done
	return nil
}

// UpdateConfig は設定を更新する
func (s *GestureService) UpdateConfig(cfg *config.Config) {
	select {
	case s.updateConfig <- cfg:
		// 設定更新チャネルに送信成功
	default:
		// チャネルがブロックされている場合は古い設定を破棄して新しい設定を送信
		select {
		case <-s.updateConfig:
		default:
		}
		s.updateConfig <- cfg
	}
}

// IsRunning はサービスが実行中かどうかを返す
func (s *GestureService) IsRunning() bool {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	return s.running
}

// Status はサービスの状態を返す
func (s *GestureService) Status() ServiceStatus {
	s.statusMutex.RLock()
	st := ServiceStatus{Running: s.running, Mode: s.cfg.Gesture.Mode}
	var sensor *paj7620.Device
	if s.running {
		st.Mode = s.mode
		sensor = s.sensor
	}
	s.statusMutex.RUnlock()

	// デバイスのロックはstatusMutexの外で取る
	if sensor != nil {
		st.Bank = sensor.Bank().String()
	}

	s.dataMutex.RLock()
	st.LastError = s.lastErr
	s.dataMutex.RUnlock()
	return st
}

// History は記録されたジェスチャーを古い順に返す
func (s *GestureService) History() []GestureEvent {
	s.dataMutex.RLock()
	defer s.dataMutex.RUnlock()
	return append([]GestureEvent(nil), s.history...)
}

// Latest は最後に認識したジェスチャーを返す
func (s *GestureService) Latest() (GestureEvent, bool) {
	s.dataMutex.RLock()
	defer s.dataMutex.RUnlock()
	if len(s.history) == 0 {
		return GestureEvent{}, false
	}
	return s.history[len(s.history)-1], true
}

// Cursor は最新のカーソル位置を返す
func (s *GestureService) Cursor() CursorState {
	s.dataMutex.RLock()
	defer s.dataMutex.RUnlock()
	return s.cursor
}

// WaveCount はセンサーのウェーブ回数を返す
func (s *GestureService) WaveCount() (int, error) {
	sensor, err := s.runningSensor()
	if err != nil {
		return 0, err
	}
	return sensor.WaveCount()
}

// SetEnabled はセンサーの検出を有効または無効にする
func (s *GestureService) SetEnabled(enabled bool) error {
	sensor, err := s.runningSensor()
	if err != nil {
		return err
	}
	if enabled {
		return sensor.Enable()
	}
	return sensor.Disable()
}

func (s *GestureService) runningSensor() (*paj7620.Device, error) {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	if !s.running {
		return nil, ErrNotRunning
	}
	return s.sensor, nil
}

// runGestureLoop はジェスチャー認識のメインループ
func (s *GestureService) runGestureLoop(cfg *config.Config) {
	s.statusMutex.RLock()
	stopChan, done := s.stopChan, s.done
	sensor, keyboard, filter, b := s.sensor, s.keyboard, s.filter, s.bus
	s.statusMutex.RUnlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		// サービス終了時にデバイスをクローズ
		if keyboard != nil {
			keyboard.Close()
		}
		b.Close()
		log.Println("ジェスチャー認識サービスを停止しました")
		close(done)
	}()

	// 停止要求で待機中の読み出しを中断する
	go func() {
		select {
		case <-stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(cfg.Gesture.PollInterval)
	defer ticker.Stop()

	log.Println("ジェスチャー認識を開始しました...")

	for {
		select {
		case <-stopChan:
			return

		case newCfg := <-s.updateConfig:
			if newCfg.Gesture.Mode != cfg.Gesture.Mode {
				log.Printf("モードの変更はサービスの再起動後に反映されます: %s", newCfg.Gesture.Mode)
			}
			sensor.SetEntryDelay(newCfg.Gesture.EntryDelay)
			sensor.SetExitDelay(newCfg.Gesture.ExitDelay)
			filter.SetSmoothingFactor(newCfg.Cursor.FilterSmoothingFactor)
			if newCfg.Gesture.PollInterval != cfg.Gesture.PollInterval {
				ticker.Reset(newCfg.Gesture.PollInterval)
			}
			// newCfgはサーバーと共有しているので書き換えない
			running := *newCfg
			running.Gesture.Mode = cfg.Gesture.Mode
			cfg = &running
			s.statusMutex.Lock()
			s.cfg = newCfg
			s.statusMutex.Unlock()
			log.Println("設定を更新しました")

		case <-ticker.C:
			if cfg.Gesture.Mode == config.ModeCursor {
				s.pollCursor(sensor, filter)
			} else {
				s.pollGesture(ctx, cfg, sensor, keyboard)
			}
		}
	}
}

// pollGesture は1回分のジェスチャーを読み出して記録する
func (s *GestureService) pollGesture(ctx context.Context, cfg *config.Config, sensor *paj7620.Device, keyboard features.GestureKeyboard) {
	g, err := sensor.ReadGesture(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.recordError(fmt.Errorf("ジェスチャーの読み出しに失敗しました (status=%d): %w", bus.Status(err), err))
	}
	if g == paj7620.GestureNone {
		return
	}

	log.Printf("ジェスチャーを検出: %s", g)
	s.record(GestureEvent{Gesture: g, Time: time.Now()}, cfg.API.HistorySize)

	if keyboard == nil {
		return
	}
	if key, ok := cfg.KeyFor(g); ok {
		if err := keyboard.Tap(key); err != nil {
			s.recordError(fmt.Errorf("キー入力の送信に失敗しました: %w", err))
		}
	}
}

// pollCursor はカーソル位置を読み出して平滑化する
func (s *GestureService) pollCursor(sensor *paj7620.Device, filter *features.MotionFilter) {
	inView, err := sensor.IsCursorInView()
	if err != nil {
		s.recordError(fmt.Errorf("カーソル状態の読み出しに失敗しました: %w", err))
		return
	}

	state := CursorState{InView: inView, Time: time.Now()}
	if !inView {
		filter.Reset()
	} else {
		x, err := sensor.CursorX()
		if err != nil {
			s.recordError(fmt.Errorf("カーソルX座標の読み出しに失敗しました: %w", err))
			return
		}
		y, err := sensor.CursorY()
		if err != nil {
			s.recordError(fmt.Errorf("カーソルY座標の読み出しに失敗しました: %w", err))
			return
		}
		state.X, state.Y = filter.Filter(x, y)
	}

	s.dataMutex.Lock()
	if !inView {
		state.X, state.Y = s.cursor.X, s.cursor.Y
	}
	s.cursor = state
	s.dataMutex.Unlock()
}

func (s *GestureService) record(ev GestureEvent, limit int) {
	s.dataMutex.Lock()
	defer s.dataMutex.Unlock()
	s.history = append(s.history, ev)
	if limit > 0 && len(s.history) > limit {
		s.history = append([]GestureEvent(nil), s.history[len(s.history)-limit:]...)
	}
}

func (s *GestureService) recordError(err error) {
	log.Println(err)
	s.dataMutex.Lock()
	s.lastErr = err.Error()
	s.dataMutex.Unlock()
}
