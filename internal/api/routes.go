package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/char5742/paj7620-gestures/internal/bus"
	"github.com/char5742/paj7620-gestures/internal/config"
)

// ルートの設定
func (s *Server) setupRoutes(router *http.ServeMux) {
	// 設定関連のエンドポイント
	router.HandleFunc("GET /api/config", s.handleGetConfig)
	router.HandleFunc("PUT /api/config", s.handleUpdateConfig)
	router.HandleFunc("POST /api/config/save", s.handleSaveConfig)

	// バス関連のエンドポイント
	router.HandleFunc("GET /api/buses", s.handleGetBuses)

	// サービス関連のエンドポイント
	router.HandleFunc("POST /api/service/start", s.handleStartService)
	router.HandleFunc("POST /api/service/stop", s.handleStopService)
	router.HandleFunc("GET /api/service/status", s.handleServiceStatus)

	// ジェスチャー関連のエンドポイント
	router.HandleFunc("GET /api/gestures", s.handleGetGestures)
	router.HandleFunc("GET /api/gestures/latest", s.handleLatestGesture)
	router.HandleFunc("GET /api/cursor", s.handleGetCursor)

	// センサー操作のエンドポイント
	router.HandleFunc("GET /api/sensor/wave-count", s.handleWaveCount)
	router.HandleFunc("POST /api/sensor/enable", s.handleEnableSensor)
	router.HandleFunc("POST /api/sensor/disable", s.handleDisableSensor)

	// ヘルスチェック用エンドポイント
	router.HandleFunc("GET /api/health", s.handleHealthCheck)
}

// 設定取得ハンドラ
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.GetConfig())
}

// 設定更新ハンドラ
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	newConfig := config.DefaultConfig()

	if err := json.NewDecoder(r.Body).Decode(newConfig); err != nil {
		writeError(w, http.StatusBadRequest, "設定の解析に失敗しました")
		return
	}
	if err := newConfig.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "設定が不正です: "+err.Error())
		return
	}

	s.UpdateConfig(newConfig)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// 設定保存ハンドラ
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var saveRequest struct {
		Path string `json:"path"`
	}

	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&saveRequest); err != nil {
			writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました")
			return
		}
	}

	configPath := saveRequest.Path
	if configPath == "" {
		s.mutex.RLock()
		configPath = s.configPath
		s.mutex.RUnlock()
	}
	if configPath == "" {
		// デフォルトパスを使用
		userConfigDir, err := config.GetDefaultConfigDir()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "デフォルト設定ディレクトリの取得に失敗しました")
			return
		}
		configPath = filepath.Join(userConfigDir, "config.toml")
	}

	if err := config.SaveConfig(configPath, s.GetConfig()); err != nil {
		writeError(w, http.StatusInternalServerError, "設定の保存に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"path":   configPath,
	})
}

// バス一覧取得ハンドラ
func (s *Server) handleGetBuses(w http.ResponseWriter, r *http.Request) {
	buses, err := bus.ScanBuses()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "I2Cバス一覧の取得に失敗しました: "+err.Error())
		return
	}
	if buses == nil {
		buses = []bus.Info{}
	}

	writeJSON(w, http.StatusOK, buses)
}

// サービス起動ハンドラ
func (s *Server) handleStartService(w http.ResponseWriter, r *http.Request) {
	if s.service.IsRunning() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already_running"})
		return
	}

	if err := s.service.Start(); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("サービスの起動に失敗しました: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// サービス停止ハンドラ
func (s *Server) handleStopService(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Stop(); err != nil {
		if errors.Is(err, ErrNotRunning) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "not_running"})
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("サービスの停止に失敗しました: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// サービス状態取得ハンドラ
func (s *Server) handleServiceStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

// ジェスチャー履歴取得ハンドラ
func (s *Server) handleGetGestures(w http.ResponseWriter, r *http.Request) {
	history := s.service.History()
	if history == nil {
		history = []GestureEvent{}
	}
	writeJSON(w, http.StatusOK, history)
}

// 最新ジェスチャー取得ハンドラ
func (s *Server) handleLatestGesture(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.service.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "ジェスチャーはまだ検出されていません")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// カーソル位置取得ハンドラ
func (s *Server) handleGetCursor(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Cursor())
}

// ウェーブ回数取得ハンドラ
func (s *Server) handleWaveCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.WaveCount()
	if err != nil {
		writeSensorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"wave_count": count})
}

// センサー有効化ハンドラ
func (s *Server) handleEnableSensor(w http.ResponseWriter, r *http.Request) {
	if err := s.service.SetEnabled(true); err != nil {
		writeSensorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

// センサー無効化ハンドラ
func (s *Server) handleDisableSensor(w http.ResponseWriter, r *http.Request) {
	if err := s.service.SetEnabled(false); err != nil {
		writeSensorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

// ヘルスチェックハンドラ
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeSensorError はセンサー操作のエラーをステータスコードに変換する
func writeSensorError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotRunning) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeError(w, http.StatusBadGateway, fmt.Sprintf("センサーとの通信に失敗しました (status=%d): %v", bus.Status(err), err))
}
