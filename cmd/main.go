package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/browser"

	"github.com/char5742/paj7620-gestures/internal/api"
	"github.com/char5742/paj7620-gestures/internal/config"
)

func main() {
	// コマンドライン引数の解析
	useApi := flag.Bool("api", false, "APIサーバーモードで起動します")
	configPath := flag.String("config", "", "設定ファイルのパス (指定しない場合はデフォルトパスを使用)")
	port := flag.Int("port", 0, "APIサーバーのポート番号 (指定しない場合は設定ファイルの値を使用)")
	useSim := flag.Bool("sim", false, "センサーの代わりにシミュレータを使用します")
	openBrowser := flag.Bool("open", false, "APIサーバー起動後にブラウザで状態を表示します")
	flag.Parse()

	// デフォルト設定ファイルパスの設定
	defaultConfigPath := ""
	configDir, err := config.GetDefaultConfigDir()
	if err == nil {
		defaultConfigPath = filepath.Join(configDir, "config.toml")
	}

	// 設定ファイルパスの決定
	cfgPath := defaultConfigPath
	if *configPath != "" {
		cfgPath = *configPath
	}

	// 設定ファイルの読み込み
	var cfg *config.Config
	if cfgPath != "" {
		cfg, err = config.LoadConfig(cfgPath)
		if err != nil {
			fmt.Printf("設定ファイルの読み込みに失敗しました: %v\nデフォルト設定を使用します\n", err)
			cfg = config.DefaultConfig()
		} else {
			fmt.Printf("設定ファイルを読み込みました: %s\n", cfgPath)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	if *useSim {
		cfg.Bus.Driver = "sim"
	}
	if *port == 0 {
		*port = cfg.API.Port
	}

	service := api.NewGestureService(cfg)
	server := api.NewServer(cfg, service, *port)
	server.SetConfigPath(cfgPath)

	// 設定ファイルの変更を監視する
	if cfgPath != "" {
		watcher, err := config.Watch(cfgPath, func(newCfg *config.Config) {
			if *useSim {
				newCfg.Bus.Driver = "sim"
			}
			server.UpdateConfig(newCfg)
		})
		if err != nil {
			log.Printf("設定ファイルの監視を開始できませんでした: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	// シグナルハンドラの設定
	handleSignals(service)

	// APIモードかCLIモードかを判断
	if *useApi {
		// APIモードで実行
		fmt.Printf("APIサーバーモードで起動します (ポート: %d)...\n", *port)
		runApiServer(server, *port, *openBrowser)
	} else {
		// CLIモードで実行
		fmt.Println("CLIモードで起動します...")
		runCLI(service)
	}
}

// APIサーバーモードでの実行
func runApiServer(server *api.Server, port int, open bool) {
	if open {
		go func() {
			url := fmt.Sprintf("http://localhost:%d/api/service/status", port)
			if err := browser.OpenURL(url); err != nil {
				log.Printf("ブラウザを開けませんでした: %v", err)
			}
		}()
	}

	// サーバー起動
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("APIサーバーの起動に失敗しました: %v", err)
	}
}

// CLIモードでの実行
func runCLI(service *api.GestureService) {
	// サービス開始
	if err := service.Start(); err != nil {
		fmt.Printf("ジェスチャー認識サービスの起動に失敗しました: %v\n", err)
		os.Exit(1)
	}

	// シグナルが来るまで待機（終了処理はhandleSignals内で行われる）
	select {}
}

func handleSignals(service *api.GestureService) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("シャットダウンします...")
		if service.IsRunning() {
			if err := service.Stop(); err != nil {
				log.Printf("サービスの停止に失敗しました: %v", err)
			}
		}
		os.Exit(0)
	}()
}
