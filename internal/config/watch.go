package config

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay はエディタの連続書き込みをまとめるための待ち時間
const reloadDelay = 200 * time.Millisecond

// Watcher は設定ファイルの変更を監視する
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(*Config)
	stopChan chan struct{}
	done     chan struct{}
	once     sync.Once
}

// Watch は設定ファイルを監視し、変更されるたびに読み込み直してonChangeを呼ぶ。
// 読み込みに失敗した場合はonChangeを呼ばない
func Watch(configPath string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// リネームで置き換えるエディタに対応するためディレクトリを監視する
	path := filepath.Clean(configPath)
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		path:     path,
		onChange: onChange,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.watchEvents()
	return w, nil
}

// Close は監視を停止する
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stopChan)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

// watchEvents はfsnotifyのイベントを監視する
func (w *Watcher) watchEvents() {
	defer close(w.done)

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			cfg, err := LoadConfig(w.path)
			if err != nil {
				log.Printf("設定ファイルの再読み込みに失敗しました: %v", err)
				continue
			}
			log.Printf("設定ファイルを再読み込みしました: %s", w.path)
			w.onChange(cfg)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("設定ファイルの監視でエラーが発生しました: %v", err)
		}
	}
}
