package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"swingtrader/logger"
)

// 编辑器保存通常是 rename+create，写完后稍等再读
const reloadDelay = 100 * time.Millisecond

// ConfigWatcher 监控配置文件变更并回调重载
// 非法的新配置会被丢弃，旧配置继续生效
type ConfigWatcher struct {
	path     string
	fsw      *fsnotify.Watcher
	onReload func(*Config)

	mu      sync.Mutex
	running bool
	lastMod time.Time
}

// NewConfigWatcher 创建配置监控器
func NewConfigWatcher(configPath string, onReload func(*Config)) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("解析配置路径失败: %v", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %v", err)
	}

	w := &ConfigWatcher{path: abs, fsw: fsw, onReload: onReload}
	if info, err := os.Stat(abs); err == nil {
		w.lastMod = info.ModTime()
	}
	return w, nil
}

// Start 开始监控，监控的是所在目录而不是文件本身
func (w *ConfigWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("配置监控器已经在运行")
	}
	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("添加监控目录失败: %v", err)
	}

	w.running = true
	go w.loop(ctx)
	return nil
}

// Stop 停止监控
func (w *ConfigWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	return w.fsw.Close()
}

func (w *ConfigWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name != w.path || !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			time.Sleep(reloadDelay)
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Error("❌ 配置监控出错: %v", err)
		}
	}
}

// reload 按修改时间去重后重新加载
func (w *ConfigWatcher) reload() {
	info, err := os.Stat(w.path)
	if err != nil {
		logger.Warn("⚠️ 读取配置文件状态失败: %v", err)
		return
	}

	w.mu.Lock()
	stale := !info.ModTime().After(w.lastMod)
	if !stale {
		w.lastMod = info.ModTime()
	}
	w.mu.Unlock()
	if stale {
		return
	}

	cfg, err := LoadConfig(w.path)
	if err != nil {
		logger.Error("❌ 配置重载失败，保留旧配置: %v", err)
		return
	}

	logger.Info("🔄 配置文件已重载: %s", w.path)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
