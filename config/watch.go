package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc 配置变化回调.
//
// 重新加载成功时 err 为 nil；读取或验证失败时 config 为 nil，Current 保持上一份有效配置.
type ChangeFunc[T any] func(config *T, err error)

// Watcher 配置文件监听器.
//
// 监听配置文件所在目录，兼容编辑器"写临时文件再重命名"的保存方式，
// 以及 Kubernetes ConfigMap 通过替换 ..data 符号链接完成的原子更新.
// 连续的文件事件在 Options.WatchDebounce 内合并为一次重新加载.
type Watcher[T any] struct {
	path     string
	opts     []Option
	debounce time.Duration
	onChange ChangeFunc[T]

	mu      sync.RWMutex
	current *T

	// realPath 配置文件解析符号链接后的路径，仅由 loop 读写
	realPath string

	fsw       *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// Watch 加载配置并监听文件变化.
//
// 首次加载失败直接返回错误；之后每次文件写入、重建或符号链接目标变化都会重新加载并调用 onChange.
// 使用完毕后需调用 Close 释放监听资源.
//
// 示例:
//
//	w, err := config.Watch[rocketmq.Config]("rocketmq.yaml", func(cfg *rocketmq.Config, err error) {
//	    if err == nil {
//	        consumer.SetConfig(cfg)
//	        consumer.Load()
//	    }
//	})
func Watch[T any](configPath string, onChange ChangeFunc[T], opts ...Option) (*Watcher[T], error) {
	path, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWatch, err)
	}
	path = filepath.Clean(path)

	initial, err := Load[T](path, opts...)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWatch, err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("%w: %w", ErrWatch, err)
	}

	realPath, _ := filepath.EvalSymlinks(path)
	w := &Watcher[T]{
		path:     path,
		opts:     opts,
		debounce: buildOptions(opts).WatchDebounce,
		onChange: onChange,
		current:  initial,
		realPath: realPath,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Current 返回最近一次加载成功的配置.
func (w *Watcher[T]) Current() *T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Path 返回被监听的配置文件绝对路径.
func (w *Watcher[T]) Path() string {
	return w.path
}

// Close 停止监听，重复调用是安全的.
func (w *Watcher[T]) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
		<-w.done
	})
	return err
}

func (w *Watcher[T]) loop() {
	defer close(w.done)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.changed(event) {
				continue
			}
			if w.debounce <= 0 {
				w.reload()
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.notify(nil, fmt.Errorf("%w: %w", ErrWatch, err))
		}
	}
}

// changed 判断事件是否影响配置文件.
//
// 直接写入或重建配置文件，以及符号链接指向的真实文件发生变化，都视为变更.
func (w *Watcher[T]) changed(event fsnotify.Event) bool {
	realPath, _ := filepath.EvalSymlinks(w.path)

	if filepath.Clean(event.Name) == w.path && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		w.realPath = realPath
		return true
	}
	if realPath != "" && realPath != w.realPath {
		w.realPath = realPath
		return true
	}
	return false
}

func (w *Watcher[T]) reload() {
	config, err := Load[T](w.path, w.opts...)
	if err != nil {
		w.notify(nil, err)
		return
	}

	w.mu.Lock()
	w.current = config
	w.mu.Unlock()
	w.notify(config, nil)
}

func (w *Watcher[T]) notify(config *T, err error) {
	if w.onChange != nil {
		w.onChange(config, err)
	}
}
