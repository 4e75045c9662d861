// Package app 提供应用程序生命周期管理.
//
// Application 按注册顺序初始化组件，等待退出信号后按相反顺序关闭，
// 并支持在配置文件变化时重新加载 RocketMQ 客户端.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/Tsukikage7/rocketmq-kit/config"
	"github.com/Tsukikage7/rocketmq-kit/logger"
	"github.com/Tsukikage7/rocketmq-kit/rocketmq"
)

// 预定义错误.
var (
	// ErrRunning 应用正在运行.
	ErrRunning = errors.New("app: 应用正在运行")
	// ErrInit 组件初始化失败.
	ErrInit = errors.New("app: 组件初始化失败")
	// ErrReload 组件重新加载失败.
	ErrReload = errors.New("app: 组件重新加载失败")
)

// Component 由应用管理生命周期的组件，*rocketmq.Producer 与 *rocketmq.Consumer 均实现该接口.
type Component interface {
	Init() error
	Shutdown() error
	Name() string
}

// Loader 支持重新加载的组件.
type Loader interface {
	Load() error
}

// Configurable 支持替换 RocketMQ 配置的组件.
type Configurable interface {
	SetConfig(cfg *rocketmq.Config) error
}

// Application 应用程序，管理多个组件的生命周期.
type Application struct {
	opts       *options
	components []Component
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
	running    bool
	watcher    *config.Watcher[rocketmq.Config]
}

// New 创建应用程序.
func New(opts ...Option) *Application {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		panic("app: logger is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Application{
		opts:   o,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Use 注册组件，初始化按注册顺序进行，关闭按相反顺序进行.
func (a *Application) Use(components ...Component) *Application {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.components = append(a.components, components...)
	return a
}

// Run 运行应用程序，阻塞直到收到退出信号或调用 Stop.
func (a *Application) Run() error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrRunning
	}
	a.running = true
	a.mu.Unlock()

	if err := a.opts.hooks.runBeforeStart(a.ctx); err != nil {
		a.setRunning(false)
		return err
	}

	a.opts.logger.With(
		logger.String("name", a.opts.name),
		logger.String("version", a.opts.version),
	).Info("[App] starting")

	if err := a.start(); err != nil {
		a.setRunning(false)
		return err
	}

	if err := a.opts.hooks.runAfterStart(a.ctx); err != nil {
		a.opts.logger.With(logger.Err(err)).Error("[App] after start hook failed")
	}

	if err := a.watch(); err != nil {
		a.opts.logger.With(logger.Err(err)).Error("[App] config watch failed")
	}

	return a.waitForShutdown()
}

// Stop 主动停止应用程序.
func (a *Application) Stop() {
	a.cancel()
}

// Context 获取应用上下文.
func (a *Application) Context() context.Context {
	return a.ctx
}

// Name 获取应用名称.
func (a *Application) Name() string {
	return a.opts.name
}

// Version 获取应用版本.
func (a *Application) Version() string {
	return a.opts.version
}

// Reload 重新加载所有支持 Load 的组件.
//
// 单个组件失败不影响其余组件，所有错误合并后返回.
func (a *Application) Reload(ctx context.Context) error {
	return a.reload(ctx, nil)
}

func (a *Application) reload(ctx context.Context, cfg *rocketmq.Config) error {
	if err := a.opts.hooks.runBeforeReload(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	components := append([]Component(nil), a.components...)
	a.mu.Unlock()

	var errs []error
	for _, c := range components {
		loader, ok := c.(Loader)
		if !ok {
			continue
		}
		log := a.opts.logger.With(logger.String("component", c.Name()))

		if cfg != nil {
			if configurable, ok := c.(Configurable); ok {
				if err := configurable.SetConfig(cfg); err != nil {
					log.With(logger.Err(err)).Error("[App] apply config failed")
					errs = append(errs, err)
					continue
				}
			}
		}
		if err := loader.Load(); err != nil {
			log.With(logger.Err(err)).Error("[App] reload failed")
			errs = append(errs, err)
			continue
		}
		log.Info("[App] component reloaded")
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrReload}, errs...)...)
	}
	return a.opts.hooks.runAfterReload(ctx)
}

// start 按顺序初始化组件，失败时关闭已初始化的组件.
func (a *Application) start() error {
	if len(a.components) == 0 {
		a.opts.logger.Warn("[App] no components registered")
		return nil
	}

	for i, c := range a.components {
		a.opts.logger.With(logger.String("component", c.Name())).Info("[App] starting component")
		if err := c.Init(); err != nil {
			a.opts.logger.With(
				logger.String("component", c.Name()),
				logger.Err(err),
			).Error("[App] component init failed")
			a.stopComponents(a.components[:i])
			return errors.Join(ErrInit, err)
		}
	}
	return nil
}

func (a *Application) watch() error {
	if a.opts.reloadPath == "" {
		return nil
	}

	w, err := config.Watch[rocketmq.Config](a.opts.reloadPath, func(cfg *rocketmq.Config, err error) {
		if err != nil {
			a.opts.logger.With(logger.Err(err)).Error("[App] config reload rejected")
			return
		}
		a.opts.logger.With(logger.String("path", a.opts.reloadPath)).Info("[App] config changed")
		if err := a.reload(a.ctx, cfg); err != nil {
			a.opts.logger.With(logger.Err(err)).Error("[App] reload after config change failed")
		}
	}, rocketmq.ConfigOptions(a.opts.reloadOptions...)...)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.watcher = w
	a.mu.Unlock()
	return nil
}

func (a *Application) waitForShutdown() error {
	signals := a.opts.signals
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.opts.logger.With(logger.String("signal", sig.String())).Info("[App] received signal")
	case <-a.ctx.Done():
		a.opts.logger.Info("[App] context cancelled")
	}

	return a.shutdown()
}

func (a *Application) shutdown() error {
	a.opts.logger.With(
		logger.Duration("timeout", a.opts.gracefulTimeout),
	).Info("[App] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.opts.gracefulTimeout)
	defer cancel()

	a.mu.Lock()
	w := a.watcher
	a.watcher = nil
	a.mu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			a.opts.logger.With(logger.Err(err)).Warn("[App] close config watcher failed")
		}
	}

	if err := a.opts.hooks.runBeforeStop(shutdownCtx); err != nil {
		a.opts.logger.With(logger.Err(err)).Error("[App] before stop hook failed")
	}

	done := make(chan struct{})
	go func() {
		a.stopComponents(a.components)
		close(done)
	}()

	select {
	case <-done:
		a.opts.logger.Info("[App] all components stopped")
	case <-shutdownCtx.Done():
		a.opts.logger.Warn("[App] shutdown timeout")
	}

	a.runCleanups(shutdownCtx)

	if err := a.opts.hooks.runAfterStop(context.Background()); err != nil {
		a.opts.logger.With(logger.Err(err)).Error("[App] after stop hook failed")
	}

	a.setRunning(false)
	a.opts.logger.Info("[App] stopped")
	return nil
}

// stopComponents 按相反顺序关闭组件.
func (a *Application) stopComponents(components []Component) {
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		a.opts.logger.With(logger.String("component", c.Name())).Info("[App] stopping component")
		if err := c.Shutdown(); err != nil {
			a.opts.logger.With(
				logger.String("component", c.Name()),
				logger.Err(err),
			).Error("[App] component stop failed")
		}
	}
}

func (a *Application) setRunning(running bool) {
	a.mu.Lock()
	a.running = running
	a.mu.Unlock()
}

func (a *Application) runCleanups(ctx context.Context) {
	if len(a.opts.cleanups) == 0 {
		return
	}

	cleanups := make([]Cleanup, len(a.opts.cleanups))
	copy(cleanups, a.opts.cleanups)
	sort.SliceStable(cleanups, func(i, j int) bool {
		return cleanups[i].Priority < cleanups[j].Priority
	})

	a.opts.logger.With(logger.Int("count", len(cleanups))).Info("[App] running cleanups")

	for _, c := range cleanups {
		if err := c.Fn(ctx); err != nil {
			a.opts.logger.With(
				logger.String("cleanup", c.Name),
				logger.Err(err),
			).Error("[App] cleanup failed")
		} else {
			a.opts.logger.With(logger.String("cleanup", c.Name)).Info("[App] cleanup done")
		}
	}
}
