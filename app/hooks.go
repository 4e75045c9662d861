package app

import "context"

// Hook 生命周期钩子函数.
type Hook func(ctx context.Context) error

// Hooks 生命周期钩子集合.
type Hooks struct {
	BeforeStart  []Hook
	AfterStart   []Hook
	BeforeStop   []Hook
	AfterStop    []Hook
	BeforeReload []Hook
	AfterReload  []Hook
}

// run 依次执行钩子，遇到第一个错误即返回.
func run(ctx context.Context, hooks []Hook) error {
	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hooks) runBeforeStart(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return run(ctx, h.BeforeStart)
}

func (h *Hooks) runAfterStart(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return run(ctx, h.AfterStart)
}

func (h *Hooks) runBeforeStop(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return run(ctx, h.BeforeStop)
}

func (h *Hooks) runAfterStop(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return run(ctx, h.AfterStop)
}

func (h *Hooks) runBeforeReload(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return run(ctx, h.BeforeReload)
}

func (h *Hooks) runAfterReload(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return run(ctx, h.AfterReload)
}

// HooksBuilder 钩子构建器.
type HooksBuilder struct {
	hooks *Hooks
}

// NewHooks 创建钩子构建器.
func NewHooks() *HooksBuilder {
	return &HooksBuilder{hooks: &Hooks{}}
}

// BeforeStart 添加启动前钩子，返回错误时应用不会启动.
func (b *HooksBuilder) BeforeStart(hook Hook) *HooksBuilder {
	b.hooks.BeforeStart = append(b.hooks.BeforeStart, hook)
	return b
}

// AfterStart 添加启动后钩子.
func (b *HooksBuilder) AfterStart(hook Hook) *HooksBuilder {
	b.hooks.AfterStart = append(b.hooks.AfterStart, hook)
	return b
}

// BeforeStop 添加停止前钩子.
func (b *HooksBuilder) BeforeStop(hook Hook) *HooksBuilder {
	b.hooks.BeforeStop = append(b.hooks.BeforeStop, hook)
	return b
}

// AfterStop 添加停止后钩子.
func (b *HooksBuilder) AfterStop(hook Hook) *HooksBuilder {
	b.hooks.AfterStop = append(b.hooks.AfterStop, hook)
	return b
}

// BeforeReload 添加重新加载前钩子，返回错误时放弃本次重新加载.
func (b *HooksBuilder) BeforeReload(hook Hook) *HooksBuilder {
	b.hooks.BeforeReload = append(b.hooks.BeforeReload, hook)
	return b
}

// AfterReload 添加重新加载成功后的钩子.
func (b *HooksBuilder) AfterReload(hook Hook) *HooksBuilder {
	b.hooks.AfterReload = append(b.hooks.AfterReload, hook)
	return b
}

// Build 构建钩子.
func (b *HooksBuilder) Build() *Hooks {
	return b.hooks
}
