package statemachine

import "github.com/junbin-yang/go-fsm/pkg/logger"

// Option 状态机选项
type Option func(*FSM)

// WithName 设置状态机名称（用于日志字段与分组）
func WithName(name string) Option {
	return func(f *FSM) {
		f.name = name
	}
}

// WithLogger 设置日志，默认不输出
func WithLogger(l logger.Logger) Option {
	return func(f *FSM) {
		if l != nil {
			f.log = l
		}
	}
}
