package statemachine

import (
	"fmt"

	"github.com/junbin-yang/go-fsm/pkg/logger"
)

// FSM 带线性撤销/重做历史的有限状态机
//
// history 记录访问过的状态，cursor 指向当前状态所在的位置。
// 新的前进转换会先丢弃 cursor 之后的记录再追加，因此撤销后再转换将无法重做。
// FSM 不是并发安全的，多协程共享时请通过 Group 或自行加锁。
type FSM struct {
	name    string
	config  *Config
	current State
	history []State
	cursor  int
	last    lastOp
	log     logger.Logger
	metrics *Metrics
}

var _ StateMachine = (*FSM)(nil)

// NewFSM 根据配置创建状态机，cfg 为 nil 时返回 ErrInvalidConfig
func NewFSM(cfg *Config, opts ...Option) (*FSM, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}

	f := &FSM{
		config:  cfg,
		current: cfg.Initial,
		history: []State{cfg.Initial},
		log:     logger.Nop(),
		metrics: newMetrics(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.name != "" {
		f.log = f.log.With(logger.String("machine", f.name))
	}

	return f, nil
}

// Name 返回状态机名称
func (f *FSM) Name() string {
	return f.name
}

// Config 返回构造时传入的配置（只读）
func (f *FSM) Config() *Config {
	return f.config
}

// Current 返回当前状态
func (f *FSM) Current() State {
	return f.current
}

// ChangeState 直接跳转到 target，不检查转换规则
func (f *FSM) ChangeState(target State) error {
	if !f.config.Has(target) {
		f.metrics.recordRejected()
		f.log.Warn("change state rejected", logger.String("from", string(f.current)), logger.String("to", string(target)))
		return fmt.Errorf("%w: %q", ErrUnknownState, target)
	}

	f.advance(target)
	f.metrics.recordChange()
	return nil
}

// Trigger 按当前状态的转换表处理事件
func (f *FSM) Trigger(event Event) error {
	target, ok := f.config.Target(f.current, event)
	if !ok || target == "" {
		f.metrics.recordRejected()
		f.log.Warn("trigger rejected", logger.String("state", string(f.current)), logger.String("event", string(event)))
		return fmt.Errorf("%w: %q in state %q", ErrUnknownEvent, event, f.current)
	}

	f.advance(target)
	f.metrics.recordTrigger()
	return nil
}

// Can 检查当前状态是否定义了该事件
func (f *FSM) Can(event Event) bool {
	target, ok := f.config.Target(f.current, event)
	return ok && target != ""
}

// advance 截断 cursor 之后的历史并追加 target
func (f *FSM) advance(target State) {
	from := f.current

	// ClearHistory 之后以当前状态重新起头
	if len(f.history) == 0 {
		f.history = append(f.history, f.current)
		f.cursor = 0
	}

	f.history = append(f.history[:f.cursor+1], target)
	f.cursor++
	f.current = target
	f.last = opForward

	f.log.Debug("transition",
		logger.String("from", string(from)),
		logger.String("to", string(target)),
		logger.Int("cursor", f.cursor),
	)
}

// Reset 把当前状态设回初始状态
//
// 只修改当前状态指针，history、cursor 与重做标记保持不变。
func (f *FSM) Reset() {
	f.current = f.config.Initial
	f.log.Debug("reset", logger.String("state", string(f.current)))
}

// States 返回配置中的状态，event 为空时返回全部，否则只返回定义了该事件的状态
// 结果保持配置声明顺序
func (f *FSM) States(event Event) []State {
	names := f.config.StateNames()
	if event == "" {
		return names
	}

	matched := make([]State, 0, len(names))
	for _, state := range names {
		if target, ok := f.config.Target(state, event); ok && target != "" {
			matched = append(matched, state)
		}
	}
	return matched
}

// CanUndo 检查 Undo 是否会成功
func (f *FSM) CanUndo() bool {
	return len(f.history) > 0 && f.cursor > 0 && f.current != f.config.Initial
}

// Undo 回退一步，处于初始状态或历史为空时返回 false
func (f *FSM) Undo() bool {
	if !f.CanUndo() {
		return false
	}

	f.cursor--
	f.current = f.history[f.cursor]
	f.last = opUndone
	f.metrics.recordUndo()

	f.log.Debug("undo", logger.String("state", string(f.current)), logger.Int("cursor", f.cursor))
	return true
}

// CanRedo 检查 Redo 是否会成功
func (f *FSM) CanRedo() bool {
	return f.last == opUndone && len(f.history) > 0 && f.cursor < len(f.history)-1
}

// Redo 前进一步，只有在 Undo 之后且没有新的前进转换时可用
func (f *FSM) Redo() bool {
	if !f.CanRedo() {
		return false
	}

	f.cursor++
	f.current = f.history[f.cursor]
	f.metrics.recordRedo()

	f.log.Debug("redo", logger.String("state", string(f.current)), logger.Int("cursor", f.cursor))
	return true
}

// ClearHistory 清空历史记录，cursor 与当前状态不变
// 之后的 Undo/Redo 返回 false，直到下一次前进转换重新建立历史
func (f *FSM) ClearHistory() {
	f.history = nil
	f.log.Debug("history cleared", logger.String("state", string(f.current)))
}

// History 返回历史记录的副本
func (f *FSM) History() []State {
	return append([]State{}, f.history...)
}

// Cursor 返回当前游标
func (f *FSM) Cursor() int {
	return f.cursor
}

// Metrics 返回指标快照
func (f *FSM) Metrics() MetricsSnapshot {
	return f.metrics.snapshot(len(f.history), f.cursor)
}
