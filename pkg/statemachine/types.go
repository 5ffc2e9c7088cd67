package statemachine

// State 表示状态机中的状态
type State string

// Event 表示触发状态转换的事件
type Event string

// StateMachine 定义状态机对外暴露的核心接口
type StateMachine interface {
	// Current 返回当前状态
	Current() State

	// ChangeState 直接跳转到指定状态（不经过转换规则）
	ChangeState(target State) error

	// Trigger 触发事件以转换状态
	Trigger(event Event) error

	// Can 检查是否可以从当前状态触发事件
	Can(event Event) bool

	// Reset 重置当前状态到初始状态
	Reset()

	// Undo 回退到上一个状态
	Undo() bool

	// Redo 前进到撤销前的状态
	Redo() bool
}

// lastOp 记录最近一次影响重做的操作
type lastOp uint8

const (
	opNone    lastOp = iota // 刚创建，尚未发生转换
	opForward               // 最近一次是 ChangeState/Trigger
	opUndone                // 最近一次是成功的 Undo 或 Redo
)

func (o lastOp) String() string {
	switch o {
	case opForward:
		return "forward"
	case opUndone:
		return "undone"
	default:
		return "none"
	}
}
