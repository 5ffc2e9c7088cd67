package statemachine

import "fmt"

var (
	// ErrInvalidConfig 当未提供配置时返回
	ErrInvalidConfig = fmt.Errorf("invalid config")

	// ErrUnknownState 当目标状态不在配置中时返回
	ErrUnknownState = fmt.Errorf("unknown state")

	// ErrUnknownEvent 当当前状态未定义该事件时返回
	ErrUnknownEvent = fmt.Errorf("unknown event")

	// ErrMachineNotFound 当分组中不存在指定名称的状态机时返回
	ErrMachineNotFound = fmt.Errorf("machine not found")

	// ErrDuplicateMachine 当分组中已存在同名状态机时返回
	ErrDuplicateMachine = fmt.Errorf("duplicate machine")
)
