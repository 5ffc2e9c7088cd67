package statemachine

import "time"

// Snapshot 状态机快照，仅用于调试与日志输出，不支持恢复
type Snapshot struct {
	Name      string                 `json:"name,omitempty"`
	Current   State                  `json:"current"`
	Initial   State                  `json:"initial"`
	Cursor    int                    `json:"cursor"`
	History   []State                `json:"history"`
	LastOp    string                 `json:"last_op"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// CreateSnapshot 创建状态快照
func (f *FSM) CreateSnapshot(metadata map[string]interface{}) *Snapshot {
	return &Snapshot{
		Name:      f.name,
		Current:   f.current,
		Initial:   f.config.Initial,
		Cursor:    f.cursor,
		History:   f.History(),
		LastOp:    f.last.String(),
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
