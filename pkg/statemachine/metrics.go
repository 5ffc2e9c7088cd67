package statemachine

import "sync/atomic"

// Metrics 指标统计
type Metrics struct {
	totalChanges  atomic.Int64 // ChangeState 成功次数
	totalTriggers atomic.Int64 // Trigger 成功次数
	totalUndos    atomic.Int64 // Undo 成功次数
	totalRedos    atomic.Int64 // Redo 成功次数
	totalRejected atomic.Int64 // 返回错误的操作次数
}

func newMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordChange()   { m.totalChanges.Add(1) }
func (m *Metrics) recordTrigger()  { m.totalTriggers.Add(1) }
func (m *Metrics) recordUndo()     { m.totalUndos.Add(1) }
func (m *Metrics) recordRedo()     { m.totalRedos.Add(1) }
func (m *Metrics) recordRejected() { m.totalRejected.Add(1) }

// snapshot 生成快照
func (m *Metrics) snapshot(historyLen, cursor int) MetricsSnapshot {
	changes := m.totalChanges.Load()
	triggers := m.totalTriggers.Load()

	return MetricsSnapshot{
		TotalChanges:     changes,
		TotalTriggers:    triggers,
		TotalTransitions: changes + triggers,
		TotalUndos:       m.totalUndos.Load(),
		TotalRedos:       m.totalRedos.Load(),
		TotalRejected:    m.totalRejected.Load(),
		HistoryLen:       historyLen,
		Cursor:           cursor,
	}
}

// MetricsSnapshot 指标快照
type MetricsSnapshot struct {
	TotalChanges     int64 // ChangeState 成功次数
	TotalTriggers    int64 // Trigger 成功次数
	TotalTransitions int64 // 前进转换总数
	TotalUndos       int64 // Undo 成功次数
	TotalRedos       int64 // Redo 成功次数
	TotalRejected    int64 // 被拒绝的操作次数
	HistoryLen       int   // 当前历史长度
	Cursor           int   // 当前游标
}
