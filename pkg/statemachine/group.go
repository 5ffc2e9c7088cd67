package statemachine

import (
	"fmt"
	"sort"
	"sync"
)

// member 分组中的状态机，mu 串行化对它的所有访问
type member struct {
	mu  sync.Mutex
	fsm *FSM
}

// Group 按名称管理多个状态机
//
// 不同状态机可以并发操作；同一状态机上的操作经由各自的锁串行执行。
type Group struct {
	mu       sync.RWMutex
	machines map[string]*member
}

// NewGroup 创建状态机分组
func NewGroup() *Group {
	return &Group{
		machines: make(map[string]*member),
	}
}

// Add 添加状态机，name 为空时使用状态机自身的名称
func (g *Group) Add(name string, fsm *FSM) error {
	if fsm == nil {
		return ErrInvalidConfig
	}
	if name == "" {
		name = fsm.Name()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.machines[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateMachine, name)
	}
	g.machines[name] = &member{fsm: fsm}
	return nil
}

// Remove 移除状态机
func (g *Group) Remove(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.machines, name)
}

// Do 在持有该状态机锁的情况下执行 fn
func (g *Group) Do(name string, fn func(*FSM) error) error {
	m, err := g.lookup(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.fsm)
}

// Trigger 触发指定状态机的事件
func (g *Group) Trigger(name string, event Event) error {
	return g.Do(name, func(f *FSM) error {
		return f.Trigger(event)
	})
}

// Current 返回指定状态机的当前状态
func (g *Group) Current(name string) (State, error) {
	var state State
	err := g.Do(name, func(f *FSM) error {
		state = f.Current()
		return nil
	})
	return state, err
}

// TriggerAll 对所有状态机并发触发同一事件
func (g *Group) TriggerAll(event Event) map[string]error {
	members := g.members()

	results := make(map[string]error, len(members))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, m := range members {
		wg.Add(1)
		go func(n string, m *member) {
			defer wg.Done()

			m.mu.Lock()
			err := m.fsm.Trigger(event)
			m.mu.Unlock()

			mu.Lock()
			results[n] = err
			mu.Unlock()
		}(name, m)
	}

	wg.Wait()
	return results
}

// States 获取所有状态机的当前状态
func (g *Group) States() map[string]State {
	members := g.members()

	states := make(map[string]State, len(members))
	for name, m := range members {
		m.mu.Lock()
		states[name] = m.fsm.Current()
		m.mu.Unlock()
	}
	return states
}

// Metrics 获取所有状态机的指标快照
func (g *Group) Metrics() map[string]MetricsSnapshot {
	members := g.members()

	snapshots := make(map[string]MetricsSnapshot, len(members))
	for name, m := range members {
		m.mu.Lock()
		snapshots[name] = m.fsm.Metrics()
		m.mu.Unlock()
	}
	return snapshots
}

// ResetAll 重置所有状态机的当前状态（历史不变）
func (g *Group) ResetAll() {
	for _, m := range g.members() {
		m.mu.Lock()
		m.fsm.Reset()
		m.mu.Unlock()
	}
}

// Names 返回排序后的状态机名称
func (g *Group) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.machines))
	for name := range g.machines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count 返回状态机数量
func (g *Group) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.machines)
}

func (g *Group) lookup(name string) (*member, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	m, exists := g.machines[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrMachineNotFound, name)
	}
	return m, nil
}

// members 复制成员表，避免在持有分组锁时操作状态机
func (g *Group) members() map[string]*member {
	g.mu.RLock()
	defer g.mu.RUnlock()

	members := make(map[string]*member, len(g.machines))
	for name, m := range g.machines {
		members[name] = m
	}
	return members
}
