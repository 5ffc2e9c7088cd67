package statemachine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"gopkg.in/yaml.v2"
)

// StateConfig 单个状态的描述：事件 -> 目标状态
type StateConfig struct {
	Transitions map[Event]State `yaml:"transitions" json:"transitions"`
}

// Config 状态机配置
//
// states 按声明顺序保存，States("") 等查询依赖这个顺序。
// 转换的目标状态应当也是已声明的状态，但这里不做校验。
type Config struct {
	Initial State // 初始状态

	states map[State]StateConfig
	order  []State
}

// NewConfig 创建只包含初始状态标识的配置
func NewConfig(initial State) *Config {
	return &Config{
		Initial: initial,
		states:  make(map[State]StateConfig),
	}
}

// AddState 添加状态及其转换表
// 重复添加同一状态会替换转换表，但保留其原有位置
func (c *Config) AddState(state State, transitions map[Event]State) *Config {
	if c.states == nil {
		c.states = make(map[State]StateConfig)
	}
	if _, exists := c.states[state]; !exists {
		c.order = append(c.order, state)
	}

	copied := make(map[Event]State, len(transitions))
	for event, target := range transitions {
		copied[event] = target
	}
	c.states[state] = StateConfig{Transitions: copied}
	return c
}

// StateNames 按声明顺序返回所有状态
func (c *Config) StateNames() []State {
	return append([]State{}, c.order...)
}

// Lookup 返回状态描述
func (c *Config) Lookup(state State) (StateConfig, bool) {
	sc, ok := c.states[state]
	return sc, ok
}

// Has 判断状态是否已声明
func (c *Config) Has(state State) bool {
	_, ok := c.states[state]
	return ok
}

// Target 解析 state 上 event 的目标状态
func (c *Config) Target(state State, event Event) (State, bool) {
	sc, ok := c.states[state]
	if !ok {
		return "", false
	}
	target, ok := sc.Transitions[event]
	return target, ok
}

/* ------------------------------ 编解码 ------------------------------ */

// UnmarshalYAML 解析 YAML 文档，保留 states 的声明顺序
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var doc struct {
		Initial State                 `yaml:"initial"`
		States  map[State]StateConfig `yaml:"states"`
	}
	if err := unmarshal(&doc); err != nil {
		return err
	}

	// 第二遍只取键顺序
	var keys struct {
		States yaml.MapSlice `yaml:"states"`
	}
	if err := unmarshal(&keys); err != nil {
		return err
	}

	cfg := NewConfig(doc.Initial)
	for _, state := range yamlKeyOrder(keys.States, doc.States) {
		cfg.AddState(state, doc.States[state].Transitions)
	}
	*c = *cfg
	return nil
}

// yamlKeyOrder 按 items 的顺序返回 states 中的原始键名
//
// MapSlice 的键按 YAML 1.1 解析，on/off/yes/no 会变成 bool，01/1.0 会变成数字，
// 而 map[State] 的键保留了原文。非字符串键按解析结果与剩余原文逐个配对；
// 解析结果相同的多个键（如 on 与 yes）之间按字典序配对。
func yamlKeyOrder(items yaml.MapSlice, states map[State]StateConfig) []State {
	order := make([]State, len(items))
	matched := make([]bool, len(items))
	used := make(map[State]bool, len(states))

	for i, item := range items {
		if s, ok := item.Key.(string); ok {
			if _, exists := states[State(s)]; exists {
				order[i], matched[i] = State(s), true
				used[State(s)] = true
			}
		}
	}

	pending := make([]State, 0, len(states))
	for state := range states {
		if !used[state] {
			pending = append(pending, state)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })

	for i, item := range items {
		if matched[i] {
			continue
		}
		for j, candidate := range pending {
			var resolved interface{}
			if err := yaml.Unmarshal([]byte(candidate), &resolved); err != nil {
				continue
			}
			if reflect.DeepEqual(resolved, item.Key) {
				order[i], matched[i] = candidate, true
				pending = append(pending[:j], pending[j+1:]...)
				break
			}
		}
		if !matched[i] {
			order[i] = State(fmt.Sprint(item.Key))
		}
	}
	return order
}

// MarshalYAML 按声明顺序输出 YAML
func (c *Config) MarshalYAML() (interface{}, error) {
	states := make(yaml.MapSlice, 0, len(c.order))
	for _, state := range c.order {
		states = append(states, yaml.MapItem{Key: string(state), Value: c.states[state]})
	}
	return yaml.MapSlice{
		{Key: "initial", Value: string(c.Initial)},
		{Key: "states", Value: states},
	}, nil
}

// UnmarshalJSON 解析 JSON 文档，保留 states 的声明顺序
func (c *Config) UnmarshalJSON(data []byte) error {
	var doc struct {
		Initial State           `json:"initial"`
		States  json.RawMessage `json:"states"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	cfg := NewConfig(doc.Initial)
	if len(doc.States) == 0 || string(doc.States) == "null" {
		*c = *cfg
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(doc.States))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("states: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("states: unexpected key %v", tok)
		}

		var sc StateConfig
		if err := dec.Decode(&sc); err != nil {
			return fmt.Errorf("states.%s: %w", key, err)
		}
		cfg.AddState(State(key), sc.Transitions)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = *cfg
	return nil
}

// MarshalJSON 按声明顺序输出 JSON
func (c *Config) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	initial, err := json.Marshal(c.Initial)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"initial":`)
	buf.Write(initial)
	buf.WriteString(`,"states":{`)

	for i, state := range c.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(state)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(c.states[state])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteString("}}")
	return buf.Bytes(), nil
}
