package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junbin-yang/go-fsm/pkg/logger"
	"github.com/junbin-yang/go-fsm/pkg/statemachine"
)

type TestSettings struct {
	Machine struct {
		Name       string `yaml:"name" json:"name" env:"FSM_TEST_MACHINE_NAME"`
		Definition string `yaml:"definition" json:"definition"`
	} `yaml:"machine" json:"machine"`
	Logger struct {
		Level  string `yaml:"level" json:"level" env:"FSM_TEST_LOG_LEVEL"`
		File   string `yaml:"file" json:"file"`
		Rotate bool   `yaml:"rotate" json:"rotate" env:"FSM_TEST_LOG_ROTATE"`
	} `yaml:"logger" json:"logger"`
	Watch struct {
		Enable   bool          `yaml:"enable" json:"enable"`
		Debounce time.Duration `yaml:"debounce" json:"debounce" env:"FSM_TEST_WATCH_DEBOUNCE"`
	} `yaml:"watch" json:"watch"`
}

func testdata(name string) string {
	return filepath.Join("..", "..", "internal", "testdata", name)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// 场景1：基础使用（默认YAML格式）
func TestScenario1_BasicYAML(t *testing.T) {
	cm := NewManager[TestSettings](WithLogger(logger.Nop()))
	require.NoError(t, cm.Load(testdata("settings.yml")))

	cfg, err := cm.Get()
	require.NoError(t, err)
	assert.Equal(t, "traffic", cfg.Machine.Name)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
}

// 场景2：加载状态机定义（YAML 与 JSON 结果一致）
func TestScenario2_MachineDefinition(t *testing.T) {
	for _, name := range []string{"traffic.yml", "traffic.json"} {
		t.Run(name, func(t *testing.T) {
			cm := NewManager[statemachine.Config](WithLogger(logger.Nop()))
			require.NoError(t, cm.Load(testdata(name)))

			cfg, err := cm.Get()
			require.NoError(t, err)
			assert.Equal(t, statemachine.State("red"), cfg.Initial)
			assert.Equal(t, []statemachine.State{"red", "green", "yellow"}, cfg.StateNames())

			fsm, err := statemachine.NewFSM(cfg)
			require.NoError(t, err)
			require.NoError(t, fsm.Trigger("go"))
			assert.Equal(t, statemachine.State("green"), fsm.Current())
			assert.Equal(t, []statemachine.State{"green", "yellow"}, fsm.States("stop"))
		})
	}
}

// 场景3：无后缀文件使用强制格式
func TestScenario3_ForceFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machine")
	writeFile(t, path, `{"initial":"a","states":{"a":{"transitions":{"x":"b"}},"b":{}}}`)

	cm := NewManager[statemachine.Config](WithForceFormat(&JSONSerializer{}), WithLogger(logger.Nop()))
	require.NoError(t, cm.Load(path))

	cfg, err := cm.Get()
	require.NoError(t, err)
	assert.Equal(t, []statemachine.State{"a", "b"}, cfg.StateNames())
}

// 场景4：按默认路径模板查找
func TestScenario4_DefaultPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "fsm.yaml"), "initial: a\nstates:\n  a:\n")

	cm := NewManager[statemachine.Config](
		WithAppName("fsm"),
		WithDefaultPaths(filepath.Join(dir, "missing", "{{.AppName}}"), filepath.Join(dir, "{{.AppName}}")),
		WithLogger(logger.Nop()),
	)
	require.NoError(t, cm.Load(""))
	assert.Equal(t, filepath.Join(dir, "fsm.yaml"), cm.Path())

	cfg, err := cm.Get()
	require.NoError(t, err)
	assert.Equal(t, statemachine.State("a"), cfg.Initial)
}

// 场景5：找不到配置文件
func TestScenario5_NotFound(t *testing.T) {
	cm := NewManager[TestSettings](
		WithDefaultPaths(filepath.Join(t.TempDir(), "{{.AppName}}")),
		WithLogger(logger.Nop()),
	)
	assert.Error(t, cm.Load(""))

	_, err := cm.Get()
	assert.Error(t, err)

	cm2 := NewManager[TestSettings](WithLogger(logger.Nop()))
	assert.Error(t, cm2.Load(t.TempDir()), "目录不是合法的配置路径")
}

// 场景6：环境变量覆盖
func TestScenario6_EnvOverrides(t *testing.T) {
	t.Setenv("FSM_TEST_MACHINE_NAME", "door")
	t.Setenv("FSM_TEST_LOG_ROTATE", "true")
	t.Setenv("FSM_TEST_WATCH_DEBOUNCE", "2s")

	cm := NewManager[TestSettings](WithLogger(logger.Nop()))
	require.NoError(t, cm.Load(testdata("settings.yml")))

	cfg, err := cm.Get()
	require.NoError(t, err)
	assert.Equal(t, "door", cfg.Machine.Name)
	assert.True(t, cfg.Logger.Rotate)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestEnvOverrides_InvalidValue(t *testing.T) {
	t.Setenv("FSM_TEST_LOG_ROTATE", "maybe")

	cm := NewManager[TestSettings](WithLogger(logger.Nop()))
	assert.Error(t, cm.Load(testdata("settings.yml")))
}

// 场景7：手动重载与变更回调
func TestScenario7_ReloadCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machine.yml")
	writeFile(t, path, "initial: a\nstates:\n  a:\n")

	cm := NewManager[statemachine.Config](WithLogger(logger.Nop()))
	require.NoError(t, cm.Load(path))

	var oldInitial, newInitial statemachine.State
	cm.OnChange(func(old, new *statemachine.Config) {
		oldInitial, newInitial = old.Initial, new.Initial
	})

	writeFile(t, path, "initial: b\nstates:\n  b:\n  a:\n")
	require.NoError(t, cm.Reload())
	assert.Equal(t, statemachine.State("a"), oldInitial)
	assert.Equal(t, statemachine.State("b"), newInitial)

	// 解析失败时保留旧配置
	writeFile(t, path, "initial: [broken")
	assert.Error(t, cm.Reload())
	cfg, err := cm.Get()
	require.NoError(t, err)
	assert.Equal(t, statemachine.State("b"), cfg.Initial)
}

// 场景8：文件监听自动重载
func TestScenario8_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machine.yml")
	writeFile(t, path, "initial: a\nstates:\n  a:\n")

	cm := NewManager[statemachine.Config](
		WithConfigWatch(true, 50*time.Millisecond),
		WithLogger(logger.Nop()),
	)
	defer cm.Close()
	require.NoError(t, cm.Load(path))

	changed := make(chan statemachine.State, 1)
	cm.OnChange(func(_, new *statemachine.Config) {
		select {
		case changed <- new.Initial:
		default:
		}
	})

	writeFile(t, path, "initial: c\nstates:\n  c:\n")

	select {
	case initial := <-changed:
		assert.Equal(t, statemachine.State("c"), initial)
	case <-time.After(5 * time.Second):
		t.Fatal("等待配置自动重载超时")
	}
}

func TestEnableWatch(t *testing.T) {
	cm := NewManager[TestSettings](WithLogger(logger.Nop()))
	assert.Error(t, cm.EnableWatch(true), "未加载时不能启用监听")

	require.NoError(t, cm.Load(testdata("settings.yml")))
	require.NoError(t, cm.EnableWatch(true))
	require.NoError(t, cm.EnableWatch(false))
	cm.Close()
	cm.Close()
}

func TestEnableWatch_AfterClose(t *testing.T) {
	cm := NewManager[TestSettings](WithLogger(logger.Nop()))
	require.NoError(t, cm.Load(testdata("settings.yml")))
	require.NoError(t, cm.EnableWatch(true))

	cm.Close()
	assert.ErrorIs(t, cm.EnableWatch(true), ErrManagerClosed, "关闭后不能再启用监听")
	assert.NoError(t, cm.EnableWatch(false))
}

// 关闭后再 Load 也不会启动监听
func TestLoad_WatchAfterClose(t *testing.T) {
	cm := NewManager[TestSettings](WithConfigWatch(true, 50*time.Millisecond), WithLogger(logger.Nop()))
	cm.Close()
	require.NoError(t, cm.Load(testdata("settings.yml")))

	cm.mu.RLock()
	defer cm.mu.RUnlock()
	assert.Nil(t, cm.watcher)
}
