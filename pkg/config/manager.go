package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/junbin-yang/go-fsm/pkg/logger"
)

// ErrManagerClosed Close 之后再启用监听时返回
var ErrManagerClosed = errors.New("config manager closed")

// Manager 通用配置管理器，T 为配置文档类型
type Manager[T any] struct {
	opts options

	mu         sync.RWMutex
	instance   *T         // 当前配置实例
	path       string     // 配置文件路径
	serializer Serializer // 当前使用的序列化器
	loadErr    error      // 加载错误
	once       sync.Once  // 确保配置只加载一次

	// 配置监听相关
	watcher   *fsnotify.Watcher
	watchQuit chan struct{}
	closeOnce sync.Once
	closed    bool

	// 配置变更回调
	callbacks []func(old, new *T)
}

// NewManager 创建配置管理器实例
func NewManager[T any](opts ...Option) *Manager[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Manager[T]{
		opts:       o,
		serializer: o.serializer,
		watchQuit:  make(chan struct{}),
	}
}

// Load 加载配置文件，只在第一次调用时生效
// customPath: 自定义配置路径，空字符串使用默认路径
func (m *Manager[T]) Load(customPath string) error {
	m.once.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if err := m.resolvePath(customPath); err != nil {
			m.loadErr = err
			return
		}

		instance, err := m.read(m.path, m.serializer)
		if err != nil {
			m.loadErr = fmt.Errorf("parse config failed: %w", err)
			return
		}
		m.instance = instance

		m.opts.log.Info("config loaded",
			logger.String("path", m.path),
			logger.String("format", m.serializer.GetName()),
		)

		if m.opts.watch {
			if err := m.startWatch(); err != nil {
				m.opts.log.Warn("config watch disabled", logger.Err(err))
			}
		}
	})

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadErr
}

// Get 获取配置实例
func (m *Manager[T]) Get() (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.instance == nil {
		return nil, errors.New("config not initialized, call Load first")
	}
	return m.instance, nil
}

// Path 返回正在使用的配置文件路径
func (m *Manager[T]) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Reload 重新读取配置文件，成功后触发变更回调
// 解析失败时保留旧配置
func (m *Manager[T]) Reload() error {
	m.mu.RLock()
	path, serializer := m.path, m.serializer
	m.mu.RUnlock()

	if path == "" {
		return errors.New("config path not initialized")
	}

	instance, err := m.read(path, serializer)
	if err != nil {
		return err
	}

	m.mu.Lock()
	old := m.instance
	m.instance = instance
	m.loadErr = nil
	// 复制回调列表，在锁外执行
	callbacks := append([]func(old, new *T){}, m.callbacks...)
	m.mu.Unlock()

	for _, callback := range callbacks {
		callback(old, instance)
	}
	return nil
}

// OnChange 注册配置变更回调
func (m *Manager[T]) OnChange(callback func(old, new *T)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// EnableWatch 动态启用/禁用配置监听
func (m *Manager[T]) EnableWatch(enable bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !enable {
		m.opts.watch = false
		m.stopWatch()
		return nil
	}
	if m.closed {
		return ErrManagerClosed
	}
	m.opts.watch = true
	if m.path == "" {
		return errors.New("config path not initialized")
	}
	return m.startWatch()
}

// Close 关闭配置管理器（停止监听）
func (m *Manager[T]) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.stopWatch()
		m.mu.Unlock()
		close(m.watchQuit)
	})
}

/* ------------------------------ 内部方法 ------------------------------ */

// resolvePath 确定配置路径与序列化器
func (m *Manager[T]) resolvePath(customPath string) error {
	if customPath == "" {
		path, err := m.findDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("default config not found: %w", err)
		}
		m.path = path
		return nil
	}

	if err := validateConfigPath(customPath); err != nil {
		return fmt.Errorf("invalid custom config path: %w", err)
	}
	m.path = customPath
	m.serializer = m.chooseSerializer(customPath)
	return nil
}

// read 读取并解析配置文件，返回新实例
func (m *Manager[T]) read(path string, serializer Serializer) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file failed: %w", err)
	}

	instance := new(T)
	if err := serializer.Unmarshal(data, instance); err != nil {
		return nil, fmt.Errorf("unmarshal failed (%s): %w", serializer.GetName(), err)
	}
	if err := applyEnvOverrides(instance); err != nil {
		return nil, fmt.Errorf("apply env overrides failed: %w", err)
	}
	return instance, nil
}

// chooseSerializer 强制格式 > 后缀识别 > 默认
func (m *Manager[T]) chooseSerializer(path string) Serializer {
	if m.opts.forceFormat != nil {
		return m.opts.forceFormat
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range m.opts.formats {
		for _, e := range format.GetFileExts() {
			if e == ext {
				return format
			}
		}
	}
	return m.opts.serializer
}

// findDefaultConfigPath 查找默认配置路径
func (m *Manager[T]) findDefaultConfigPath() (string, error) {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)

	for _, pathTpl := range m.opts.defaultPaths {
		basePath := replacePathVars(pathTpl, map[string]string{
			"AppName": m.opts.appName,
			"ExecDir": execDir,
		})

		// 先尝试无后缀文件
		if err := validateConfigPath(basePath); err == nil {
			m.serializer = m.chooseSerializer(basePath)
			return basePath, nil
		}

		for _, format := range m.opts.formats {
			for _, ext := range format.GetFileExts() {
				fullPath := basePath + ext
				if err := validateConfigPath(fullPath); err == nil {
					m.serializer = format
					if m.opts.forceFormat != nil {
						m.serializer = m.opts.forceFormat
					}
					return fullPath, nil
				}
			}
		}
	}

	return "", errors.New("no valid config file found (tried default paths and formats)")
}

// startWatch 监听配置文件所在目录，兼容编辑器的改名式保存
// 调用方需持有写锁
func (m *Manager[T]) startWatch() error {
	if m.closed {
		return ErrManagerClosed
	}
	if m.watcher != nil {
		return nil
	}

	target, err := filepath.Abs(m.path)
	if err != nil {
		return fmt.Errorf("resolve watch path failed: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher failed: %w", err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("add watch path failed: %w", err)
	}

	m.watcher = watcher
	go m.watchLoop(watcher, target)
	return nil
}

// stopWatch 停止监听，调用方需持有写锁
func (m *Manager[T]) stopWatch() {
	if m.watcher != nil {
		_ = m.watcher.Close()
		m.watcher = nil
	}
}

// watchLoop 监听文件变化循环
func (m *Manager[T]) watchLoop(watcher *fsnotify.Watcher, target string) {
	debounce := time.NewTimer(m.opts.watchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce.Reset(m.opts.watchDebounce)
			}

		case <-debounce.C:
			if err := m.Reload(); err != nil {
				m.opts.log.Warn("config auto reload failed", logger.String("path", target), logger.Err(err))
			} else {
				m.opts.log.Info("config auto reloaded", logger.String("path", target))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.opts.log.Error("config watch error", logger.Err(err))

		case <-m.watchQuit:
			return
		}
	}
}

// replacePathVars 替换路径模板变量
func replacePathVars(tpl string, vars map[string]string) string {
	result := tpl
	for k, v := range vars {
		result = strings.ReplaceAll(result, "{{."+k+"}}", v)
	}
	return result
}

// validateConfigPath 校验配置路径合法性
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return fmt.Errorf("stat path failed: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("path is a directory: %s", path)
	}
	return nil
}
