package logger

import (
	"io"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotateConfig 日志轮转配置
type RotateConfig struct {
	Filename     string        // 日志文件路径
	MaxSize      int           // 单文件最大尺寸（MB），按大小轮转时有效
	MaxBackups   int           // 保留的旧文件数量，按大小轮转时有效
	MaxAge       int           // 保留天数
	Compress     bool          // 是否压缩旧文件，按大小轮转时有效
	RotationTime time.Duration // 轮转间隔，按时间轮转时有效
	LocalTime    bool          // 文件名使用本地时间
}

// NewRotateBySize 按大小轮转
func NewRotateBySize(cfg *RotateConfig) io.Writer {
	return &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  cfg.LocalTime,
	}
}

// NewProductionRotateBySize 生产环境默认的按大小轮转：100MB/30个备份/7天/压缩
func NewProductionRotateBySize(filename string) io.Writer {
	return NewRotateBySize(&RotateConfig{
		Filename:   filename,
		MaxSize:    100,
		MaxBackups: 30,
		MaxAge:     7,
		Compress:   true,
		LocalTime:  true,
	})
}

// NewRotateByTime 按时间轮转，文件名形如 app.log.2026101915，Filename 为指向最新文件的软链接
func NewRotateByTime(cfg *RotateConfig) (io.Writer, error) {
	opts := []rotatelogs.Option{rotatelogs.WithLinkName(cfg.Filename)}
	if cfg.MaxAge > 0 {
		opts = append(opts, rotatelogs.WithMaxAge(time.Duration(cfg.MaxAge)*24*time.Hour))
	}
	if cfg.RotationTime > 0 {
		opts = append(opts, rotatelogs.WithRotationTime(cfg.RotationTime))
	}
	if cfg.LocalTime {
		opts = append(opts, rotatelogs.WithClock(rotatelogs.Local))
	} else {
		opts = append(opts, rotatelogs.WithClock(rotatelogs.UTC))
	}

	w, err := rotatelogs.New(cfg.Filename+".%Y%m%d%H", opts...)
	if err != nil {
		return nil, err
	}
	return w, nil
}
