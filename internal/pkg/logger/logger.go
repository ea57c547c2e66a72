package logger

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Log 进程级日志实例，Init 之前也可直接使用
var Log = logrus.New()

func init() {
	Log.SetFormatter(jsonFormatter())
	Log.SetOutput(os.Stdout)
	Log.SetLevel(logrus.InfoLevel)
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	}
}

// Init 根据配置设置日志级别与格式（json / text）
func Init(level, format string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if format == "text" {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		Log.SetFormatter(jsonFormatter())
	}
}

// SetOutput 替换输出，测试中用于捕获日志
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

// WithSource 带 source 字段的日志条目
func WithSource(source string) *logrus.Entry {
	return Log.WithField("source", source)
}

// GinWriter 将 gin 的访问日志转写为结构化日志
func GinWriter() io.Writer {
	return &ginLogWriter{}
}

type ginLogWriter struct{}

func (w *ginLogWriter) Write(p []byte) (int, error) {
	WithSource("gin").Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// GormLogger 返回输出到 logrus 的 gorm 日志适配器
func GormLogger() gormlogger.Interface {
	return &gormLogger{
		LogLevel:      gormlogger.Warn,
		SlowThreshold: 200 * time.Millisecond,
	}
}

type gormLogger struct {
	LogLevel      gormlogger.LogLevel
	SlowThreshold time.Duration
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Info {
		WithSource("gorm").WithField("data", data).Info(msg)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Warn {
		WithSource("gorm").WithField("data", data).Warn(msg)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Error {
		WithSource("gorm").WithField("data", data).Error(msg)
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	entry := WithSource("gorm").WithFields(logrus.Fields{
		"elapsed": elapsed.String(),
		"sql":     sql,
		"rows":    rows,
	})

	switch {
	// 未找到记录与唯一键冲突属于业务分支，不按错误记录
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, gorm.ErrDuplicatedKey) && l.LogLevel >= gormlogger.Error:
		entry.WithField("error", err.Error()).Error("SQL query error")
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.LogLevel >= gormlogger.Warn:
		entry.Warn("slow SQL query")
	case l.LogLevel >= gormlogger.Info:
		entry.Debug("SQL query executed")
	}
}
