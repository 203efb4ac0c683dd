// Package logger 全局分级日志
// 控制台始终输出，DEBUG 级别时额外按天写入 logs/ 目录
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LogLevel 日志级别
type LogLevel int32

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// String 返回日志级别的字符串表示
func (l LogLevel) String() string {
	if l < DEBUG || l > FATAL {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLogLevel 解析日志级别字符串，无法识别时返回 INFO
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

var (
	level int32 = int32(INFO)

	locMu sync.RWMutex
	loc   = time.Local

	sinkMu sync.Mutex
	sink   *dailyFile
)

// SetLevel 设置全局日志级别，DEBUG 级别同时开启文件日志
func SetLevel(l LogLevel) {
	atomic.StoreInt32(&level, int32(l))

	sinkMu.Lock()
	defer sinkMu.Unlock()
	if l == DEBUG {
		if sink == nil {
			sink = &dailyFile{dir: "logs"}
		}
	} else if sink != nil {
		sink.close()
		sink = nil
	}
}

// GetLevel 获取全局日志级别
func GetLevel() LogLevel {
	return LogLevel(atomic.LoadInt32(&level))
}

// SetLocation 设置日志时间戳使用的时区
func SetLocation(l *time.Location) {
	locMu.Lock()
	loc = l
	locMu.Unlock()
}

// Close 关闭文件日志
func Close() {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if sink != nil {
		sink.close()
		sink = nil
	}
}

func now() time.Time {
	locMu.RLock()
	defer locMu.RUnlock()
	return time.Now().In(loc)
}

// emit 组装整行并分发到控制台和文件
func emit(l LogLevel, msg string) {
	if l < GetLevel() {
		return
	}
	line := fmt.Sprintf("%s [%s] %s", now().Format("2006/01/02 15:04:05"), l, msg)
	fmt.Fprintln(os.Stdout, line)

	sinkMu.Lock()
	if sink != nil {
		sink.writeLine(now(), line)
	}
	sinkMu.Unlock()
}

// Debug 输出调试日志
func Debug(format string, args ...interface{}) { emit(DEBUG, fmt.Sprintf(format, args...)) }

// Debugln 输出调试日志（无格式）
func Debugln(args ...interface{}) { emit(DEBUG, strings.TrimSuffix(fmt.Sprintln(args...), "\n")) }

// Info 输出一般信息日志
func Info(format string, args ...interface{}) { emit(INFO, fmt.Sprintf(format, args...)) }

// Infoln 输出一般信息日志（无格式）
func Infoln(args ...interface{}) { emit(INFO, strings.TrimSuffix(fmt.Sprintln(args...), "\n")) }

// Warn 输出警告日志
func Warn(format string, args ...interface{}) { emit(WARN, fmt.Sprintf(format, args...)) }

// Warnln 输出警告日志（无格式）
func Warnln(args ...interface{}) { emit(WARN, strings.TrimSuffix(fmt.Sprintln(args...), "\n")) }

// Error 输出错误日志
func Error(format string, args ...interface{}) { emit(ERROR, fmt.Sprintf(format, args...)) }

// Errorln 输出错误日志（无格式）
func Errorln(args ...interface{}) { emit(ERROR, strings.TrimSuffix(fmt.Sprintln(args...), "\n")) }

// Fatal 输出致命错误日志并退出程序
func Fatal(format string, args ...interface{}) {
	emit(FATAL, fmt.Sprintf(format, args...))
	os.Exit(1)
}

// Fatalln 输出致命错误日志并退出程序（无格式）
func Fatalln(args ...interface{}) {
	emit(FATAL, strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
	os.Exit(1)
}

// dailyFile 按天轮转的日志文件
type dailyFile struct {
	dir  string
	date string
	file *os.File
}

// writeLine 写入一行，日期变化时切换到新文件
// 文件打不开时静默降级为仅控制台输出
func (d *dailyFile) writeLine(t time.Time, line string) {
	day := t.Format("2006-01-02")
	if d.file == nil || d.date != day {
		d.close()
		if err := os.MkdirAll(d.dir, 0755); err != nil {
			return
		}
		name := filepath.Join(d.dir, "swingtrader-"+day+".log")
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return
		}
		d.file = f
		d.date = day
	}
	fmt.Fprintln(d.file, line)
}

func (d *dailyFile) close() {
	if d.file != nil {
		d.file.Close()
		d.file = nil
		d.date = ""
	}
}
