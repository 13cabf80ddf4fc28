// internal/logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Logger configuration
type Config struct {
	LogsDirectory string
	LogFileFormat string // must contain one %s for the date
	TimeZone      string
	Level         string // INFO, WARN or ERROR
}

var levelRank = map[string]int32{
	"INFO":  0,
	"WARN":  1,
	"ERROR": 2,
	"FATAL": 3,
}

var (
	initialized int32 // 0 = not initialized, 1 = initialized
	minLevel    int32
	logger      *log.Logger
	logFile     *os.File
	timeZone    = time.Local
	logFilePath string
	mu          sync.Mutex // protects setup and teardown
)

// SetupLogger initializes the logger with file and console output.
func SetupLogger(config Config) error {
	mu.Lock()
	defer mu.Unlock()

	if atomic.LoadInt32(&initialized) == 1 {
		return fmt.Errorf("logger already initialized")
	}

	if config.TimeZone == "" {
		config.TimeZone = "Europe/Stockholm"
	}
	loc, err := time.LoadLocation(config.TimeZone)
	if err != nil {
		return fmt.Errorf("failed to load time zone %q: %w", config.TimeZone, err)
	}
	timeZone = loc

	if rank, ok := levelRank[strings.ToUpper(config.Level)]; ok {
		atomic.StoreInt32(&minLevel, rank)
	}

	if err := os.MkdirAll(config.LogsDirectory, 0775); err != nil {
		return fmt.Errorf("failed to create logs directory %q: %w", config.LogsDirectory, err)
	}

	logFileName := fmt.Sprintf(config.LogFileFormat, time.Now().In(loc).Format("2006-01-02"))
	if filepath.IsAbs(logFileName) {
		logFilePath = logFileName
	} else {
		logFilePath = filepath.Join(config.LogsDirectory, logFileName)
	}

	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0664)
	if err != nil {
		return fmt.Errorf("failed to open log file %q: %w", logFilePath, err)
	}
	logFile = f

	setOutput(io.MultiWriter(os.Stdout, f))
	LogInfo("Logger initialized, writing to %s", logFilePath)
	return nil
}

// SetOutput routes log lines to w only. Tests use it to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	setOutput(w)
}

func setOutput(w io.Writer) {
	logger = log.New(w, "", 0)
	atomic.StoreInt32(&initialized, 1)
}

// Close flushes and releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	atomic.StoreInt32(&initialized, 0)
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func GetLogFilePath() string {
	return logFilePath
}

func IsInitialized() bool {
	return atomic.LoadInt32(&initialized) == 1
}

func LogMessage(level string, message string, v ...interface{}) {
	if levelRank[level] < atomic.LoadInt32(&minLevel) {
		return
	}

	formatted := fmt.Sprintf(message, v...)
	if !IsInitialized() {
		log.Printf("[%s] %s", level, formatted)
		return
	}

	_, file, line, _ := runtime.Caller(2)
	timestamp := time.Now().In(timeZone).Format("2006-01-02 15:04:05 MST")
	logger.Printf("[%s] %s %s:%d - %s", level, timestamp, filepath.Base(file), line, formatted)
}

func LogInfo(message string, v ...interface{})  { LogMessage("INFO", message, v...) }
func LogWarn(message string, v ...interface{})  { LogMessage("WARN", message, v...) }
func LogError(message string, v ...interface{}) { LogMessage("ERROR", message, v...) }
func LogFatal(message string, v ...interface{}) {
	LogMessage("FATAL", message, v...)
	os.Exit(1)
}

func LogHTTPRequest(r *http.Request) {
	LogInfo("HTTP %s %s from %s", r.Method, r.URL.Path, GetClientIP(r))
}

func LogHTTPError(r *http.Request, status int, err error) {
	LogError("HTTP %d error for %s %s from %s: %v", status, r.Method, r.URL.Path, GetClientIP(r), err)
}

func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
