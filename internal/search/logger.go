package search

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Diagnostics go to a rotating file under the temp dir, never to the
// caller's terminal: the CLI owns stdout and results must stay parseable.

const (
	maxLogSize      = 10 * 1024 * 1024
	logWriterBuffer = 32 * 1024
	maxLogRotations = 3
)

type logger struct {
	mu     sync.Mutex
	writer *bufio.Writer
	file   *os.File

	// disabled is read by the drain goroutine and by enqueue callers
	// without holding mu, so it is atomic.
	disabled atomic.Bool
}

var (
	globalLogger *logger
	loggerOnce   sync.Once
	logQueue     = make(chan string, 1000)
)

func init() {
	go drainLogs()
}

// drainLogs writes queued messages asynchronously so matcher goroutines
// never block on disk for a log line.
func drainLogs() {
	for msg := range logQueue {
		l := getLogger()
		if l == nil || l.disabled.Load() {
			continue
		}
		l.mu.Lock()
		if l.writer != nil {
			l.writer.WriteString(msg)
			if len(logQueue) == 0 {
				l.writer.Flush()
			}
		}
		l.mu.Unlock()
	}
}

func getLogger() *logger {
	loggerOnce.Do(initLogger)
	return globalLogger
}

func initLogger() {
	globalLogger = &logger{}
	globalLogger.disabled.Store(true)

	logDir := filepath.Join(os.TempDir(), "hybridsearch-logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return
	}
	logPath := filepath.Join(logDir, "search.log")
	rotateLogFile(logPath)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}

	writer := bufio.NewWriterSize(file, logWriterBuffer)
	fmt.Fprintf(writer, "\n=== log started %s ===\n", time.Now().Format("2006-01-02 15:04:05"))
	writer.Flush()

	globalLogger = &logger{writer: writer, file: file}
}

func rotateLogFile(logPath string) {
	fi, err := os.Stat(logPath)
	if err != nil || fi.Size() <= maxLogSize {
		return
	}
	for i := maxLogRotations - 1; i > 0; i-- {
		os.Rename(fmt.Sprintf("%s.%d", logPath, i), fmt.Sprintf("%s.%d", logPath, i+1))
	}
	os.Rename(logPath, logPath+".1")
}

func enqueue(level, format string, args ...interface{}) {
	l := getLogger()
	if l == nil || l.disabled.Load() {
		return
	}
	msg := fmt.Sprintf("["+level+"] "+format+"\n", args...)
	select {
	case logQueue <- msg:
	default:
		// queue full, drop the line
	}
}

func logDebug(format string, args ...interface{}) { enqueue("DEBUG", format, args...) }
func logInfo(format string, args ...interface{})  { enqueue("INFO", format, args...) }
func logWarn(format string, args ...interface{})  { enqueue("WARN", format, args...) }
func logError(format string, args ...interface{}) { enqueue("ERROR", format, args...) }

// CloseLogger flushes and closes the log file. Callers invoke it once on
// shutdown.
func CloseLogger() {
	l := getLogger()
	if l == nil {
		return
	}
	l.disabled.Store(true)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer != nil {
		l.writer.Flush()
	}
	if l.file != nil {
		l.file.Sync()
		l.file.Close()
		l.file = nil
	}
}
