package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"bankcards/config"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger     = newDefaultLogger()
	loggerMu   sync.RWMutex
	fileWriter *lumberjack.Logger
)

func newDefaultLogger() *log.Logger {
	l := log.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	l.SetLevel(log.InfoLevel)
	return l
}

// InitLogger настраивает уровень и вывод логов: stdout и файл с ротацией
func InitLogger(cfg config.LogConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var writers []io.Writer
	if cfg.Stdout {
		writers = append(writers, os.Stdout)
	}

	var rotating *lumberjack.Logger
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		rotating = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "bankcards.log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, rotating)
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	l := log.New()
	l.SetOutput(io.MultiWriter(writers...))
	l.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	l.SetLevel(level)

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if fileWriter != nil {
		_ = fileWriter.Close()
	}
	logger = l
	fileWriter = rotating
	return nil
}

// CloseLogger закрывает файл логов
func CloseLogger() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}

// Logger возвращает текущий логгер
func Logger() *log.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

func callerEntry() *log.Entry {
	_, file, line, _ := runtime.Caller(2)
	return Logger().WithField("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
}

// LogInfo логирует информационное сообщение
func LogInfo(format string, v ...interface{}) {
	callerEntry().Infof(format, v...)
}

// LogError логирует сообщение об ошибке
func LogError(format string, v ...interface{}) {
	callerEntry().Errorf(format, v...)
}

// LogDebug логирует отладочное сообщение
func LogDebug(format string, v ...interface{}) {
	callerEntry().Debugf(format, v...)
}

// LogOperation логирует операцию с длительностью выполнения
func LogOperation(operation string, startTime time.Time, err error) {
	entry := callerEntry().WithFields(log.Fields{
		"operation": operation,
		"duration":  time.Since(startTime).String(),
	})
	if err != nil {
		entry.WithError(err).Warn("operation failed")
		return
	}
	entry.Info("operation completed")
}
