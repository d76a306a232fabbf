// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/fixedpool/fixedpool/cfg"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultLoggerFactory *loggerFactory
	defaultLogger        *slog.Logger
)

type loggerFactory struct {
	// If nil, log to stdout. Otherwise, log to this writer.
	file            io.WriteCloser
	format          string
	level           cfg.LogSeverity
	logRotateConfig cfg.LogRotateLoggingConfig
}

func defaultLogRotateConfig() cfg.LogRotateLoggingConfig {
	return cfg.LogRotateLoggingConfig{
		MaxFileSizeMb:   512,
		BackupFileCount: 10,
		Compress:        true,
	}
}

// init initializes the logger factory to use stdout.
func init() {
	defaultLoggerFactory = &loggerFactory{
		format:          cfg.TextLogFormat,
		level:           cfg.InfoLogSeverity,
		logRotateConfig: defaultLogRotateConfig(),
	}
	defaultLogger = defaultLoggerFactory.newLogger(cfg.InfoLogSeverity)
}

// InitLogFile initializes the default logger from the logging config. With an
// empty file path the logs go to stdout; otherwise they go to the file through
// lumberjack, which rotates it according to c.LogRotate.
func InitLogFile(c cfg.LoggingConfig) error {
	f := &loggerFactory{
		format:          c.Format,
		level:           c.Severity,
		logRotateConfig: c.LogRotate,
	}

	if c.FilePath != "" {
		// Surface permission problems now rather than on the first write.
		fd, err := os.OpenFile(string(c.FilePath), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		fd.Close()

		lj := &lumberjack.Logger{
			Filename:   string(c.FilePath),
			MaxSize:    int(c.LogRotate.MaxFileSizeMb),
			MaxBackups: int(c.LogRotate.BackupFileCount),
			Compress:   c.LogRotate.Compress,
		}
		f.file = lj
		if c.AsyncBufferSize > 0 {
			f.file = NewAsyncLogger(lj, int(c.AsyncBufferSize))
		}
	}

	Close()
	defaultLoggerFactory = f
	defaultLogger = f.newLogger(c.Severity)
	return nil
}

// Close closes the log file when necessary.
func Close() {
	if f := defaultLoggerFactory.file; f != nil {
		f.Close()
		defaultLoggerFactory.file = nil
	}
}

// SetLogFormat updates the log format of the default logger.
func SetLogFormat(format string) {
	defaultLoggerFactory.format = format
	defaultLogger = defaultLoggerFactory.newLogger(defaultLoggerFactory.level)
}

// NewLegacyLogger returns a *log.Logger that writes each line as one record at
// the given level through the default handler. It serves APIs such as
// http.Server.ErrorLog that only accept the standard logger.
func NewLegacyLogger(level slog.Level, prefix string) *log.Logger {
	programLevel := new(slog.LevelVar)
	setLoggingLevel(defaultLoggerFactory.level, programLevel)
	return log.New(&handlerWriter{
		h:     defaultLoggerFactory.handler(programLevel, prefix),
		level: level,
	}, "", 0)
}

// Tracef prints the message with TRACE severity in the specified format.
func Tracef(format string, v ...any) {
	logf(LevelTrace, format, v...)
}

// Debugf prints the message with DEBUG severity in the specified format.
func Debugf(format string, v ...any) {
	logf(LevelDebug, format, v...)
}

// Infof prints the message with INFO severity in the specified format.
func Infof(format string, v ...any) {
	logf(LevelInfo, format, v...)
}

// Warnf prints the message with WARNING severity in the specified format.
func Warnf(format string, v ...any) {
	logf(LevelWarn, format, v...)
}

// Errorf prints the message with ERROR severity in the specified format.
func Errorf(format string, v ...any) {
	logf(LevelError, format, v...)
}

func logf(level slog.Level, format string, v ...any) {
	ctx := context.Background()
	if !defaultLogger.Enabled(ctx, level) {
		return
	}
	defaultLogger.Log(ctx, level, fmt.Sprintf(format, v...))
}

func (f *loggerFactory) newLogger(level cfg.LogSeverity) *slog.Logger {
	programLevel := new(slog.LevelVar)
	setLoggingLevel(level, programLevel)
	return slog.New(f.handler(programLevel, ""))
}

func (f *loggerFactory) handler(levelVar *slog.LevelVar, prefix string) slog.Handler {
	if f.file != nil {
		return f.createJsonOrTextHandler(f.file, levelVar, prefix)
	}
	return f.createJsonOrTextHandler(os.Stdout, levelVar, prefix)
}

func (f *loggerFactory) createJsonOrTextHandler(writer io.Writer, levelVar *slog.LevelVar, prefix string) slog.Handler {
	if f.format == cfg.TextLogFormat {
		return slog.NewTextHandler(writer, getHandlerOptions(levelVar, prefix, f.format))
	}
	return slog.NewJSONHandler(writer, getHandlerOptions(levelVar, prefix, f.format))
}
