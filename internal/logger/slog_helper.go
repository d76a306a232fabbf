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
	"log/slog"
	"time"

	"github.com/fixedpool/fixedpool/cfg"
)

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	// LevelOff is above every level that is ever logged.
	LevelOff = slog.Level(12)

	textTimeLayout = "02/01/2006 03:04:05.000000"
)

func levelName(level slog.Level) string {
	switch {
	case level < LevelDebug:
		return string(cfg.TraceLogSeverity)
	case level < LevelInfo:
		return string(cfg.DebugLogSeverity)
	case level < LevelWarn:
		return string(cfg.InfoLogSeverity)
	case level < LevelError:
		return string(cfg.WarningLogSeverity)
	default:
		return string(cfg.ErrorLogSeverity)
	}
}

func getHandlerOptions(levelVar *slog.LevelVar, prefix string, format string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: levelVar,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) != 0 {
				return a
			}
			switch a.Key {
			case slog.LevelKey:
				a.Key = "severity"
				a.Value = slog.StringValue(levelName(a.Value.Any().(slog.Level)))
			case slog.TimeKey:
				t := a.Value.Time()
				if format == cfg.TextLogFormat {
					a.Value = slog.StringValue(t.Format(textTimeLayout))
				} else {
					a.Key = "timestamp"
					a.Value = slog.GroupValue(
						slog.Int64("seconds", t.Unix()),
						slog.Int64("nanos", int64(t.Nanosecond())),
					)
				}
			case slog.MessageKey:
				a.Key = "message"
				a.Value = slog.StringValue(prefix + a.Value.String())
			}
			return a
		},
	}
}

func setLoggingLevel(level cfg.LogSeverity, programLevel *slog.LevelVar) {
	switch level {
	case cfg.TraceLogSeverity:
		programLevel.Set(LevelTrace)
	case cfg.DebugLogSeverity:
		programLevel.Set(LevelDebug)
	case cfg.InfoLogSeverity:
		programLevel.Set(LevelInfo)
	case cfg.WarningLogSeverity:
		programLevel.Set(LevelWarn)
	case cfg.ErrorLogSeverity:
		programLevel.Set(LevelError)
	case cfg.OffLogSeverity:
		programLevel.Set(LevelOff)
	}
}

// handlerWriter adapts a slog.Handler to an io.Writer so that a log.Logger
// can write through it, one record per line.
type handlerWriter struct {
	h     slog.Handler
	level slog.Level
}

func (w *handlerWriter) Write(buf []byte) (int, error) {
	if !w.h.Enabled(context.Background(), w.level) {
		return len(buf), nil
	}

	// Remove final newline.
	origLen := len(buf)
	if len(buf) > 0 && buf[len(buf)-1] == '\n' {
		buf = buf[:len(buf)-1]
	}
	r := slog.NewRecord(time.Now(), w.level, string(buf), 0)
	return origLen, w.h.Handle(context.Background(), r)
}
