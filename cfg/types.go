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

package cfg

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fixedpool/fixedpool/internal/util"
)

// LogSeverity represents the logging severity and can accept the following values
// "TRACE", "DEBUG", "INFO", "WARNING", "ERROR", "OFF"
type LogSeverity string

// Constants for all supported log severities.
const (
	TraceLogSeverity   LogSeverity = "TRACE"
	DebugLogSeverity   LogSeverity = "DEBUG"
	InfoLogSeverity    LogSeverity = "INFO"
	WarningLogSeverity LogSeverity = "WARNING"
	ErrorLogSeverity   LogSeverity = "ERROR"
	OffLogSeverity     LogSeverity = "OFF"
)

// severityRanking maps each level to an integer for validation and comparison.
var severityRanking = map[LogSeverity]int{
	TraceLogSeverity:   0,
	DebugLogSeverity:   1,
	InfoLogSeverity:    2,
	WarningLogSeverity: 3,
	ErrorLogSeverity:   4,
	OffLogSeverity:     5,
}

func (l *LogSeverity) UnmarshalText(text []byte) error {
	level := LogSeverity(strings.ToUpper(string(text)))
	if _, ok := severityRanking[level]; !ok {
		return fmt.Errorf("invalid log severity level: %s. Must be one of [TRACE, DEBUG, INFO, WARNING, ERROR, OFF]", text)
	}
	*l = level
	return nil
}

// Rank returns the integer representation of the severity rank.
// Returns -1 if the severity is unknown.
func (l LogSeverity) Rank() int {
	if rank, ok := severityRanking[l]; ok {
		return rank
	}
	return -1
}

// PanicPolicy selects what a worker does after a task panics.
type PanicPolicy string

const (
	PanicPolicyResume     PanicPolicy = "resume"
	PanicPolicyExitWorker PanicPolicy = "exit-worker"
)

func (p *PanicPolicy) UnmarshalText(text []byte) error {
	policy := PanicPolicy(strings.ToLower(string(text)))
	v := []PanicPolicy{PanicPolicyResume, PanicPolicyExitWorker}
	if !slices.Contains(v, policy) {
		return fmt.Errorf("invalid panic policy: %s. It can only accept values in the list: %v", text, v)
	}
	*p = policy
	return nil
}

// TracingMode selects the trace exporter. The empty mode disables tracing.
type TracingMode string

const (
	TracingModeNone   TracingMode = ""
	TracingModeStdout TracingMode = "stdout"
)

func (m *TracingMode) UnmarshalText(text []byte) error {
	mode := TracingMode(strings.ToLower(strings.TrimSpace(string(text))))
	if mode != TracingModeNone && mode != TracingModeStdout {
		return fmt.Errorf("invalid tracing mode: %s. Must be empty or %q", text, TracingModeStdout)
	}
	*m = mode
	return nil
}

// ResolvedPath represents a file-path which is an absolute path and is resolved
// based on the value of the FIXEDPOOL_PARENT_PROCESS_DIR env var.
type ResolvedPath string

func (p *ResolvedPath) UnmarshalText(text []byte) error {
	path, err := util.GetResolvedPath(string(text))
	if err != nil {
		return err
	}
	*p = ResolvedPath(path)
	return nil
}
