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
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Debug DebugConfig `yaml:"debug"`

	Load LoadConfig `yaml:"load"`

	Logging LoggingConfig `yaml:"logging"`

	Metrics MetricsConfig `yaml:"metrics"`

	Monitoring MonitoringConfig `yaml:"monitoring"`

	Pool PoolConfig `yaml:"pool"`
}

type DebugConfig struct {
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation"`

	LogMutex bool `yaml:"log-mutex"`
}

type LoadConfig struct {
	DrainTimeout time.Duration `yaml:"drain-timeout"`

	PanicEvery int64 `yaml:"panic-every"`

	Producers int `yaml:"producers"`

	SubmitRate float64 `yaml:"submit-rate"`

	TaskDuration time.Duration `yaml:"task-duration"`

	Tasks int64 `yaml:"tasks"`

	WaitForDrain bool `yaml:"wait-for-drain"`
}

type LogRotateLoggingConfig struct {
	BackupFileCount int64 `yaml:"backup-file-count"`

	Compress bool `yaml:"compress"`

	MaxFileSizeMb int64 `yaml:"max-file-size-mb"`
}

type LoggingConfig struct {
	AsyncBufferSize int64 `yaml:"async-buffer-size"`

	FilePath ResolvedPath `yaml:"file-path"`

	Format string `yaml:"format"`

	LogRotate LogRotateLoggingConfig `yaml:"log-rotate"`

	Severity LogSeverity `yaml:"severity"`
}

type MetricsConfig struct {
	BufferSize int64 `yaml:"buffer-size"`

	PrometheusPort int64 `yaml:"prometheus-port"`

	Workers int64 `yaml:"workers"`
}

type MonitoringConfig struct {
	TracingMode TracingMode `yaml:"tracing-mode"`

	TracingSamplingRatio float64 `yaml:"tracing-sampling-ratio"`
}

type PoolConfig struct {
	MaxQueueDepth int64 `yaml:"max-queue-depth"`

	Name string `yaml:"name"`

	PanicPolicy PanicPolicy `yaml:"panic-policy"`

	Workers int64 `yaml:"workers"`
}

type flagBinding struct {
	name, key string
}

// BuildFlagSet registers every fixedpool flag on flagSet.
func BuildFlagSet(flagSet *pflag.FlagSet) {
	flagSet.BoolP("debug_invariants", "", false, "Exit when internal invariants are violated.")

	flagSet.BoolP("debug_mutex", "", false, "Print debug messages when a mutex is held too long.")

	flagSet.DurationP("drain-timeout", "", 30*time.Second, "Upper bound on the time spent waiting for queued tasks to finish when --wait-for-drain is set.")

	flagSet.StringP("log-file", "", "", "The file for storing logs. When not provided, logs are printed to stdout.")

	flagSet.StringP("log-format", "", "json", "The format of the log file: 'text' or 'json'.")

	flagSet.IntP("log-async-buffer-size", "", 0, "Number of log lines buffered before the file writer drops them. 0 writes synchronously.")

	flagSet.IntP("log-rotate-backup-file-count", "", 10, "The maximum number of backup log files to retain after they have been rotated. 0 retains all backups.")

	flagSet.BoolP("log-rotate-compress", "", true, "Controls whether the rotated log files should be compressed using gzip.")

	flagSet.IntP("log-rotate-max-file-size-mb", "", 512, "The maximum size in megabytes that a log file can reach before it is rotated.")

	flagSet.StringP("log-severity", "", "info", "Specifies the logging severity expressed as one of [trace, debug, info, warning, error, off]")

	flagSet.IntP("max-queue-depth", "", 0, "Maximum number of queued tasks before Submit fails. 0 means unbounded.")

	flagSet.IntP("metrics-buffer-size", "", 256, "Number of histogram samples buffered before metric recording blocks.")

	flagSet.IntP("metrics-workers", "", 3, "Number of goroutines recording histogram samples.")

	flagSet.StringP("name", "", "", "Name of the pool used in logs, metrics and traces. A random name is used when empty.")

	flagSet.StringP("panic-policy", "", string(PanicPolicyResume), "What a worker does after a task panics: 'resume' or 'exit-worker'.")

	flagSet.Int64P("panic-every", "", 0, "Make every n-th synthetic task panic. 0 disables panics.")

	flagSet.IntP("producers", "", 4, "Number of goroutines submitting synthetic tasks.")

	flagSet.IntP("prometheus-port", "", 0, "Expose Prometheus metrics endpoint on this port and a path of /metrics. 0 disables the endpoint.")

	flagSet.Float64P("submit-rate", "", 0, "Maximum submissions per second across all producers. 0 means unlimited.")

	flagSet.DurationP("task-duration", "", 10*time.Millisecond, "Time each synthetic task sleeps.")

	flagSet.Int64P("tasks", "", 1000, "Total number of synthetic tasks to submit. 0 submits until interrupted.")

	flagSet.StringP("tracing-mode", "", "", "Trace exporter to use: '' (disabled) or 'stdout'.")

	flagSet.Float64P("tracing-sampling-ratio", "", 1, "Fraction of task spans sampled when tracing is enabled.")

	flagSet.BoolP("wait-for-drain", "", false, "Block after closing the pool until every queued task has finished.")

	flagSet.IntP("workers", "w", DefaultWorkers, "Number of worker goroutines in the pool.")
}

var flagBindings = []flagBinding{
	{"debug_invariants", DebugExitOnInvariantViolationConfigKey},
	{"debug_mutex", DebugLogMutexConfigKey},
	{"drain-timeout", "load.drain-timeout"},
	{"log-file", "logging.file-path"},
	{"log-format", "logging.format"},
	{"log-async-buffer-size", "logging.async-buffer-size"},
	{"log-rotate-backup-file-count", "logging.log-rotate.backup-file-count"},
	{"log-rotate-compress", "logging.log-rotate.compress"},
	{"log-rotate-max-file-size-mb", "logging.log-rotate.max-file-size-mb"},
	{"log-severity", LoggingSeverityConfigKey},
	{"max-queue-depth", "pool.max-queue-depth"},
	{"metrics-buffer-size", "metrics.buffer-size"},
	{"metrics-workers", "metrics.workers"},
	{"name", "pool.name"},
	{"panic-policy", "pool.panic-policy"},
	{"panic-every", "load.panic-every"},
	{"producers", LoadProducersConfigKey},
	{"prometheus-port", "metrics.prometheus-port"},
	{"submit-rate", "load.submit-rate"},
	{"task-duration", "load.task-duration"},
	{"tasks", "load.tasks"},
	{"tracing-mode", "monitoring.tracing-mode"},
	{"tracing-sampling-ratio", "monitoring.tracing-sampling-ratio"},
	{"wait-for-drain", "load.wait-for-drain"},
	{"workers", "pool.workers"},
}

// BindFlags registers the fixedpool flags on flagSet and binds each of them to
// its config key in v.
func BindFlags(v *viper.Viper, flagSet *pflag.FlagSet) error {
	BuildFlagSet(flagSet)
	for _, b := range flagBindings {
		if err := v.BindPFlag(b.key, flagSet.Lookup(b.name)); err != nil {
			return err
		}
	}
	return nil
}
