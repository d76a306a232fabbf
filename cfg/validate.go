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
	"errors"
	"fmt"
	"math"
)

const maxPortNumber = math.MaxUint16

func isValidPoolConfig(c *PoolConfig) error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be a positive integer, got %d", c.Workers)
	}
	if c.MaxQueueDepth < 0 {
		return fmt.Errorf("max-queue-depth should be 0 (unbounded) or a positive value")
	}
	return nil
}

func isValidLogRotateConfig(config *LogRotateLoggingConfig) error {
	if config.MaxFileSizeMb <= 0 {
		return fmt.Errorf("max-file-size-mb should be atleast 1")
	}
	if config.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (to retain all backup files) or a positive value")
	}
	return nil
}

func isValidLoggingConfig(c *LoggingConfig) error {
	if c.Format != TextLogFormat && c.Format != JSONLogFormat {
		return fmt.Errorf("format must be %q or %q, got %q", TextLogFormat, JSONLogFormat, c.Format)
	}
	if c.AsyncBufferSize < 0 {
		return fmt.Errorf("async-buffer-size can't be negative")
	}
	return isValidLogRotateConfig(&c.LogRotate)
}

func isValidMetricsConfig(c *MetricsConfig) error {
	if c.PrometheusPort < 0 || c.PrometheusPort > maxPortNumber {
		return fmt.Errorf("prometheus-port must be between 0 and %d", maxPortNumber)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers should be atleast 1")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer-size should be atleast 1")
	}
	return nil
}

func isValidMonitoringConfig(c *MonitoringConfig) error {
	if c.TracingSamplingRatio < 0 || c.TracingSamplingRatio > 1 {
		return fmt.Errorf("tracing-sampling-ratio must be in the range [0, 1]")
	}
	return nil
}

func isValidLoadConfig(c *LoadConfig) error {
	var err error
	if c.Tasks < 0 {
		err = errors.Join(err, fmt.Errorf("tasks can't be negative"))
	}
	if c.Producers <= 0 {
		err = errors.Join(err, fmt.Errorf("producers should be atleast 1"))
	}
	if c.SubmitRate < 0 {
		err = errors.Join(err, fmt.Errorf("submit-rate can't be negative"))
	}
	if c.TaskDuration < 0 {
		err = errors.Join(err, fmt.Errorf("task-duration can't be negative"))
	}
	if c.DrainTimeout < 0 {
		err = errors.Join(err, fmt.Errorf("drain-timeout can't be negative"))
	}
	if c.PanicEvery < 0 {
		err = errors.Join(err, fmt.Errorf("panic-every can't be negative"))
	}
	return err
}

// ValidateConfig returns a non-nil error if the config is invalid.
func ValidateConfig(config *Config) error {
	var err error

	if err = isValidPoolConfig(&config.Pool); err != nil {
		return fmt.Errorf("error parsing pool config: %w", err)
	}

	if err = isValidLoggingConfig(&config.Logging); err != nil {
		return fmt.Errorf("error parsing logging config: %w", err)
	}

	if err = isValidMetricsConfig(&config.Metrics); err != nil {
		return fmt.Errorf("error parsing metrics config: %w", err)
	}

	if err = isValidMonitoringConfig(&config.Monitoring); err != nil {
		return fmt.Errorf("error parsing monitoring config: %w", err)
	}

	if err = isValidLoadConfig(&config.Load); err != nil {
		return fmt.Errorf("error parsing load config: %w", err)
	}

	return nil
}
