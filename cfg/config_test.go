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
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getConfigObject(t *testing.T, args []string) (*Config, error) {
	t.Helper()
	v := viper.New()
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(v, flagSet))
	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	var c Config
	err := v.Unmarshal(&c, viper.DecodeHook(DecodeHook()), func(decoderConfig *mapstructure.DecoderConfig) {
		decoderConfig.TagName = "yaml"
	})
	return &c, err
}

func TestDefaultConfig(t *testing.T) {
	c, err := getConfigObject(t, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(DefaultWorkers), c.Pool.Workers)
	assert.Equal(t, int64(0), c.Pool.MaxQueueDepth)
	assert.Equal(t, PanicPolicyResume, c.Pool.PanicPolicy)
	assert.Equal(t, "", c.Pool.Name)
	assert.Equal(t, InfoLogSeverity, c.Logging.Severity)
	assert.Equal(t, JSONLogFormat, c.Logging.Format)
	assert.Equal(t, ResolvedPath(""), c.Logging.FilePath)
	assert.Equal(t, int64(512), c.Logging.LogRotate.MaxFileSizeMb)
	assert.Equal(t, int64(10), c.Logging.LogRotate.BackupFileCount)
	assert.True(t, c.Logging.LogRotate.Compress)
	assert.Equal(t, int64(0), c.Metrics.PrometheusPort)
	assert.Equal(t, int64(3), c.Metrics.Workers)
	assert.Equal(t, int64(256), c.Metrics.BufferSize)
	assert.Equal(t, TracingModeNone, c.Monitoring.TracingMode)
	assert.Equal(t, int64(1000), c.Load.Tasks)
	assert.Equal(t, 4, c.Load.Producers)
	assert.Equal(t, 10*time.Millisecond, c.Load.TaskDuration)
	assert.Equal(t, 30*time.Second, c.Load.DrainTimeout)
	assert.False(t, c.Load.WaitForDrain)
	assert.False(t, c.Debug.LogMutex)
	assert.NoError(t, ValidateConfig(c))
}

func TestFlagsOverrideDefaults(t *testing.T) {
	c, err := getConfigObject(t, []string{
		"-w", "2",
		"--max-queue-depth=100",
		"--panic-policy=EXIT-WORKER",
		"--name=ingest",
		"--log-severity=warning",
		"--log-format=text",
		"--tracing-mode=stdout",
		"--task-duration=1s",
		"--submit-rate=12.5",
		"--wait-for-drain",
		"--debug_mutex",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Pool.Workers)
	assert.Equal(t, int64(100), c.Pool.MaxQueueDepth)
	assert.Equal(t, PanicPolicyExitWorker, c.Pool.PanicPolicy)
	assert.Equal(t, "ingest", c.Pool.Name)
	assert.Equal(t, WarningLogSeverity, c.Logging.Severity)
	assert.Equal(t, TextLogFormat, c.Logging.Format)
	assert.Equal(t, TracingModeStdout, c.Monitoring.TracingMode)
	assert.Equal(t, time.Second, c.Load.TaskDuration)
	assert.Equal(t, 12.5, c.Load.SubmitRate)
	assert.True(t, c.Load.WaitForDrain)
	assert.True(t, c.Debug.LogMutex)
}

func TestInvalidFlagValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "panic_policy", args: []string{"--panic-policy=restart"}},
		{name: "log_severity", args: []string{"--log-severity=loud"}},
		{name: "tracing_mode", args: []string{"--tracing-mode=gcp"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := getConfigObject(t, tc.args)

			assert.Error(t, err)
		})
	}
}
