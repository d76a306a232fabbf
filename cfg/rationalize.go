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

// isSet interface is abstraction over the IsSet() method of viper, specially
// added to keep rationalize method simple.
type isSet interface {
	IsSet(string) bool
}

func resolveLoggingConfig(v isSet, c *Config) {
	// Mutex debugging logs at TRACE; raise verbosity unless the user picked a
	// severity explicitly.
	if c.Debug.LogMutex && !v.IsSet(LoggingSeverityConfigKey) {
		c.Logging.Severity = TraceLogSeverity
	}
}

func resolveLoadConfig(v isSet, c *LoadConfig) {
	// Producers beyond the number of tasks would never submit anything.
	if c.Tasks > 0 && int64(c.Producers) > c.Tasks {
		c.Producers = int(c.Tasks)
	}
	if c.Tasks == 0 && !v.IsSet(LoadProducersConfigKey) {
		c.Producers = 1
	}
}

// Rationalize updates the config fields based on the values of other fields.
func Rationalize(v isSet, c *Config) error {
	resolveLoggingConfig(v, c)
	resolveLoadConfig(v, &c.Load)
	return nil
}
