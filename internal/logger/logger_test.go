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
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/fixedpool/fixedpool/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	textTraceString   = "^time=\"[a-zA-Z0-9/:. ]{26}\" severity=TRACE message=\"TestLogs: www.traceExample.com\""
	textDebugString   = "^time=\"[a-zA-Z0-9/:. ]{26}\" severity=DEBUG message=\"TestLogs: www.debugExample.com\""
	textInfoString    = "^time=\"[a-zA-Z0-9/:. ]{26}\" severity=INFO message=\"TestLogs: www.infoExample.com\""
	textWarningString = "^time=\"[a-zA-Z0-9/:. ]{26}\" severity=WARNING message=\"TestLogs: www.warningExample.com\""
	textErrorString   = "^time=\"[a-zA-Z0-9/:. ]{26}\" severity=ERROR message=\"TestLogs: www.errorExample.com\""

	jsonTraceString   = "^{\"timestamp\":{\"seconds\":\\d{10},\"nanos\":\\d{0,9}},\"severity\":\"TRACE\",\"message\":\"TestLogs: www.traceExample.com\"}"
	jsonDebugString   = "^{\"timestamp\":{\"seconds\":\\d{10},\"nanos\":\\d{0,9}},\"severity\":\"DEBUG\",\"message\":\"TestLogs: www.debugExample.com\"}"
	jsonInfoString    = "^{\"timestamp\":{\"seconds\":\\d{10},\"nanos\":\\d{0,9}},\"severity\":\"INFO\",\"message\":\"TestLogs: www.infoExample.com\"}"
	jsonWarningString = "^{\"timestamp\":{\"seconds\":\\d{10},\"nanos\":\\d{0,9}},\"severity\":\"WARNING\",\"message\":\"TestLogs: www.warningExample.com\"}"
	jsonErrorString   = "^{\"timestamp\":{\"seconds\":\\d{10},\"nanos\":\\d{0,9}},\"severity\":\"ERROR\",\"message\":\"TestLogs: www.errorExample.com\"}"
)

type LoggerTest struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func (t *LoggerTest) TearDownTest() {
	Close()
	defaultLoggerFactory = &loggerFactory{
		format:          cfg.TextLogFormat,
		level:           cfg.InfoLogSeverity,
		logRotateConfig: defaultLogRotateConfig(),
	}
	defaultLogger = defaultLoggerFactory.newLogger(cfg.InfoLogSeverity)
}

// //////////////////////////////////////////////////////////////////////
// Boilerplate
// //////////////////////////////////////////////////////////////////////

func redirectLogsToGivenBuffer(buf *bytes.Buffer, level cfg.LogSeverity) {
	var programLevel = new(slog.LevelVar)
	defaultLogger = slog.New(
		defaultLoggerFactory.createJsonOrTextHandler(buf, programLevel, "TestLogs: "),
	)
	setLoggingLevel(level, programLevel)
}

// fetchLogOutputForSpecifiedSeverityLevel takes configured severity and
// functions that write logs as parameter and returns string array containing
// output from each function call.
func fetchLogOutputForSpecifiedSeverityLevel(level cfg.LogSeverity, functions []func()) []string {
	var buf bytes.Buffer
	redirectLogsToGivenBuffer(&buf, level)

	var output []string
	for _, f := range functions {
		f()
		output = append(output, buf.String())
		buf.Reset()
	}
	return output
}

func getTestLoggingFunctions() []func() {
	return []func(){
		func() {
			Tracef("www.traceExample.com")
		},
		func() {
			Debugf("www.debugExample.com")
		},
		func() {
			Infof("www.infoExample.com")
		},
		func() {
			Warnf("www.warningExample.com")
		},
		func() {
			Errorf("www.errorExample.com")
		},
	}
}

func validateOutput(t *testing.T, expected []string, output []string) {
	require.Len(t, output, len(expected))
	for i := range output {
		if expected[i] == "" {
			assert.Equal(t, expected[i], output[i])
		} else {
			assert.Regexp(t, regexp.MustCompile(expected[i]), output[i])
		}
	}
}

func validateLogOutputAtSpecifiedFormatAndSeverity(t *testing.T, format string, level cfg.LogSeverity, expectedOutput []string) {
	defaultLoggerFactory.format = format

	output := fetchLogOutputForSpecifiedSeverityLevel(level, getTestLoggingFunctions())

	validateOutput(t, expectedOutput, output)
}

// //////////////////////////////////////////////////////////////////////
// Tests
// //////////////////////////////////////////////////////////////////////

func (t *LoggerTest) TestTextFormatLogs_LogLevelOFF() {
	var expected = []string{
		"", "", "", "", "",
	}

	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "text", cfg.OffLogSeverity, expected)
}

func (t *LoggerTest) TestTextFormatLogs_LogLevelERROR() {
	var expected = []string{
		"", "", "", "", textErrorString,
	}

	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "text", cfg.ErrorLogSeverity, expected)
}

func (t *LoggerTest) TestTextFormatLogs_LogLevelWARNING() {
	var expected = []string{
		"", "", "", textWarningString, textErrorString,
	}

	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "text", cfg.WarningLogSeverity, expected)
}

func (t *LoggerTest) TestTextFormatLogs_LogLevelINFO() {
	var expected = []string{
		"", "", textInfoString, textWarningString, textErrorString,
	}

	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "text", cfg.InfoLogSeverity, expected)
}

func (t *LoggerTest) TestTextFormatLogs_LogLevelTRACE() {
	var expected = []string{
		textTraceString, textDebugString, textInfoString, textWarningString, textErrorString,
	}

	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "text", cfg.TraceLogSeverity, expected)
}

func (t *LoggerTest) TestJSONFormatLogs_LogLevelOFF() {
	var expected = []string{
		"", "", "", "", "",
	}

	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "json", cfg.OffLogSeverity, expected)
}

func (t *LoggerTest) TestJSONFormatLogs_LogLevelWARNING() {
	var expected = []string{
		"", "", "", jsonWarningString, jsonErrorString,
	}

	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "json", cfg.WarningLogSeverity, expected)
}

func (t *LoggerTest) TestJSONFormatLogs_LogLevelDEBUG() {
	var expected = []string{
		"", jsonDebugString, jsonInfoString, jsonWarningString, jsonErrorString,
	}

	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "json", cfg.DebugLogSeverity, expected)
}

func (t *LoggerTest) TestJSONFormatLogs_LogLevelTRACE() {
	var expected = []string{
		jsonTraceString, jsonDebugString, jsonInfoString, jsonWarningString, jsonErrorString,
	}

	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "json", cfg.TraceLogSeverity, expected)
}

func (t *LoggerTest) TestSetLoggingLevel() {
	testData := []struct {
		inputLevel           cfg.LogSeverity
		expectedProgramLevel slog.Level
	}{
		{cfg.TraceLogSeverity, LevelTrace},
		{cfg.DebugLogSeverity, LevelDebug},
		{cfg.InfoLogSeverity, LevelInfo},
		{cfg.WarningLogSeverity, LevelWarn},
		{cfg.ErrorLogSeverity, LevelError},
		{cfg.OffLogSeverity, LevelOff},
	}

	for _, test := range testData {
		programLevel := new(slog.LevelVar)

		setLoggingLevel(test.inputLevel, programLevel)

		assert.Equal(t.T(), test.expectedProgramLevel, programLevel.Level())
	}
}

func (t *LoggerTest) TestInitLogFile() {
	filePath := filepath.Join(t.T().TempDir(), "log.txt")
	newLogConfig := cfg.LoggingConfig{
		FilePath: cfg.ResolvedPath(filePath),
		Severity: cfg.DebugLogSeverity,
		Format:   cfg.TextLogFormat,
		LogRotate: cfg.LogRotateLoggingConfig{
			MaxFileSizeMb:   100,
			BackupFileCount: 2,
			Compress:        true,
		},
	}

	err := InitLogFile(newLogConfig)

	require.NoError(t.T(), err)
	assert.NotNil(t.T(), defaultLoggerFactory.file)
	assert.Equal(t.T(), cfg.TextLogFormat, defaultLoggerFactory.format)
	assert.Equal(t.T(), cfg.DebugLogSeverity, defaultLoggerFactory.level)
	assert.Equal(t.T(), int64(100), defaultLoggerFactory.logRotateConfig.MaxFileSizeMb)
	assert.Equal(t.T(), int64(2), defaultLoggerFactory.logRotateConfig.BackupFileCount)
	assert.True(t.T(), defaultLoggerFactory.logRotateConfig.Compress)
	Debugf("written to %s", "file")
	Tracef("filtered")
	Close()
	content, err := os.ReadFile(filePath)
	require.NoError(t.T(), err)
	assert.Contains(t.T(), string(content), "severity=DEBUG message=\"written to file\"")
	assert.NotContains(t.T(), string(content), "filtered")
}

func (t *LoggerTest) TestInitLogFileWithAsyncBuffer() {
	filePath := filepath.Join(t.T().TempDir(), "async.log")

	err := InitLogFile(cfg.LoggingConfig{
		FilePath:        cfg.ResolvedPath(filePath),
		Severity:        cfg.InfoLogSeverity,
		Format:          cfg.JSONLogFormat,
		AsyncBufferSize: 16,
		LogRotate:       defaultLogRotateConfig(),
	})

	require.NoError(t.T(), err)
	assert.IsType(t.T(), &AsyncLogger{}, defaultLoggerFactory.file)
	Infof("async %d", 1)
	Close()
	content, err := os.ReadFile(filePath)
	require.NoError(t.T(), err)
	assert.Contains(t.T(), string(content), `"message":"async 1"`)
}

func (t *LoggerTest) TestInitLogFileFailsForUnwritablePath() {
	err := InitLogFile(cfg.LoggingConfig{
		FilePath: cfg.ResolvedPath(filepath.Join(t.T().TempDir(), "missing", "dir", "log.txt")),
		Severity: cfg.InfoLogSeverity,
		Format:   cfg.TextLogFormat,
	})

	assert.ErrorContains(t.T(), err, "open log file")
}

func (t *LoggerTest) TestSetLogFormat() {
	testData := []struct {
		format         string
		expectedOutput string
	}{
		{
			"text",
			textInfoString,
		},
		{
			"json",
			jsonInfoString,
		},
		{
			"",
			jsonInfoString,
		},
	}

	for _, test := range testData {
		SetLogFormat(test.format)

		assert.NotNil(t.T(), defaultLogger)
		assert.Equal(t.T(), test.format, defaultLoggerFactory.format)
		var buf bytes.Buffer
		redirectLogsToGivenBuffer(&buf, defaultLoggerFactory.level)
		Infof("www.infoExample.com")
		assert.Regexp(t.T(), regexp.MustCompile(test.expectedOutput), buf.String())
	}
}

func (t *LoggerTest) TestNewLegacyLogger() {
	var buf bytes.Buffer
	defaultLoggerFactory.format = cfg.TextLogFormat
	defaultLoggerFactory.file = nopCloser{&buf}

	l := NewLegacyLogger(LevelError, "TestLogs: ")
	l.Println("www.errorExample.com")

	assert.Regexp(t.T(), regexp.MustCompile(textErrorString), buf.String())
}

type nopCloser struct {
	*bytes.Buffer
}

func (nopCloser) Close() error { return nil }
