// Copyright 2025 agentfs authors. All Rights Reserved.
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
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const (
	textDebugString = `severity=DEBUG message="TestLogs: www.debugExample.com"`
	textInfoString  = `severity=INFO message="TestLogs: www.infoExample.com"`
	textWarnString  = `severity=WARNING message="TestLogs: www.warningExample.com"`
	textErrorString = `severity=ERROR message="TestLogs: www.errorExample.com"`
)

type LoggerTest struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func redirectLogsToGivenBuffer(buf *bytes.Buffer, level string) {
	var programLevel = new(slog.LevelVar)
	defaultLogger = slog.New(
		defaultLoggerFactory.createJsonOrTextHandler(buf, programLevel, "TestLogs: "),
	)
	setLoggingLevel(level, programLevel)
}

// fetchLogOutputForSpecifiedSeverityLevel runs the supplied log calls against
// a buffer-backed logger at the configured level and returns each call's
// output.
func fetchLogOutputForSpecifiedSeverityLevel(level string, functions []func()) []string {
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

func logCalls() []func() {
	return []func(){
		func() { Tracef("www.%s.com", "traceExample") },
		func() { Debugf("www.%s.com", "debugExample") },
		func() { Infof("www.%s.com", "infoExample") },
		func() { Warnf("www.%s.com", "warningExample") },
		func() { Errorf("www.%s.com", "errorExample") },
	}
}

func (t *LoggerTest) TestInfoLevelDropsDebugAndTrace() {
	output := fetchLogOutputForSpecifiedSeverityLevel("INFO", logCalls())

	assert.Empty(t.T(), output[0])
	assert.Empty(t.T(), output[1])
	assert.Regexp(t.T(), regexp.MustCompile(textInfoString), output[2])
	assert.Regexp(t.T(), regexp.MustCompile(textWarnString), output[3])
	assert.Regexp(t.T(), regexp.MustCompile(textErrorString), output[4])
}

func (t *LoggerTest) TestTraceLevelKeepsEverything() {
	output := fetchLogOutputForSpecifiedSeverityLevel("TRACE", logCalls())

	assert.Regexp(t.T(), regexp.MustCompile(`severity=TRACE`), output[0])
	assert.Regexp(t.T(), regexp.MustCompile(textDebugString), output[1])
	assert.Regexp(t.T(), regexp.MustCompile(textInfoString), output[2])
}

func (t *LoggerTest) TestOffLevelDropsEverything() {
	output := fetchLogOutputForSpecifiedSeverityLevel("OFF", logCalls())

	for _, o := range output {
		assert.Empty(t.T(), o)
	}
}

func (t *LoggerTest) TestJsonFormat() {
	originalFactory := defaultLoggerFactory
	defer func() { defaultLoggerFactory = originalFactory }()

	defaultLoggerFactory = &loggerFactory{level: "INFO", format: "json"}
	var buf bytes.Buffer
	redirectLogsToGivenBuffer(&buf, "INFO")

	Infof("hello %d", 7)

	assert.Regexp(t.T(), regexp.MustCompile(`"severity":"INFO"`), buf.String())
	assert.Regexp(t.T(), regexp.MustCompile(`"message":"TestLogs: hello 7"`), buf.String())
}
