// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func levelPtr(level Level) *Level { return &level }

const timePrefixRegex = `^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}\.[0-9]{3} `

func Test_New(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		options        []Option
		expectedLogger *Logger
	}{
		"no_option": {
			expectedLogger: &Logger{
				settings: settings{
					writer: os.Stdout,
					level:  levelPtr(Info),
				},
				mutex: new(sync.Mutex),
			},
		},
		"all_options": {
			options: []Option{
				SetLevel(Trace),
				SetWriter(io.Discard),
				AddContext("key1", "value1"),
				AddContext("key1", "value2"),
			},
			expectedLogger: &Logger{
				settings: settings{
					writer: io.Discard,
					level:  levelPtr(Trace),
					context: []contextKeyValues{
						{key: "key1", values: []string{"value1", "value2"}},
					},
				},
				mutex: new(sync.Mutex),
			},
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			logger := New(testCase.options...)

			assert.Equal(t, testCase.expectedLogger, logger)
		})
	}
}

func Test_Logger_New(t *testing.T) {
	t.Parallel()

	parentLogger := New(
		SetLevel(Debug),
		SetWriter(io.Discard),
		AddContext("module", "parent"),
	)

	childLogger := parentLogger.New(AddContext("pkg", "child"))

	assert.Equal(t, &Logger{
		settings: settings{
			writer: io.Discard,
			level:  levelPtr(Debug),
			context: []contextKeyValues{
				{key: "pkg", values: []string{"child"}},
				{key: "module", values: []string{"parent"}},
			},
		},
		mutex: parentLogger.mutex,
	}, childLogger)
	assert.Same(t, parentLogger.mutex, childLogger.mutex)
}

func Test_Logger_Patch(t *testing.T) {
	t.Parallel()

	logger := New(SetWriter(io.Discard))

	logger.Patch(SetLevel(Trace))

	assert.Equal(t, &Logger{
		settings: settings{
			writer: io.Discard,
			level:  levelPtr(Trace),
		},
		mutex: logger.mutex,
	}, logger)
}

func Test_Logger_log(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		options     []Option
		level       Level
		s           string
		outputRegex string
	}{
		"log_at_trace": {
			options:     []Option{SetLevel(Trace)},
			level:       Trace,
			s:           "some words",
			outputRegex: timePrefixRegex + "TRCE some words\n$",
		},
		"do_not_log_at_trace": {
			options:     []Option{SetLevel(Debug)},
			level:       Trace,
			s:           "some words",
			outputRegex: "^$",
		},
		"log_with_context": {
			options: []Option{
				SetLevel(Info),
				AddContext("pkg", "fragment-tree"),
				AddContext("chain", "westend"),
			},
			level:       Info,
			s:           "some words",
			outputRegex: timePrefixRegex + "INFO some words\tpkg=fragment-tree chain=westend\n$",
		},
		"log_with_multiple_context_values": {
			options: []Option{
				AddContext("ids", "1"),
				AddContext("ids", "2"),
			},
			level:       Warn,
			s:           "some words",
			outputRegex: timePrefixRegex + "WARN some words\tids=1,2\n$",
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			buffer := bytes.NewBuffer(nil)
			options := append([]Option{SetWriter(buffer)}, testCase.options...)
			logger := New(options...)

			logger.log(testCase.level, testCase.s)

			assert.Regexp(t, regexp.MustCompile(testCase.outputRegex), buffer.String())
		})
	}
}
