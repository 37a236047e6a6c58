// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"io"
	"os"
)

type contextKeyValues struct {
	key    string
	values []string
}

type settings struct {
	writer  io.Writer
	level   *Level
	context []contextKeyValues
}

// Option is the type to specify settings modifiers
// for the logger operation.
type Option func(s *settings)

// SetWriter sets the writer for the logger.
// The default writer is os.Stdout.
func SetWriter(writer io.Writer) Option {
	return func(s *settings) {
		s.writer = writer
	}
}

// SetLevel sets the level for the logger.
// The default level is Info.
func SetLevel(level Level) Option {
	return func(s *settings) {
		s.level = &level
	}
}

// AddContext adds the context for the logger as a key values pair.
// It adds them in order. If a key already exists, the value is added to
// the existing values.
func AddContext(key, value string) Option {
	return func(s *settings) {
		for i := range s.context {
			if s.context[i].key == key {
				s.context[i].values = append(s.context[i].values, value)
				return
			}
		}

		newKV := contextKeyValues{key: key, values: []string{value}}
		s.context = append(s.context, newKV)
	}
}

func newSettings(options []Option) (s settings) {
	for _, option := range options {
		option(&s)
	}

	return s
}

func (s *settings) setDefaults() {
	if s.writer == nil {
		s.writer = os.Stdout
	}

	if s.level == nil {
		level := Info
		s.level = &level
	}
}

func (s *settings) mergeWith(other settings) {
	if s.writer == nil {
		s.writer = other.writer
	}

	if s.level == nil && other.level != nil {
		level := *other.level
		s.level = &level
	}

	for _, kv := range other.context {
		existing := false
		for i := range s.context {
			if s.context[i].key == kv.key {
				s.context[i].values = append(kv.values, s.context[i].values...)
				existing = true
				break
			}
		}

		if !existing {
			s.context = append(s.context, kv)
		}
	}
}
