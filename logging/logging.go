// Copyright 2019 The Morning Consult, LLC or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may
// not use this file except in compliance with the License. A copy of the
// License is located at
//
//         https://www.apache.org/licenses/LICENSE-2.0
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either
// express or implied. See the License for the specific language governing
// permissions and limitations under the License.


package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"
)

const (
	EnvLogDir   = "VEB_LOG_DIR"
	EnvLogLevel = "VEB_LOG_LEVEL"

	DefaultLogDir = "~/.vault-env-binding"

	logName = "vault-env-binding"
)

type Options struct {
	// LogDir is the directory of the log file. If it and VEB_LOG_DIR
	// are empty, New logs to stderr and LogWriter uses DefaultLogDir.
	LogDir string

	// Level is one of trace, debug, info, warn or error.
	Level string
}

// LogWriter opens today's log file in the log directory, creating
// both if needed.
func LogWriter(opts *Options) (io.WriteCloser, error) {
	if opts == nil {
		opts = &Options{}
	}

	dir := logDir(opts)
	if dir == "" {
		dir = DefaultLogDir
	}

	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, xerrors.Errorf("error expanding logging directory %s: %w", dir, err)
	}

	if err = os.MkdirAll(expanded, 0750); err != nil {
		return nil, xerrors.Errorf("error creating directory %s: %w", expanded, err)
	}

	logFile := filepath.Join(expanded, fmt.Sprintf("%s_%s.log", logName, time.Now().Format("2006-01-02")))

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600) // nolint: gosec
	if err != nil {
		return nil, xerrors.Errorf("error opening log file %s: %w", logFile, err)
	}
	return file, nil
}

// New creates the application logger. The returned io.Closer must be
// closed once logging is done.
func New(opts *Options) (hclog.Logger, io.Closer, error) {
	if opts == nil {
		opts = &Options{}
	}

	level, err := logLevel(opts)
	if err != nil {
		return nil, nil, err
	}

	var (
		output io.Writer         = os.Stderr
		closer io.Closer         = nopCloser{}
		color  hclog.ColorOption = hclog.AutoColor
	)
	if logDir(opts) != "" {
		w, err := LogWriter(opts)
		if err != nil {
			return nil, nil, err
		}
		output, closer, color = w, w, hclog.ColorOff
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   logName,
		Level:  level,
		Output: output,
		Color:  color,
	})
	return logger, closer, nil
}

func logDir(opts *Options) string {
	if v := os.Getenv(EnvLogDir); v != "" {
		return v
	}
	return opts.LogDir
}

func logLevel(opts *Options) (hclog.Level, error) {
	raw := opts.Level
	if v := os.Getenv(EnvLogLevel); v != "" {
		raw = v
	}
	if raw == "" {
		return hclog.Info, nil
	}

	level := hclog.LevelFromString(raw)
	if level == hclog.NoLevel {
		return hclog.NoLevel, xerrors.Errorf("unknown log level %q", raw)
	}
	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
