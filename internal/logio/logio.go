//
// Copyright 2019-2020 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package logio provides the injector's single-writer, best-effort log
// file: a single text log at a relative path, timestamped per line, one
// writer, best-effort, not a stable interface. Backed by afero so a
// caller can pick between a real OS filesystem and an in-memory one for
// tests.
package logio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const timestampFormat = "2006-01-02 15:04:05"

// Writer appends timestamped lines to a single log file. It never
// returns a hard failure to its caller for a write — logging must not
// become a second reason the injector aborts — but Open does report
// whether the file could be created, so a caller can log that failure
// once through its primary (logrus) logger.
type Writer struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
	file afero.File
}

// New returns a Writer backed by fs (afero.NewOsFs() in production,
// afero.NewMemMapFs() in tests).
func New(fs afero.Fs, path string) *Writer {
	return &Writer{fs: fs, path: path}
}

// Open creates or truncates the log file. Failure here is non-fatal to
// the caller's own startup — callers should log the error and continue
// without a log file rather than aborting injection.
func (w *Writer) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.fs.OpenFile(w.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	w.file = f
	return nil
}

// Line writes one timestamped line. Best-effort: a write failure is
// swallowed, since losing a log line must never abort the injection this
// log merely describes.
func (w *Writer) Line(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s %s\n", time.Now().Format(timestampFormat), msg)
	_, _ = w.file.WriteString(line)
}

// Close releases the underlying file, idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
