// Package sink provides the uniform destinations that collected output
// chunks are dispatched to: in-memory capture, file, callback, queue and
// console echo.
//
// Close is idempotent on every sink. Write never blocks indefinitely; the
// queue sink bounds its sends by the run's check interval.
package sink

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// A Sink receives decoded output chunks for one stream.
type Sink interface {
	Write(chunk string) error
	Close() error
}

// Buffer accumulates chunks in memory and records whether anything was ever
// written, distinguishing "no output" from an empty string. It is written by
// a single goroutine at a time by construction.
type Buffer struct {
	sb    strings.Builder
	wrote bool
}

func (b *Buffer) Write(chunk string) error {
	b.wrote = true
	b.sb.WriteString(chunk)
	return nil
}

func (b *Buffer) Close() error { return nil }

// Contents returns the accumulated output and whether any write happened.
func (b *Buffer) Contents() (string, bool) {
	return b.sb.String(), b.wrote
}

// File forwards chunks to a file opened in binary write mode for the run's
// duration.
type File struct {
	f    *os.File
	once sync.Once
	err  error
}

// NewFile opens path for writing, truncating any previous contents.
func NewFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return &File{f: f}, nil
}

func (s *File) Write(chunk string) error {
	_, err := s.f.Write([]byte(chunk))
	return err
}

// Fail appends a supervisory failure message to the file so that observers
// inspecting it see why the run ended early. Must be called before Close.
func (s *File) Fail(msg string) {
	_, _ = s.f.Write([]byte(msg))
}

func (s *File) Close() error {
	s.once.Do(func() {
		s.err = s.f.Close()
	})
	return s.err
}

// Handle exposes the underlying descriptor for direct OS-level redirection.
func (s *File) Handle() *os.File { return s.f }

// Callback invokes a function with every chunk.
type Callback struct {
	fn func(string)
}

func NewCallback(fn func(string)) *Callback { return &Callback{fn: fn} }

func (s *Callback) Write(chunk string) error {
	s.fn(chunk)
	return nil
}

func (s *Callback) Close() error { return nil }

// Queue forwards chunks to a channel. Sends are bounded by the configured
// wait; a full channel drops the chunk with a warning rather than stalling
// the scheduling loop. Closing the channel is the end-of-run marker unless
// noClose is set.
type Queue struct {
	ch      chan string
	wait    time.Duration
	noClose bool
	log     *slog.Logger
	once    sync.Once
}

func NewQueue(ch chan string, wait time.Duration, noClose bool, log *slog.Logger) *Queue {
	return &Queue{ch: ch, wait: wait, noClose: noClose, log: log}
}

func (s *Queue) Write(chunk string) error {
	select {
	case s.ch <- chunk:
		return nil
	case <-time.After(s.wait):
		s.log.Warn("queue destination full, dropping chunk", "bytes", len(chunk))
		return nil
	}
}

func (s *Queue) Close() error {
	s.once.Do(func() {
		if !s.noClose {
			close(s.ch)
		}
	})
	return nil
}

// Console echoes chunks to a writer, used for live output and inherited
// destinations.
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console { return &Console{w: w} }

func (s *Console) Write(chunk string) error {
	_, err := io.WriteString(s.w, chunk)
	return err
}

func (s *Console) Close() error { return nil }
