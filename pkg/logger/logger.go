package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ANSI color codes for log levels
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

// Options configures the combined logger built by New.
type Options struct {
	ServiceName  string
	Level        slog.Level
	BufferSize   int
	Dir          string // file sink directory, empty disables the file sink
	KafkaBrokers []string
	KafkaTopic   string
	Stdout       io.Writer // defaults to os.Stdout
}

// ParseLevel maps debug|info|warn|error onto slog levels, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// attrState carries the attrs and group prefix accumulated by WithAttrs/WithGroup.
type attrState struct {
	attrs  []slog.Attr
	prefix string
}

func (s attrState) withAttrs(attrs []slog.Attr) attrState {
	next := attrState{prefix: s.prefix, attrs: make([]slog.Attr, 0, len(s.attrs)+len(attrs))}
	next.attrs = append(next.attrs, s.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: s.prefix + a.Key, Value: a.Value})
	}
	return next
}

func (s attrState) withGroup(name string) attrState {
	if name == "" {
		return s
	}
	return attrState{attrs: s.attrs, prefix: s.prefix + name + "."}
}

// fields flattens handler attrs and record attrs into key/value pairs.
func (s attrState) fields(record slog.Record) []slog.Attr {
	out := make([]slog.Attr, 0, len(s.attrs)+record.NumAttrs())
	out = append(out, s.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		out = append(out, slog.Attr{Key: s.prefix + a.Key, Value: a.Value.Resolve()})
		return true
	})
	return out
}

func formatFields(fields []slog.Attr) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		v := f.Value.String()
		if strings.ContainsAny(v, " \t\"") {
			v = fmt.Sprintf("%q", v)
		}
		b.WriteString(v)
	}
	return b.String()
}

// StdoutHandler writes colored lines synchronously.
type StdoutHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	level  slog.Leveler
	state  attrState
}

// NewStdoutHandler initializes a new StdoutHandler. A nil writer means os.Stdout.
func NewStdoutHandler(w io.Writer, level slog.Leveler) *StdoutHandler {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutHandler{mu: &sync.Mutex{}, writer: w, level: level}
}

func (s *StdoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= s.level.Level()
}

func (s *StdoutHandler) Handle(ctx context.Context, record slog.Record) error {
	color := ColorReset
	switch {
	case record.Level >= slog.LevelError:
		color = ColorRed
	case record.Level >= slog.LevelWarn:
		color = ColorYellow
	case record.Level >= slog.LevelInfo:
		color = ColorGreen
	default:
		color = ColorBlue
	}
	line := fmt.Sprintf("%s[%s]%s - %s - %s%s\n",
		color,
		record.Level.String(),
		ColorReset,
		record.Time.Format("2006-01-02 15:04:05"),
		record.Message,
		formatFields(s.state.fields(record)),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.writer, line)
	return err
}

func (s *StdoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *s
	next.state = s.state.withAttrs(attrs)
	return &next
}

func (s *StdoutHandler) WithGroup(name string) slog.Handler {
	next := *s
	next.state = s.state.withGroup(name)
	return &next
}

// Close is a no-op for the synchronous handler.
func (s *StdoutHandler) Close() error {
	return nil
}

type fileSink struct {
	file      *os.File
	lines     chan []byte
	wg        sync.WaitGroup
	quitChan  chan struct{}
	closeOnce sync.Once
}

// FileHandler appends plain lines to logs/<service>/app.log asynchronously.
type FileHandler struct {
	*fileSink
	level slog.Leveler
	state attrState
}

// NewFileHandler initializes a new FileHandler.
func NewFileHandler(dir, serviceName string, bufferSize int, level slog.Leveler) (*FileHandler, error) {
	logDir := filepath.Join(dir, serviceName)
	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(filepath.Join(logDir, "app.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	sink := &fileSink{
		file:     file,
		lines:    make(chan []byte, bufferSize),
		quitChan: make(chan struct{}),
	}
	sink.wg.Add(1)
	go sink.processLogs()

	return &FileHandler{fileSink: sink, level: level}, nil
}

func (f *fileSink) processLogs() {
	defer f.wg.Done()
	for {
		select {
		case line := <-f.lines:
			_, _ = f.file.Write(line)
		case <-f.quitChan:
			// drain what is already queued
			for {
				select {
				case line := <-f.lines:
					_, _ = f.file.Write(line)
				default:
					return
				}
			}
		}
	}
}

func (f *FileHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= f.level.Level()
}

func (f *FileHandler) Handle(ctx context.Context, record slog.Record) error {
	line := fmt.Sprintf("[%s] - %s - %s%s\n",
		record.Level.String(), record.Time.Format(time.RFC3339), record.Message, formatFields(f.state.fields(record)))
	select {
	case f.lines <- []byte(line):
	default:
		fmt.Fprintln(os.Stderr, "file log channel is full, dropping log message")
	}
	return nil
}

func (f *FileHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *f
	next.state = f.state.withAttrs(attrs)
	return &next
}

func (f *FileHandler) WithGroup(name string) slog.Handler {
	next := *f
	next.state = f.state.withGroup(name)
	return &next
}

// Close flushes queued lines and closes the file.
func (f *FileHandler) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.quitChan)
		f.wg.Wait()
		err = f.file.Close()
	})
	return err
}

// MultiHandler combines multiple handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards the record to every handler that accepts its level.
func (m *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return NewMultiHandler(handlers...)
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return NewMultiHandler(handlers...)
}

// CloseAll closes all handlers that implement the Close method.
func (m *MultiHandler) CloseAll() {
	for _, h := range m.handlers {
		if closer, ok := h.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}
}

// New builds the combined stdout, file and (when brokers are given) Kafka
// logger. The returned func flushes and closes every sink.
func New(opts Options) (*slog.Logger, func(), error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 100
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "animetracker"
	}

	handlers := []slog.Handler{NewStdoutHandler(opts.Stdout, opts.Level)}

	if opts.Dir != "" {
		fileHandler, err := NewFileHandler(opts.Dir, opts.ServiceName, opts.BufferSize, opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("file log handler: %w", err)
		}
		handlers = append(handlers, fileHandler)
	}

	if len(opts.KafkaBrokers) > 0 {
		kafkaHandler, err := NewKafkaHandler(opts.KafkaBrokers, opts.KafkaTopic, opts.ServiceName, opts.BufferSize, opts.Level)
		if err != nil {
			NewMultiHandler(handlers...).CloseAll()
			return nil, nil, err
		}
		handlers = append(handlers, kafkaHandler)
	}

	multi := NewMultiHandler(handlers...)
	return slog.New(multi), multi.CloseAll, nil
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
