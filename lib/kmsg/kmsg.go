// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package kmsg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"os"
	"strconv"
	"strings"
	"sync"
)

// tag identifies this process in the kernel ring buffer.
const tag = "zram-generator"

// Handler is a slog.Handler that writes records in the /dev/kmsg
// prefix format: "<priority>tag[pid]: message key=value ...". Each
// record is emitted as a single write, which the kernel treats as one
// log line; embedded newlines are replaced with spaces.
type Handler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	pid    int
	prefix string   // preformatted attrs from WithAttrs
	groups []string // open groups qualifying subsequent attr keys
}

// New opens /dev/kmsg and returns a Handler writing to it. Records
// below level are discarded.
func New(level slog.Leveler) (*Handler, error) {
	device, err := os.OpenFile("/dev/kmsg", os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/kmsg: %w", err)
	}
	return newHandler(device, level), nil
}

// newHandler is the testable constructor; it writes to out instead of
// the kmsg device.
func newHandler(out io.Writer, level slog.Leveler) *Handler {
	return &Handler{
		mu:    &sync.Mutex{},
		out:   out,
		level: level,
		pid:   os.Getpid(),
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.level != nil {
		minLevel = h.level.Level()
	}
	return level >= minLevel
}

func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "<%d>%s[%d]: %s", priority(record.Level), tag, h.pid, record.Message)
	b.WriteString(h.prefix)
	record.Attrs(func(attr slog.Attr) bool {
		appendAttr(&b, h.groups, attr)
		return true
	})

	line := strings.ReplaceAll(b.String(), "\n", " ")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line+"\n")
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	for _, attr := range attrs {
		appendAttr(&b, h.groups, attr)
	}
	derived := *h
	derived.prefix = h.prefix + b.String()
	return &derived
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := *h
	derived.groups = append(append([]string{}, h.groups...), name)
	return &derived
}

// priority maps slog levels onto syslog severities. Info becomes
// LOG_NOTICE and debug LOG_INFO, the ranking systemd expects from
// generator output.
func priority(level slog.Level) syslog.Priority {
	switch {
	case level >= slog.LevelError:
		return syslog.LOG_ERR
	case level >= slog.LevelWarn:
		return syslog.LOG_WARNING
	case level >= slog.LevelInfo:
		return syslog.LOG_NOTICE
	default:
		return syslog.LOG_INFO
	}
}

// appendAttr writes one " key=value" fragment, flattening groups into
// dotted keys.
func appendAttr(b *strings.Builder, groups []string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	if attr.Value.Kind() == slog.KindGroup {
		sub := groups
		if attr.Key != "" {
			sub = append(append([]string{}, groups...), attr.Key)
		}
		for _, inner := range attr.Value.Group() {
			appendAttr(b, sub, inner)
		}
		return
	}
	b.WriteByte(' ')
	for _, group := range groups {
		b.WriteString(group)
		b.WriteByte('.')
	}
	b.WriteString(attr.Key)
	b.WriteByte('=')
	b.WriteString(formatValue(attr.Value))
}

// formatValue renders a value, quoting anything that would break the
// key=value framing.
func formatValue(v slog.Value) string {
	s := v.String()
	if strings.ContainsAny(s, " \t\"=") {
		return strconv.Quote(s)
	}
	return s
}
