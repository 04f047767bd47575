package observability

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Filter decides which records reach the pipeline. It is built from a
// comma separated list of directives, each either a bare level that sets
// the default ("info") or a target=level pair ("database=debug") applying
// to the logger with that name and its children.
type Filter struct {
	level      zap.AtomicLevel
	directives []directive
}

type directive struct {
	target string
	level  zapcore.Level
}

// ParseFilter parses filter directives. Empty directives yield "info".
func ParseFilter(directives string) (*Filter, error) {
	f := &Filter{level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}

	for _, part := range strings.Split(directives, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		target, levelText, hasTarget := strings.Cut(part, "=")
		if !hasTarget {
			levelText, target = target, ""
		}

		level, err := zapcore.ParseLevel(strings.TrimSpace(levelText))
		if err != nil {
			return nil, fmt.Errorf("invalid filter directive %q: %w", part, err)
		}

		target = strings.TrimSpace(target)
		if target == "" {
			f.level.SetLevel(level)
			continue
		}
		f.directives = append(f.directives, directive{target: target, level: level})
	}

	// most specific target first
	sort.SliceStable(f.directives, func(i, j int) bool {
		return len(f.directives[i].target) > len(f.directives[j].target)
	})
	return f, nil
}

// LevelFor returns the minimum enabled level for a named logger
func (f *Filter) LevelFor(loggerName string) zapcore.Level {
	for _, d := range f.directives {
		if loggerName == d.target || strings.HasPrefix(loggerName, d.target+".") {
			return d.level
		}
	}
	return f.level.Level()
}

// Enabled reports whether any directive could let a record at lvl through
func (f *Filter) Enabled(lvl zapcore.Level) bool {
	if f.level.Enabled(lvl) {
		return true
	}
	for _, d := range f.directives {
		if d.level.Enabled(lvl) {
			return true
		}
	}
	return false
}

// SetLevel changes the default level at runtime; target directives keep
// their own levels.
func (f *Filter) SetLevel(lvl zapcore.Level) {
	f.level.SetLevel(lvl)
}

// Level returns the current default level
func (f *Filter) Level() zapcore.Level {
	return f.level.Level()
}

func (f *Filter) String() string {
	parts := []string{f.level.Level().String()}
	for _, d := range f.directives {
		parts = append(parts, d.target+"="+d.level.String())
	}
	return strings.Join(parts, ",")
}

// filterCore drops records below the level configured for their logger
type filterCore struct {
	next   zapcore.Core
	filter *Filter
}

func newFilterCore(next zapcore.Core, filter *Filter) zapcore.Core {
	return &filterCore{next: next, filter: filter}
}

func (c *filterCore) Enabled(lvl zapcore.Level) bool {
	return c.filter.Enabled(lvl)
}

func (c *filterCore) With(fields []zapcore.Field) zapcore.Core {
	return &filterCore{next: c.next.With(fields), filter: c.filter}
}

func (c *filterCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Level < c.filter.LevelFor(ent.LoggerName) {
		return ce
	}
	return c.next.Check(ent, ce)
}

func (c *filterCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.next.Write(ent, fields)
}

func (c *filterCore) Sync() error {
	return c.next.Sync()
}
