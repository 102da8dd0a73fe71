package logging

import (
	"regexp"
	"sync"

	"github.com/pkg/errors"
)

type levelPattern struct {
	matcher *regexp.Regexp
	level   Level
}

// Registry tracks named loggers so their levels can be changed by pattern at runtime.
type Registry struct {
	mu       sync.RWMutex
	loggers  map[string]Logger
	patterns []levelPattern
}

var globalRegistry = newRegistry()

func newRegistry() *Registry {
	return &Registry{loggers: make(map[string]Logger)}
}

// GlobalRegistry returns the process wide logger registry.
func GlobalRegistry() *Registry {
	return globalRegistry
}

func (lr *Registry) registerLogger(name string, logger Logger) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.loggers[name] = logger
}

func (lr *Registry) loggerNamed(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

// levelForLocked returns the level of the last pattern matching name.
func (lr *Registry) levelForLocked(name string) (Level, bool) {
	level, matched := INFO, false
	for _, p := range lr.patterns {
		if p.matcher.MatchString(name) {
			level, matched = p.level, true
		}
	}
	return level, matched
}

// UpdateConfig replaces the active patterns and re-levels every registered logger. Malformed
// patterns are skipped with a warning; an unknown level fails the whole update. Loggers that no
// longer match any pattern go back to INFO.
func (lr *Registry) UpdateConfig(logConfig []LoggerPatternConfig, errorLogger Logger) error {
	patterns := make([]levelPattern, 0, len(logConfig))
	for _, lpc := range logConfig {
		if !validatePattern(lpc.Pattern) {
			errorLogger.Warnw("failed to validate a pattern", "pattern", lpc.Pattern)
			continue
		}
		level, err := LevelFromString(lpc.Level)
		if err != nil {
			return errors.Wrapf(err, "pattern %q", lpc.Pattern)
		}
		matcher, err := regexp.Compile(buildRegexFromPattern(lpc.Pattern))
		if err != nil {
			return errors.Wrapf(err, "pattern %q", lpc.Pattern)
		}
		patterns = append(patterns, levelPattern{matcher: matcher, level: level})
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.patterns = patterns
	for name, logger := range lr.loggers {
		level, _ := lr.levelForLocked(name)
		logger.SetLevel(level)
	}
	return nil
}

// getOrRegister returns the logger already registered under name, or registers logger and
// applies the active patterns to it. Concurrent callers all get the first registration.
func (lr *Registry) getOrRegister(name string, logger Logger) Logger {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if existing, ok := lr.loggers[name]; ok {
		return existing
	}
	lr.loggers[name] = logger
	if level, matched := lr.levelForLocked(name); matched {
		logger.SetLevel(level)
	}
	return logger
}
