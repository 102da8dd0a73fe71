package logging

import (
	"regexp"
	"strings"
)

// LoggerPatternConfig sets the level of every logger whose name matches Pattern.
type LoggerPatternConfig struct {
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
}

const (
	// Regular expressions for logger names (non-source loggers). Examples describe the regular
	// expression that follows.

	// e.g. "foo".
	validLoggerSectionName = `[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*`
	// e.g. "foo" or "*".
	validLoggerSectionNameWithWildcard = `(` + validLoggerSectionName + `|\*)`
	// e.g. "foo.*.foo".
	validLoggerSectionsWithWildcard = validLoggerSectionNameWithWildcard + `(\.` + validLoggerSectionNameWithWildcard + `)*`
	// Restricts above regex to be the entire pattern.
	validLoggerName = `^` + validLoggerSectionsWithWildcard + `$`

	// Regular expressions for source logger names, which embed a property.ID string.

	// e.g. "os" or "*".
	validNamespacePattern = `([\w-]+|\*)`
	// e.g. "proximity" or "*".
	validKindPattern = validNamespacePattern
	// e.g. "front-sensor" or "*".
	validInstancePattern = validNamespacePattern
	// e.g. "sensorkit.sources.os:proximity/front".
	validSourcePattern = `^sensorkit\.sources\.` + validNamespacePattern + `:` + validKindPattern + `\/` +
		validInstancePattern + `$`
)

var (
	loggerPatternRegexp = regexp.MustCompile(validLoggerName)
	sourcePatternRegexp = regexp.MustCompile(validSourcePattern)
)

func validatePattern(pattern string) bool {
	return loggerPatternRegexp.MatchString(pattern) || sourcePatternRegexp.MatchString(pattern)
}

func buildRegexFromPattern(pattern string) string {
	var matcher strings.Builder
	matcher.WriteRune('^')
	for _, ch := range pattern {
		switch ch {
		case '*':
			matcher.WriteString(`.*`)
		case '.':
			matcher.WriteString(`\.`)
		default:
			matcher.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	matcher.WriteRune('$')
	return matcher.String()
}
