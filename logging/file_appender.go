package logging

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileAppenderConfig describes a size rotated log file.
type FileAppenderConfig struct {
	Path string `json:"path"`
	// MaxSizeMB is the size at which the file is rotated; lumberjack's default applies when zero.
	MaxSizeMB  int  `json:"max_size_mb,omitempty"`
	MaxBackups int  `json:"max_backups,omitempty"`
	Compress   bool `json:"compress,omitempty"`
}

// FileAppender writes console formatted lines to a rotating file.
type FileAppender struct {
	ConsoleAppender
	file *lumberjack.Logger
}

// NewFileAppender opens nothing until the first write.
func NewFileAppender(cfg FileAppenderConfig) *FileAppender {
	file := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	return &FileAppender{ConsoleAppender: ConsoleAppender{file}, file: file}
}

// Close closes the current file.
func (fa *FileAppender) Close() error {
	return fa.file.Close()
}
