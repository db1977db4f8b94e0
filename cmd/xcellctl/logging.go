package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志文件轮转参数。
const (
	logMaxSizeMB  = 100
	logMaxBackups = 3
	logMaxAgeDays = 7
)

// newLogger 按全局参数构建 slog.Logger，返回的 cleanup 关闭日志文件。
func newLogger(cmd *cli.Command) (*slog.Logger, func() error, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
		return nil, nil, newUsageError("invalid --log-level %q", cmd.String("log-level"))
	}

	var (
		out     io.Writer = cmd.Root().ErrWriter
		cleanup           = func() error { return nil }
	)
	if path := cmd.String("log-file"); path != "" {
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
		}
		out = rotator
		cleanup = rotator.Close
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cmd.String("log-format")) {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		_ = cleanup()
		return nil, nil, newUsageError("invalid --log-format %q", cmd.String("log-format"))
	}
	return slog.New(handler), cleanup, nil
}
