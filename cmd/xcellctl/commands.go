package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xcell/internal/stress"
	"github.com/omeyang/xcell/pkg/sync/xcell"
)

// unwrapAttempts 压测结束后取回向量的最大尝试次数。
const unwrapAttempts = 50

func createCommands() []*cli.Command {
	return []*cli.Command{
		createStressCommand(),
		createConfigCommand(),
		createVersionCommand(),
	}
}

func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return &usageError{err: err}
}

// createStressCommand 创建 stress 子命令。
func createStressCommand() *cli.Command {
	return &cli.Command{
		Name:         "stress",
		Aliases:      []string{"s"},
		Usage:        "运行并发压测并校验结果",
		OnUsageError: onUsageError,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "并发 worker 数量"},
			&cli.IntFlag{Name: "iterations", Aliases: []string{"n"}, Usage: "每个 worker 的写入次数"},
			&cli.IntFlag{Name: "amount", Aliases: []string{"a"}, Usage: "每次写入的增量"},
			&cli.IntFlag{Name: "size", Usage: "向量长度"},
			&cli.IntFlag{Name: "check-every", Usage: "共享读取检查间隔，0 表示不检查"},
			&cli.DurationFlag{Name: "timeout", Aliases: []string{"t"}, Usage: "压测超时，0 表示不限制"},
			&cli.BoolFlag{Name: "json", Usage: "以 JSON 输出结果"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logger, cleanup, err := newLogger(cmd)
			if err != nil {
				return err
			}
			defer cleanup() //nolint:errcheck // 退出时关闭日志文件

			if timeout := cmd.Duration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return cmdStress(ctx, cmd.Root().Writer, logger, s, cmd.Bool("json"))
		},
	}
}

// createConfigCommand 创建 config 子命令。
func createConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "打印合并后的有效配置（JSON）",
		Action: func(_ context.Context, cmd *cli.Command) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.Root().Writer, s)
		},
	}
}

// createVersionCommand 创建 version 子命令。
func createVersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "打印版本信息",
		Action: func(_ context.Context, cmd *cli.Command) error {
			_, err := fmt.Fprintf(cmd.Root().Writer, "xcellctl %s\n", versionString())
			return err
		},
	}
}

// report 是 stress 命令的输出。
type report struct {
	RunID      string        `json:"run_id"`
	Config     stress.Config `json:"config"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Writes     int64         `json:"writes"`
	Checks     int64         `json:"checks"`
	MaxWriters int64         `json:"max_writers"`
	TornReads  int64         `json:"torn_reads"`
	Digest     string        `json:"digest"`
	Passed     bool          `json:"passed"`
	Failure    string        `json:"failure,omitempty"`
	Metrics    []metricValue `json:"metrics"`
}

// cmdStress 执行压测。校验失败时已输出报告，返回 exitError{1}。
func cmdStress(ctx context.Context, w io.Writer, logger *slog.Logger, s settings, asJSON bool) error {
	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID))

	m, err := newMeter()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		if err := m.shutdown(context.Background()); err != nil {
			logger.Warn("metrics shutdown failed", slog.Any("error", err))
		}
	}()

	h := stress.NewVector(s.Stress.Size,
		xcell.WithSpinConfig(s.Spin),
		xcell.WithObserver(m.observer),
		xcell.WithLogger(logger),
		xcell.WithName("stress"),
	)

	logger.Info("stress started",
		slog.Int("workers", s.Stress.Workers),
		slog.Int("iterations", s.Stress.Iterations),
		slog.Int("size", s.Stress.Size),
	)
	res, err := stress.Run(ctx, s.Stress, h)
	if err != nil {
		_ = h.Release()
		return fmt.Errorf("stress run: %w", err)
	}

	// 所有 worker 已释放各自的 Clone，这里取回向量作为最终所有者。
	final, err := xcell.UnwrapWait(ctx, h, xcell.WithAttempts(unwrapAttempts))
	if err != nil {
		_ = h.Release()
		return fmt.Errorf("unwrap vector: %w", err)
	}
	res.Final = final
	res.Digest = stress.Digest(final)

	metrics, err := m.snapshot(ctx)
	if err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}

	rep := report{
		RunID:      runID,
		Config:     s.Stress,
		Elapsed:    res.Elapsed,
		Writes:     res.Writes,
		Checks:     res.Checks,
		MaxWriters: res.MaxWriters,
		TornReads:  res.TornReads,
		Digest:     fmt.Sprintf("%016x", res.Digest),
		Passed:     true,
		Metrics:    metrics,
	}
	verifyErr := stress.Verify(res)
	if verifyErr != nil {
		rep.Passed = false
		rep.Failure = verifyErr.Error()
		logger.Error("stress verification failed", slog.Any("error", verifyErr))
	} else {
		logger.Info("stress finished", slog.Duration("elapsed", res.Elapsed))
	}

	if asJSON {
		err = writeJSON(w, rep)
	} else {
		err = writeText(w, rep)
	}
	if err != nil {
		return err
	}
	if verifyErr != nil {
		return &exitError{code: 1}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeText(w io.Writer, rep report) error {
	status := "PASS"
	if !rep.Passed {
		status = "FAIL: " + rep.Failure
	}
	perOp := time.Duration(0)
	if rep.Writes > 0 {
		perOp = rep.Elapsed / time.Duration(rep.Writes)
	}
	if _, err := fmt.Fprintf(w,
		"run:         %s\nworkers:     %d\niterations:  %d\namount:      %d\nsize:        %d\n"+
			"elapsed:     %s (%s/write)\nwrites:      %d\nchecks:      %d\nmax writers: %d\n"+
			"torn reads:  %d\ndigest:      %s\nresult:      %s\n",
		rep.RunID, rep.Config.Workers, rep.Config.Iterations, rep.Config.Amount, rep.Config.Size,
		rep.Elapsed, perOp, rep.Writes, rep.Checks, rep.MaxWriters,
		rep.TornReads, rep.Digest, status,
	); err != nil {
		return err
	}
	for _, mv := range rep.Metrics {
		if _, err := fmt.Fprintf(w, "  %-28s %d\n", mv.Name, mv.Value); err != nil {
			return err
		}
	}
	return nil
}
