// xcellctl 对 xcell 共享单元运行并发压测并输出结果。
//
// 用法:
//
//	xcellctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config      配置文件路径（YAML/JSON，包含 spin 与 stress 两段）
//	    --log-level   日志级别 debug/info/warn/error (默认: info)
//	    --log-format  日志格式 text/json (默认: text)
//	    --log-file    日志文件路径，设置后按大小轮转；默认输出到 stderr
//
// 命令:
//
//	stress         运行压测并校验无丢失更新与互斥性
//	config         打印合并后的有效配置
//	version        打印版本信息
//
// 退出码:
//
//	0: 成功
//	1: 执行失败或校验失败
//	2: 参数或配置错误
//
// 示例:
//
//	xcellctl stress -w 8 -n 100000
//	xcellctl -c xcell.yaml --log-level debug stress --json
//	xcellctl -c xcell.yaml config
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	setupSignalHandler(cancel)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// createApp 创建 CLI 应用。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "xcellctl",
		Usage:       "xcell 共享单元压测工具",
		Version:     versionString(),
		HideVersion: true,
		Writer:      stdout,
		ErrWriter:   stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（.yaml/.yml/.json）",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 (debug/info/warn/error)",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 (text/json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志文件路径，按大小轮转",
			},
		},
		Commands:     createCommands(),
		OnUsageError: onUsageError,
		// 禁止 urfave/cli 直接调用 os.Exit，由 run 统一映射退出码。
		ExitErrHandler: func(_ context.Context, cmd *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				_, _ = fmt.Fprintln(cmd.Root().ErrWriter, err)
			}
		},
	}
}

// run 执行 CLI 并返回退出码。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)
	if err := app.Run(ctx, args); err != nil {
		return exitCode(err, stderr)
	}
	return 0
}

func exitCode(err error, stderr io.Writer) int {
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		_, _ = fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		// 未知命令等框架错误已由 ExitErrHandler 输出。
		return 2
	}
	_, _ = fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime)
}

// setupSignalHandler 第一次信号取消 ctx，第二次信号强制退出（130 = 128 + SIGINT）。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
