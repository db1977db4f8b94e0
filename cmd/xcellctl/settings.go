package main

import (
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xcell/internal/stress"
	"github.com/omeyang/xcell/pkg/config/xconf"
	"github.com/omeyang/xcell/pkg/sync/xcell"
)

// settings 是配置文件与命令行合并后的有效配置。
type settings struct {
	Spin   xcell.SpinConfig `koanf:"spin" json:"spin"`
	Stress stress.Config    `koanf:"stress" json:"stress"`
}

func defaultSettings() settings {
	return settings{
		Spin:   xcell.DefaultSpinConfig(),
		Stress: stress.DefaultConfig(),
	}
}

// loadSettings 以默认值为底，依次应用配置文件与命令行参数。
// 配置错误统一包装为 usageError。
func loadSettings(cmd *cli.Command) (settings, error) {
	s := defaultSettings()
	if path := cmd.String("config"); path != "" {
		cfg, err := xconf.New(path)
		if err != nil {
			return s, &usageError{err: err}
		}
		if err := xconf.Decode(cfg, "spin", &s.Spin); err != nil {
			return s, &usageError{err: err}
		}
		if err := xconf.Decode(cfg, "stress", &s.Stress); err != nil {
			return s, &usageError{err: err}
		}
	}

	applyStressFlags(cmd, &s.Stress)
	if err := s.Stress.Validate(); err != nil {
		return s, &usageError{err: err}
	}
	return s, nil
}

// applyStressFlags 只覆盖显式设置的参数。
func applyStressFlags(cmd *cli.Command, c *stress.Config) {
	if cmd.IsSet("workers") {
		c.Workers = cmd.Int("workers")
	}
	if cmd.IsSet("iterations") {
		c.Iterations = cmd.Int("iterations")
	}
	if cmd.IsSet("amount") {
		c.Amount = cmd.Int("amount")
	}
	if cmd.IsSet("size") {
		c.Size = cmd.Int("size")
	}
	if cmd.IsSet("check-every") {
		c.CheckEvery = cmd.Int("check-every")
	}
}
