package xconf_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/omeyang/xcell/pkg/config/xconf"
)

// ExampleNew 演示从文件加载配置。
func ExampleNew() {
	dir, err := os.MkdirTemp("", "xconf-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer func() { _ = os.RemoveAll(dir) }() //nolint:errcheck // cleanup

	path := filepath.Join(dir, "xcell.yaml")
	content := "stress:\n  workers: 4\n  iterations: 100\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		fmt.Println(err)
		return
	}

	cfg, err := xconf.New(path)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(cfg.Format(), cfg.Client().Int("stress.workers"))
	// Output:
	// yaml 4
}

type spin struct {
	ActiveSpins int `koanf:"active_spins"`
	MaxBackoff  int `koanf:"max_backoff"`
}

func (s spin) Validate() error {
	if s.MaxBackoff < 1 {
		return fmt.Errorf("max_backoff must be >= 1")
	}
	return nil
}

// ExampleDecode 演示默认值与配置文件合并后再校验。
func ExampleDecode() {
	cfg, err := xconf.NewFromBytes([]byte(`{"spin":{"active_spins":4}}`), xconf.FormatJSON)
	if err != nil {
		fmt.Println(err)
		return
	}

	s := spin{ActiveSpins: 16, MaxBackoff: 128}
	if err := xconf.Decode(cfg, "spin", &s); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%+v\n", s)
	// Output:
	// {ActiveSpins:4 MaxBackoff:128}
}
