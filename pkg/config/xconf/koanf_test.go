package xconf

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spinSection struct {
	ActiveSpins   int           `koanf:"active_spins"`
	MaxBackoff    int           `koanf:"max_backoff"`
	SlowThreshold time.Duration `koanf:"slow_threshold"`
}

func (s spinSection) Validate() error {
	if s.MaxBackoff < 1 {
		return errors.New("max_backoff must be >= 1")
	}
	return nil
}

type stressSection struct {
	Workers    int `koanf:"workers"`
	Iterations int `koanf:"iterations"`
}

type fileConfig struct {
	Spin   spinSection   `koanf:"spin"`
	Stress stressSection `koanf:"stress"`
}

const testYAML = `
spin:
  active_spins: 32
  max_backoff: 64
  slow_threshold: 5ms
stress:
  workers: 8
  iterations: 1000
`

const testJSON = `{
  "spin": {"active_spins": 32, "max_backoff": 64, "slow_threshold": "5ms"},
  "stress": {"workers": 8, "iterations": 1000}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		format  Format
	}{
		{"yaml", "xcell.yaml", testYAML, FormatYAML},
		{"yml", "xcell.YML", testYAML, FormatYAML},
		{"json", "xcell.json", testJSON, FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			cfg, err := New(path)
			require.NoError(t, err)

			assert.Equal(t, path, cfg.Path())
			assert.Equal(t, tt.format, cfg.Format())
			assert.Equal(t, 32, cfg.Client().Int("spin.active_spins"))
			assert.Equal(t, 8, cfg.Client().Int("stress.workers"))

			var fc fileConfig
			require.NoError(t, cfg.Unmarshal("", &fc))
			assert.Equal(t, 5*time.Millisecond, fc.Spin.SlowThreshold)
			assert.Equal(t, 1000, fc.Stress.Iterations)
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New("")
	require.ErrorIs(t, err, ErrEmptyPath)

	_, err = New(writeFile(t, "xcell.toml", "a = 1"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = New(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, ErrLoadFailed)

	_, err = New(writeFile(t, "bad.json", "{not json"))
	require.ErrorIs(t, err, ErrParseFailed)
}

func TestNew_EmptyFile(t *testing.T) {
	cfg, err := New(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)

	s := spinSection{ActiveSpins: 16, MaxBackoff: 128}
	require.NoError(t, cfg.Unmarshal("spin", &s))
	assert.Equal(t, spinSection{ActiveSpins: 16, MaxBackoff: 128}, s)
}

func TestNewFromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte(testYAML), FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, cfg.Path())
	assert.Equal(t, FormatYAML, cfg.Format())
	assert.Equal(t, 64, cfg.Client().Int("spin.max_backoff"))

	_, err = NewFromBytes([]byte(testYAML), Format("toml"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = NewFromBytes([]byte("spin: [unterminated"), FormatYAML)
	require.ErrorIs(t, err, ErrParseFailed)

	empty, err := NewFromBytes(nil, FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, empty.Client().Keys())
}

func TestUnmarshal_KeepsDefaults(t *testing.T) {
	cfg, err := NewFromBytes([]byte("spin:\n  active_spins: 4\n"), FormatYAML)
	require.NoError(t, err)

	s := spinSection{ActiveSpins: 16, MaxBackoff: 128}
	require.NoError(t, cfg.Unmarshal("spin", &s))
	assert.Equal(t, 4, s.ActiveSpins)
	assert.Equal(t, 128, s.MaxBackoff)
}

func TestUnmarshal_Failure(t *testing.T) {
	cfg, err := NewFromBytes([]byte("stress:\n  workers: many\n"), FormatYAML)
	require.NoError(t, err)

	var s stressSection
	assert.ErrorIs(t, cfg.Unmarshal("stress", &s), ErrUnmarshalFailed)
}

func TestOptions(t *testing.T) {
	data := []byte("spin:\n  active_spins: 3\n")
	cfg, err := NewFromBytes(data, FormatYAML, WithDelim("/"), WithDelim(""), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Client().Int("spin/active_spins"))

	type tagged struct {
		Spins int `json:"active_spins"`
	}
	cfg, err = NewFromBytes(data, FormatYAML, WithTag("json"))
	require.NoError(t, err)
	var v tagged
	require.NoError(t, cfg.Unmarshal("spin", &v))
	assert.Equal(t, 3, v.Spins)
}

func TestDecode(t *testing.T) {
	cfg, err := NewFromBytes([]byte(testYAML), FormatYAML)
	require.NoError(t, err)

	s := spinSection{}
	require.NoError(t, Decode(cfg, "spin", &s))
	assert.Equal(t, 64, s.MaxBackoff)

	bad, err := NewFromBytes([]byte("spin:\n  max_backoff: 0\n"), FormatYAML)
	require.NoError(t, err)
	err = Decode(bad, "spin", &s)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "spin")

	var whole fileConfig
	require.NoError(t, Decode(cfg, "", &whole), "non-validator targets are not validated")

	assert.ErrorIs(t, Decode(nil, "spin", &s), ErrNilConfig)
	assert.Panics(t, func() { MustDecode(bad, "spin", &s) })
}

func TestReload(t *testing.T) {
	path := writeFile(t, "xcell.yaml", testYAML)
	cfg, err := New(path)
	require.NoError(t, err)
	old := cfg.Client()

	require.NoError(t, os.WriteFile(path, []byte("stress:\n  workers: 2\n"), 0600))
	require.NoError(t, cfg.Reload())
	assert.Equal(t, 2, cfg.Client().Int("stress.workers"))
	assert.Equal(t, 8, old.Int("stress.workers"), "old snapshot is unchanged")

	// 解析失败时保留旧配置。
	require.NoError(t, os.WriteFile(path, []byte("stress: [broken"), 0600))
	require.ErrorIs(t, cfg.Reload(), ErrParseFailed)
	assert.Equal(t, 2, cfg.Client().Int("stress.workers"))
}

func TestReload_FromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte(testJSON), FormatJSON)
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Reload(), ErrReloadUnsupported)
}

func TestReload_Concurrent(t *testing.T) {
	path := writeFile(t, "xcell.yaml", testYAML)
	cfg, err := New(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, cfg.Reload())
		}()
		go func() {
			defer wg.Done()
			var s stressSection
			assert.NoError(t, cfg.Unmarshal("stress", &s))
			assert.Equal(t, 8, s.Workers)
		}()
	}
	wg.Wait()
}
