// Package config loads the settings of the uclua command.
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultScriptTimeout = 5 * time.Second

type Config struct {
	Log      Log      `json:"log"`
	Script   Script   `json:"script"`
	Emulator Emulator `json:"emulator"`
}

type Log struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

type Script struct {
	// Timeout bounds one script run. Zero disables the limit.
	Timeout Duration `json:"timeout"`
	// Safe opens only the base, table, string and math libraries.
	Safe bool `json:"safe"`
}

type Emulator struct {
	// MemoryLimit caps mapped memory per simulated core. Zero means no limit.
	MemoryLimit ByteSize `json:"memory_limit"`
}

// Duration reads "1m30s" style strings.
type Duration time.Duration

// ByteSize reads "64MiB" style strings or plain byte counts.
type ByteSize uint64

func Default() *Config {
	return &Config{
		Log:    Log{Level: "info"},
		Script: Script{Timeout: Duration(DefaultScriptTimeout)},
	}
}

// Load reads a YAML or JSON file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	if c.Script.Timeout < 0 {
		return errors.New("script.timeout must not be negative")
	}
	return nil
}

// ZapConfig returns the logger configuration described by c.Log.
func (c *Config) ZapConfig() (zap.Config, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return zap.Config{}, errors.Wrap(err, "log.level")
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc, nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int64
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.Errorf("invalid duration %s", data)
		}
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ParseByteSize accepts binary unit suffixes such as "512KiB" or "64m".
func ParseByteSize(s string) (ByteSize, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", s)
	} else if n < 0 {
		return 0, errors.Errorf("invalid size %q", s)
	}
	return ByteSize(n), nil
}

func (b ByteSize) String() string {
	return units.BytesSize(float64(b))
}

func (b ByteSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n uint64
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.Errorf("invalid size %s", data)
		}
		*b = ByteSize(n)
		return nil
	}
	v, err := ParseByteSize(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}
