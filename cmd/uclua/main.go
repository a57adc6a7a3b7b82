package main

import (
	"fmt"
	"os"

	"github.com/dc0d/onexit"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/wnxd/uclua/engine"
	"github.com/wnxd/uclua/internal/config"
	"github.com/wnxd/uclua/luabind"
)

var Version = "0.1.0"

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "config, c",
		Usage:  "load configuration from `FILE`",
		EnvVar: "UCLUA_CONFIG",
	},
	cli.StringFlag{
		Name:   "log-level",
		Usage:  "log level: debug, info, warn, error",
		EnvVar: "UCLUA_LOG_LEVEL",
	},
	cli.StringFlag{
		Name:   "memory-limit",
		Usage:  "cap mapped memory per simulated core, e.g. 64MiB",
		EnvVar: "UCLUA_MEMORY_LIMIT",
	},
	cli.DurationFlag{
		Name:   "timeout",
		Usage:  "abort scripts running longer than this, 0 disables",
		EnvVar: "UCLUA_TIMEOUT",
	},
	cli.BoolFlag{
		Name:   "safe",
		Usage:  "only open the base, table, string and math libraries",
		EnvVar: "UCLUA_SAFE",
	},
}

func main() {
	onexit.ForceExit(runApp(os.Args))
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "uclua"
	app.Version = Version
	app.Usage = "run Lua scripts against CPU emulator engines"
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		cmdRun,
		cmdRepl,
		cmdVersion,
	}
	app.Before = setup
	app.Action = func(c *cli.Context) error {
		return cli.ShowAppHelp(c)
	}
	return app
}

// runApp returns the process exit code for args.
func runApp(args []string) int {
	if err := newApp().Run(args); err != nil {
		fmt.Fprintln(os.Stderr, "uclua:", err)
		return 1
	}
	return 0
}

// setup resolves the configuration and installs the loggers before any
// command runs.
func setup(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	zc, err := cfg.ZapConfig()
	if err != nil {
		return err
	}
	log, err := zc.Build()
	if err != nil {
		return err
	}
	engine.SetLogger(log.Named("engine"))
	luabind.SetLogger(log.Named("luabind"))
	onexit.Register(func() { _ = log.Sync() })
	c.App.Metadata = map[string]any{"config": cfg, "logger": log}
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if c.GlobalIsSet("log-level") {
		cfg.Log.Level = c.GlobalString("log-level")
	}
	if c.GlobalIsSet("memory-limit") {
		limit, err := config.ParseByteSize(c.GlobalString("memory-limit"))
		if err != nil {
			return nil, err
		}
		cfg.Emulator.MemoryLimit = limit
	}
	if c.GlobalIsSet("timeout") {
		cfg.Script.Timeout = config.Duration(c.GlobalDuration("timeout"))
	}
	if c.GlobalIsSet("safe") {
		cfg.Script.Safe = c.GlobalBool("safe")
	}
	return cfg, cfg.Validate()
}

func appConfig(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

func appLogger(c *cli.Context) *zap.Logger {
	return c.App.Metadata["logger"].(*zap.Logger)
}
