package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wnxd/uclua/engine"
	"github.com/wnxd/uclua/luabind"
)

var (
	cmdRun = cli.Command{
		Name:      "run",
		Usage:     "run a Lua script",
		ArgsUsage: "FILE [ARGS...]",
		Action:    runScript,
	}

	cmdRepl = cli.Command{
		Name:   "repl",
		Usage:  "start an interactive Lua prompt",
		Action: runRepl,
	}

	cmdVersion = cli.Command{
		Name:  "version",
		Usage: "print version information",
		Action: func(c *cli.Context) error {
			fmt.Printf("uclua %s (unicorn api %d.%d)\n", Version, luabind.VersionMajor, luabind.VersionMinor)
			return nil
		},
	}
)

func runScript(c *cli.Context) error {
	if !c.Args().Present() {
		return cli.NewExitError("run: missing script file", 2)
	}
	path := c.Args().First()
	cfg := appConfig(c)
	L, cancel := newState(cfg, engine.DefaultRegistry())
	defer cancel()
	defer L.Close()

	args := L.NewTable()
	args.RawSetInt(0, lua.LString(path))
	for i, a := range c.Args().Tail() {
		args.RawSetInt(i+1, lua.LString(a))
	}
	L.SetGlobal("arg", args)

	appLogger(c).Debug("running script", zap.String("path", path), zap.Bool("safe", cfg.Script.Safe))
	if err := L.DoFile(path); err != nil {
		return errors.Wrapf(err, "run %s", path)
	}
	return nil
}

func runRepl(c *cli.Context) error {
	L, cancel := newState(appConfig(c), engine.DefaultRegistry())
	defer cancel()
	defer L.Close()
	return repl(L)
}
