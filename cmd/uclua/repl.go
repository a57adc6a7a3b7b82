package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	lua "github.com/yuin/gopher-lua"
)

const (
	newPrompt  = "\033[32m>\033[0m "
	contPrompt = "\033[32m>>\033[0m "
)

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".uclua_history")
}

func repl(L *lua.LState) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newPrompt,
		HistoryFile:       historyFile(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer l.Close()
	l.CaptureExitSignal()

	var pending string
	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if pending == "" && len(line) == 0 {
				return nil
			}
			pending = ""
			l.SetPrompt(newPrompt)
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		src := pending + line
		if strings.TrimSpace(src) == "" {
			continue
		}
		results, incomplete, err := eval(L, src)
		if incomplete {
			pending = src + "\n"
			l.SetPrompt(contPrompt)
			continue
		}
		pending = ""
		l.SetPrompt(newPrompt)
		if err != nil {
			fmt.Fprintln(l.Stderr(), err)
			continue
		}
		if len(results) > 0 {
			fmt.Fprintln(l.Stdout(), formatResults(L, results))
		}
	}
}

// eval runs one chunk. An expression is tried first so that its values can
// be echoed. incomplete reports that the chunk ends before a statement does.
func eval(L *lua.LState, src string) (results []lua.LValue, incomplete bool, err error) {
	fn, err := L.LoadString("return " + src)
	if err != nil {
		if fn, err = L.LoadString(src); err != nil {
			return nil, isIncomplete(err), err
		}
	}
	top := L.GetTop()
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.SetTop(top)
		return nil, false, err
	}
	for i := top + 1; i <= L.GetTop(); i++ {
		results = append(results, L.Get(i))
	}
	L.SetTop(top)
	return results, false, nil
}

func isIncomplete(err error) bool {
	return strings.Contains(err.Error(), "EOF")
}

func formatResults(L *lua.LState, values []lua.LValue) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = L.ToStringMeta(v).String()
	}
	return strings.Join(parts, "\t")
}
