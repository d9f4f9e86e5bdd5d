// Package cli implements the interactive operator console: the REPL that
// wraps a sched.System, grounded on original_source/menu.cpp's
// menuSession/screenSession pair. The console is intentionally thin (spec
// §1 calls the command parser and report formatting "external
// collaborators" of the core) — every command here either mutates a
// sched.System through its exported API or formats one of its reports.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/cs-emu/csopesy/config"
	"github.com/cs-emu/csopesy/mem"
	"github.com/cs-emu/csopesy/sched"
)

const (
	logFilePath      = "csopesy-log.txt"
	backingStorePath = "csopesy-backing-store.txt"
	configFilePath   = "config.txt"
)

// Session holds the console's state across commands: the loaded config,
// the running sched.System once `initialize` has succeeded, the
// pre-initialize enable flags, and a counter that assigns process IDs to
// the screens it creates.
type Session struct {
	out io.Writer
	in  *bufio.Scanner

	initialized bool
	cfg         *config.Config
	sys         *sched.System

	enableSleep bool
	enableFor   bool

	nextID atomic.Int64
}

// New builds a Session reading commands from r and writing output to w.
func New(r io.Reader, w io.Writer) *Session {
	return &Session{
		out: w,
		in:  bufio.NewScanner(r),
	}
}

// NewStdio builds a Session over os.Stdin/os.Stdout, the shape
// cmd/csopesy's main uses.
func NewStdio() *Session {
	return New(os.Stdin, os.Stdout)
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// requireInitialized reports the standard error message when a command
// other than initialize/enable/exit runs before `initialize` (spec §6:
// "required before any other command").
func (s *Session) requireInitialized() bool {
	if s.initialized {
		return true
	}
	s.printf("Please run 'initialize' first.\n")
	return false
}

func buildManager(cfg *config.Config, table *sched.Table) mem.Manager {
	if cfg.MemPerFrame >= cfg.MaxOverallMem {
		return mem.NewContiguous(cfg.MaxOverallMem, cfg.MinMemPerProc)
	}
	backing := mem.NewBackingStore(backingStorePath)
	return mem.NewPaging(cfg.MaxOverallMem, cfg.MemPerFrame, backing, table)
}
