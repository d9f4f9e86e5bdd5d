package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cs-emu/csopesy/config"
	"github.com/cs-emu/csopesy/proc"
	"github.com/cs-emu/csopesy/sched"
)

// Dispatch parses and runs one command line. It returns false when the
// session should exit (the `exit` command at the top level).
func (s *Session) Dispatch(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	fields := strings.Fields(line)
	cmd := fields[0]

	if !s.initialized {
		switch cmd {
		case "initialize":
			s.cmdInitialize()
		case "enable":
			s.cmdEnable(fields[1:])
		case "exit":
			return false
		case "clear", "cls":
			s.cmdClear()
		default:
			s.printf("Please run 'initialize' first.\n")
		}
		return true
	}

	switch cmd {
	case "initialize":
		s.printf("Already initialized.\n")
	case "scheduler-start":
		s.cmdSchedulerStart()
	case "scheduler-stop":
		s.cmdSchedulerStop()
	case "screen":
		s.cmdScreen(fields[1:])
	case "report-util":
		s.cmdReportUtil()
	case "process-smi":
		s.cmdProcessSMIAll()
	case "vmstat":
		s.printf("%s", s.sys.VMStatReport())
	case "clear", "cls":
		s.cmdClear()
	case "exit":
		s.cmdSchedulerStop()
		return false
	default:
		s.printf("Unknown command: %s\n", cmd)
	}
	return true
}

// cmdInitialize loads config.txt, builds the table and memory manager, and
// constructs the System, matching spec §6's "load config, size running
// slots, initialize memory".
func (s *Session) cmdInitialize() {
	cfg, err := config.Load(configFilePath)
	if err != nil {
		s.printf("initialize: %v\n", err)
		return
	}
	for _, w := range cfg.Warnings() {
		s.printf("config warning: %s\n", w)
	}

	table := sched.NewTable(cfg.NumCPU)
	mgr := buildManager(cfg, table)
	s.sys = sched.New(cfg, mgr,
		sched.WithTable(table),
		sched.WithSleepEnabled(s.enableSleep),
		sched.WithForEnabled(s.enableFor),
	)
	s.cfg = cfg
	s.initialized = true
	s.printf("Initialized. num-cpu=%d scheduler=%s\n", cfg.NumCPU, cfg.SchedulerKind)
}

// cmdEnable implements the pre-initialize `enable SLEEP` / `enable FOR`
// toggles (SPEC_FULL.md's supplemented feature, grounded on menu.cpp).
func (s *Session) cmdEnable(args []string) {
	if len(args) != 1 {
		s.printf("Usage: enable SLEEP|FOR\n")
		return
	}
	switch strings.ToUpper(args[0]) {
	case "SLEEP":
		s.enableSleep = true
		s.printf("SLEEP generation enabled.\n")
	case "FOR":
		s.enableFor = true
		s.printf("FOR generation enabled.\n")
	default:
		s.printf("Usage: enable SLEEP|FOR\n")
	}
}

func (s *Session) cmdSchedulerStart() {
	if s.sys.Running() {
		s.printf("Scheduler already started.\n")
		return
	}
	if err := s.sys.Start(); err != nil {
		s.printf("scheduler-start: %v\n", err)
		return
	}
	s.printf("Scheduler started.\n")
}

func (s *Session) cmdSchedulerStop() {
	if !s.sys.Running() {
		return
	}
	s.sys.Stop()
	s.printf("Scheduler stopped.\n")
}

func (s *Session) cmdClear() {
	fmt.Fprint(s.out, "\033[H\033[2J")
}

// cmdScreen dispatches the `screen -s/-c/-r/-ls` family (spec §6).
func (s *Session) cmdScreen(args []string) {
	if !s.requireInitialized() {
		return
	}
	if len(args) == 0 {
		s.printf("Usage: screen -s <name> <mem> | -c <name> <mem> \"i1;i2;...\" | -r <name> | -ls\n")
		return
	}

	switch args[0] {
	case "-s":
		s.cmdScreenStart(args[1:])
	case "-c":
		s.cmdScreenCustom(args[1:])
	case "-r":
		s.cmdScreenResume(args[1:])
	case "-ls":
		s.printf("%s", s.sys.SystemReport())
	default:
		s.printf("Unknown screen option: %s\n", args[0])
	}
}

// cmdScreenStart implements `screen -s <name> <mem>`: mem must be a power
// of two in [64, 65536] (spec §6).
func (s *Session) cmdScreenStart(args []string) {
	if len(args) != 2 {
		s.printf("Usage: screen -s <name> <mem>\n")
		return
	}
	name, memStr := args[0], args[1]
	memReq, err := strconv.Atoi(memStr)
	if err != nil || !isValidMemSize(memReq) {
		s.printf("Invalid memory size %q: must be a power of two in [64, 65536].\n", memStr)
		return
	}
	p := proc.New(int(s.nextID.Add(1)), name, s.cfg.MaxIns, memReq, nil)
	if !s.sys.Submit(p) {
		s.printf("A process named %q already exists.\n", name)
		return
	}
	s.printf("Process %q registered (%d bytes).\n", name, memReq)
}

// cmdScreenCustom implements `screen -c <name> <mem> "i1;i2;..."`: it
// registers a process whose program is the 1-50 semicolon-separated
// instructions (spec §6 and SPEC_FULL.md's supplemented feature note). The
// process is queued like any other and runs once the scheduler binds it to
// a core; the command does not wait for it to execute.
func (s *Session) cmdScreenCustom(args []string) {
	if len(args) < 3 {
		s.printf("Usage: screen -c <name> <mem> \"i1;i2;...\"\n")
		return
	}
	name, memStr, program := args[0], args[1], strings.Join(args[2:], " ")
	memReq, err := strconv.Atoi(memStr)
	if err != nil || !isValidMemSize(memReq) {
		s.printf("Invalid memory size %q: must be a power of two in [64, 65536].\n", memStr)
		return
	}

	program = strings.TrimSuffix(strings.TrimPrefix(program, `"`), `"`)
	var lines []string
	for _, part := range strings.Split(program, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lines = append(lines, part)
	}
	if len(lines) < 1 || len(lines) > 50 {
		s.printf("screen -c requires between 1 and 50 instructions, got %d.\n", len(lines))
		return
	}

	p := proc.New(int(s.nextID.Add(1)), name, len(lines), memReq, lines)
	if !s.sys.Submit(p) {
		s.printf("A process named %q already exists.\n", name)
		return
	}
	s.printf("Process %q registered with %d custom instructions.\n", name, len(lines))
}

// cmdScreenResume implements `screen -r <name>`: report not-found, the
// cancellation message, or a live process-smi panel (spec §6).
func (s *Session) cmdScreenResume(args []string) {
	if len(args) != 1 {
		s.printf("Usage: screen -r <name>\n")
		return
	}
	name := args[0]
	p, ok := s.sys.Table().Lookup(name)
	if !ok {
		s.printf("Process %q not found.\n", name)
		return
	}
	if p.State() == proc.Cancelled {
		if rec, ok := s.sys.Table().CancellationFor(name); ok {
			s.printf("%s\n", sched.ViolationMessage(rec))
			return
		}
	}
	s.printf("%s", s.sys.ProcessSMI(p))
}

// cmdReportUtil prints the system report and appends it to csopesy-log.txt
// with a timestamp header, matching original_source/menu.cpp's
// report-util handler (SPEC_FULL.md's Open Question #3: writes enabled).
func (s *Session) cmdReportUtil() {
	report := s.sys.SystemReport()
	s.printf("%s", report)

	header := fmt.Sprintf("=== SYSTEM REPORT SAVED AT %s ===\n", time.Now().Format("01/02/2006 03:04:05 PM"))
	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.printf("report-util: %v\n", err)
		return
	}
	defer func() { _ = f.Close() }()
	_, _ = f.WriteString(header)
	_, _ = f.WriteString(report)
	_, _ = f.WriteString("\n")
}

// cmdProcessSMIAll prints the aggregate CPU/memory utilization panel
// (spec §4.8), then every PCB's process-smi panel in table order:
// running, then finished.
func (s *Session) cmdProcessSMIAll() {
	s.printf("%s\n", s.sys.ProcessSMISummary())
	for _, p := range s.sys.Table().RunningSnapshot() {
		if p != nil {
			s.printf("%s\n", s.sys.ProcessSMI(p))
		}
	}
	for _, p := range s.sys.Table().Finished() {
		s.printf("%s\n", s.sys.ProcessSMI(p))
	}
}

// isValidMemSize reports whether n is a power of two in [64, 65536], the
// bound `screen -s`/`screen -c` enforce on an operator-supplied memory
// requirement (spec §6).
func isValidMemSize(n int) bool {
	if n < 64 || n > 65536 {
		return false
	}
	return n&(n-1) == 0
}
