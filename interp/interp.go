// Package interp evaluates a parsed instr.Instruction against a process's
// symbol table and virtual address space. It is the one place arithmetic
// saturation, hex-address parsing, and PRINT substitution happen, grounded
// on original_source/instructions.cpp's executeInstructionSet family.
package interp

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cs-emu/csopesy/instr"
	"github.com/cs-emu/csopesy/mem"
	"github.com/cs-emu/csopesy/proc"
)

// Interpreter ties an instruction stream to one memory manager. Per
// original_source's exceptions-for-control-flow note (spec §9), a memory
// violation surfaces as a returned *mem.ViolationError rather than a panic;
// callers use errors.As to detect it.
type Interpreter struct {
	mgr          mem.Manager
	delayPerExec time.Duration
	diagnostics  io.Writer
}

// Option configures an Interpreter at construction time.
type Option func(*Interpreter)

// WithDelayPerExec sets the real-time duration one SLEEP tick represents.
func WithDelayPerExec(d time.Duration) Option {
	return func(i *Interpreter) { i.delayPerExec = d }
}

// WithDiagnostics routes non-fatal interpreter diagnostics (a too-deeply
// nested FOR being skipped) to w. Defaults to io.Discard.
func WithDiagnostics(w io.Writer) Option {
	return func(i *Interpreter) { i.diagnostics = w }
}

// New builds an Interpreter backed by mgr.
func New(mgr mem.Manager, opts ...Option) *Interpreter {
	i := &Interpreter{mgr: mgr, diagnostics: io.Discard}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Execute runs one top-level instruction line against p.
func (i *Interpreter) Execute(p *proc.PCB, line string) error {
	ins, err := instr.Parse(line)
	if err != nil {
		return err
	}
	return i.exec(p, ins, 0)
}

func (i *Interpreter) exec(p *proc.PCB, ins instr.Instruction, depth int) error {
	switch ins.Op {
	case instr.OpDeclare:
		return i.declare(p, ins.Args)
	case instr.OpAdd:
		return i.arith(p, ins.Args, true)
	case instr.OpSubtract:
		return i.arith(p, ins.Args, false)
	case instr.OpRead:
		return i.read(p, ins.Args)
	case instr.OpWrite:
		return i.write(p, ins.Args)
	case instr.OpPrint:
		return i.print(p, ins.Args)
	case instr.OpSleep:
		return i.sleep(ins.Args)
	case instr.OpFor:
		return i.forLoop(p, ins, depth)
	default:
		return fmt.Errorf("interp: unhandled opcode %q", ins.Op)
	}
}

func (i *Interpreter) declare(p *proc.PCB, args []string) error {
	if len(args) < 2 {
		return nil
	}
	p.Symbols.Set(args[0], parseLiteral(args[1]))
	return nil
}

// val resolves an operand: a known symbol's value, else a parsed decimal
// literal, else 0 (spec §4.7's `val(x)`).
func val(p *proc.PCB, operand string) uint16 {
	if v, ok := p.Symbols.Get(operand); ok {
		return v
	}
	return parseLiteral(operand)
}

func parseLiteral(s string) uint16 {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(n)
}

func (i *Interpreter) arith(p *proc.PCB, args []string, add bool) error {
	if len(args) < 3 {
		return nil
	}
	dst, a, b := args[0], args[1], args[2]
	va, vb := val(p, a), val(p, b)

	var result uint16
	if add {
		sum := uint32(va) + uint32(vb)
		if sum > 65535 {
			sum = 65535
		}
		result = uint16(sum)
	} else {
		diff := int32(va) - int32(vb)
		if diff < 0 {
			diff = 0
		}
		result = uint16(diff)
	}
	p.Symbols.Set(dst, result)
	return nil
}

// parseAddress requires a "0x"/"0X"-prefixed hex literal (spec §4.7).
func parseAddress(s string) (int, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, &mem.ViolationError{AddressLiteral: s}
	}
	n, err := strconv.ParseInt(s[2:], 16, 64)
	if err != nil {
		return 0, &mem.ViolationError{AddressLiteral: s}
	}
	return int(n), nil
}

func (i *Interpreter) read(p *proc.PCB, args []string) error {
	if len(args) < 2 {
		return nil
	}
	dst, addrLiteral := args[0], args[1]
	addr, err := parseAddress(addrLiteral)
	if err != nil {
		return err
	}
	v, err := i.mgr.Read(p, addr)
	if err != nil {
		if verr, ok := err.(*mem.ViolationError); ok {
			verr.AddressLiteral = addrLiteral
		}
		return err
	}
	p.Symbols.Set(dst, v)
	return nil
}

func (i *Interpreter) write(p *proc.PCB, args []string) error {
	if len(args) < 2 {
		return nil
	}
	addrLiteral, valueArg := args[0], args[1]
	addr, err := parseAddress(addrLiteral)
	if err != nil {
		return err
	}
	err = i.mgr.Write(p, addr, val(p, valueArg))
	if verr, ok := err.(*mem.ViolationError); ok {
		verr.AddressLiteral = addrLiteral
	}
	return err
}

func (i *Interpreter) print(p *proc.PCB, args []string) error {
	text := ""
	if len(args) > 0 {
		text = args[0]
	}
	if text == "" {
		text = fmt.Sprintf("Hello world from %s!", p.Name)
	}
	p.AppendLog(substitute(text, p.Symbols))
	return nil
}

// substitute replaces every whole-token occurrence of a known symbol name
// in text with its decimal value. "Whole-token" matches original_source's
// manual alnum/underscore boundary check; Go's \b is defined over the same
// [0-9A-Za-z_] word class, so a plain \bname\b anchor is equivalent.
func substitute(text string, symbols *proc.SymbolTable) string {
	snap := symbols.Snapshot()
	if len(snap) == 0 {
		return text
	}

	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, regexp.QuoteMeta(name))
	}
	sort.Strings(names)

	re := regexp.MustCompile(`\b(` + strings.Join(names, "|") + `)\b`)
	return re.ReplaceAllStringFunc(text, func(tok string) string {
		return strconv.FormatUint(uint64(snap[tok]), 10)
	})
}

func (i *Interpreter) sleep(args []string) error {
	if len(args) < 1 {
		return nil
	}
	n, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil || n == 0 {
		return nil
	}
	time.Sleep(i.delayPerExec * time.Duration(n))
	return nil
}

func (i *Interpreter) forLoop(p *proc.PCB, ins instr.Instruction, depth int) error {
	if depth >= instr.MaxForNesting {
		fmt.Fprintf(i.diagnostics, "Maximum nesting level (%d) reached. Skipping nested FOR loop.\n", instr.MaxForNesting)
		return nil
	}

	body := make([]instr.Instruction, 0, len(ins.ForBody))
	for _, line := range ins.ForBody {
		parsed, err := instr.Parse(line)
		if err != nil {
			continue // a malformed FOR body line is skipped, not fatal
		}
		body = append(body, parsed)
	}

	for n := 0; n < ins.ForRepeats; n++ {
		for _, sub := range body {
			if err := i.exec(p, sub, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
