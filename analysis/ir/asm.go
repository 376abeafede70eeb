package ir

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cs-au-dk/contra/analysis/defs"
)

var (
	ErrUnknownMnemonic = errors.New("unknown mnemonic")
	ErrUndefinedLabel  = errors.New("undefined label")
	ErrBadOperand      = errors.New("bad operand")
	ErrStackUnderflow  = errors.New("operand stack underflow")
)

// Assemble parses JVM-style assembler text into the instructions and
// handlers of b. One instruction per line; a line may start with a label
// ("L1:"). Comments start with a ';' at the start of a line or after
// whitespace. Jump operands are label names, or instruction indices when no
// such label exists. Handlers are declared with
//
//	.catch <start> <end> <handler> [<class>]
func Assemble(b *Body, text string) error {
	type line struct {
		no     int
		fields []string
		raw    string
	}
	var (
		lines   []line
		catches []line
		labels  = map[string]int{}
	)

	sc := bufio.NewScanner(strings.NewReader(text))
	for no := 1; sc.Scan(); no++ {
		raw := sc.Text()
		if semi := commentStart(raw); semi >= 0 {
			raw = raw[:semi]
		}
		raw = strings.TrimSpace(raw)
		for {
			colon := strings.IndexByte(raw, ':')
			if colon <= 0 || strings.ContainsAny(raw[:colon], " \t\".") {
				break
			}
			labels[raw[:colon]] = len(lines)
			raw = strings.TrimSpace(raw[colon+1:])
		}
		if raw == "" {
			continue
		}
		l := line{no, strings.Fields(raw), raw}
		if l.fields[0] == ".catch" {
			catches = append(catches, l)
			continue
		}
		lines = append(lines, l)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	target := func(name string) (int, error) {
		if idx, ok := labels[name]; ok {
			return idx, nil
		}
		if idx, err := strconv.Atoi(name); err == nil && idx >= 0 && idx <= len(lines) {
			return idx, nil
		}
		return 0, fmt.Errorf("%q: %w", name, ErrUndefinedLabel)
	}

	insns := make([]Instruction, 0, len(lines))
	maxLocals := b.ArgSlots()
	for _, l := range lines {
		in, err := assembleLine(l.fields, l.raw, target)
		if err != nil {
			return fmt.Errorf("line %d: %w", l.no, err)
		}
		if in.Op == Load || in.Op == Store || in.Op == Iinc {
			if n := in.Local + in.Sort.Size(); n > maxLocals {
				maxLocals = n
			}
		}
		insns = append(insns, in)
	}
	for _, in := range insns {
		for _, t := range append([]int{in.Target}, in.Targets...) {
			if t >= len(insns) && (in.Op == Goto || in.IsBranch()) {
				return fmt.Errorf("jump to %d past the end: %w", t, ErrUndefinedLabel)
			}
		}
	}

	handlers := make([]Handler, 0, len(catches))
	for _, c := range catches {
		if len(c.fields) < 4 || len(c.fields) > 5 {
			return fmt.Errorf("line %d: .catch expects start, end, handler and an optional class: %w", c.no, ErrBadOperand)
		}
		var h Handler
		var err error
		for i, dst := range []*int{&h.Start, &h.End, &h.Handler} {
			if *dst, err = target(c.fields[i+1]); err != nil {
				return fmt.Errorf("line %d: %w", c.no, err)
			}
		}
		if len(c.fields) == 5 {
			h.Type = c.fields[4]
		}
		if h.Start >= h.End || h.Handler >= len(insns) {
			return fmt.Errorf("line %d: empty or dangling handler: %w", c.no, ErrBadOperand)
		}
		handlers = append(handlers, h)
	}

	b.Insns, b.Handlers, b.MaxLocals = insns, handlers, maxLocals
	return b.CheckStack()
}

// commentStart finds a ';' outside of string literals that starts the line
// or follows whitespace. Descriptors end in ';' and are never split.
func commentStart(s string) int {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if quoted {
				i++
			}
		case '"':
			quoted = !quoted
		case ';':
			if !quoted && (i == 0 || s[i-1] == ' ' || s[i-1] == '\t') {
				return i
			}
		}
	}
	return -1
}

func assembleLine(fields []string, raw string, target func(string) (int, error)) (Instruction, error) {
	name := fields[0]
	m, ok := mnemonics[name]
	if !ok {
		return Instruction{}, fmt.Errorf("%q: %w", name, ErrUnknownMnemonic)
	}
	in := Make(name)
	args := fields[1:]

	want := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s expects %d operand(s), got %d: %w", name, n, len(args), ErrBadOperand)
		}
		return nil
	}
	num := func(s string) (int64, error) {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %q: %w", name, s, ErrBadOperand)
		}
		return v, nil
	}

	var err error
	switch m.operand {
	case noOperand:
		err = want(0)
	case intOperand:
		if err = want(1); err == nil {
			in.Int, err = num(args[0])
		}
	case localOperand:
		if err = want(1); err == nil {
			var v int64
			if v, err = num(args[0]); err == nil && v < 0 {
				err = fmt.Errorf("negative local %d: %w", v, ErrBadOperand)
			}
			in.Local = int(v)
		}
	case iincOperand:
		if err = want(2); err == nil {
			var v int64
			if v, err = num(args[0]); err == nil {
				in.Local = int(v)
				in.Int, err = num(args[1])
			}
		}
	case labelOperand:
		if err = want(1); err == nil {
			in.Target, err = target(args[0])
		}
	case switchOperand:
		if len(args) == 0 {
			return in, fmt.Errorf("switch without targets: %w", ErrBadOperand)
		}
		for _, a := range args {
			var t int
			if t, err = target(a); err != nil {
				break
			}
			in.Targets = append(in.Targets, t)
		}
	case classOperand:
		if err = want(1); err == nil {
			in.Str = args[0]
		}
	case sortOperand:
		if err = want(1); err == nil {
			in.Str = args[0]
			switch args[0] {
			case "boolean", "byte", "char", "short", "int", "long", "float", "double":
			default:
				err = fmt.Errorf("newarray %q: %w", args[0], ErrBadOperand)
			}
		}
	case fieldOperand:
		if err = want(1); err == nil {
			in.Field, err = parseField(args[0])
			if err == nil {
				in.Sort = in.Field.Type().Sort
			}
		}
	case methodOperand:
		if err = want(1); err == nil {
			in.Call.Method, err = defs.ParseMethod(args[0])
			if err == nil {
				_, _, err = ParseMethodDesc(in.Call.Method.Desc)
			}
		}
	case indyOperand:
		if len(args) == 2 && args[0] == "lambda" {
			in.Call.Lambda = true
			args = args[1:]
		}
		if err = want(1); err == nil {
			paren := strings.IndexByte(args[0], '(')
			if paren <= 0 {
				return in, fmt.Errorf("invokedynamic %q: %w", args[0], ErrBadOperand)
			}
			in.Call.Method = defs.Method{Name: args[0][:paren], Desc: args[0][paren:]}
			in.Call.Kind = InvokeStatic
			_, _, err = ParseMethodDesc(in.Call.Method.Desc)
		}
	case ldcOperand:
		err = parseLdc(&in, strings.TrimSpace(strings.TrimPrefix(raw, name)))
	}
	return in, err
}

func parseField(s string) (Field, error) {
	colon := strings.LastIndexByte(s, ':')
	if colon < 0 {
		return Field{}, fmt.Errorf("field %q: missing descriptor: %w", s, ErrBadOperand)
	}
	dot := strings.LastIndexByte(s[:colon], '.')
	if dot <= 0 || dot == colon-1 {
		return Field{}, fmt.Errorf("field %q: missing owner or name: %w", s, ErrBadOperand)
	}
	f := Field{Owner: s[:dot], Name: s[dot+1 : colon], Desc: s[colon+1:]}
	if _, err := ParseType(f.Desc); err != nil {
		return Field{}, fmt.Errorf("field %q: %w", s, err)
	}
	return f, nil
}

func parseLdc(in *Instruction, arg string) error {
	switch {
	case arg == "":
		return fmt.Errorf("ldc without operand: %w", ErrBadOperand)
	case arg[0] == '"':
		s, err := strconv.Unquote(arg)
		if err != nil {
			return fmt.Errorf("ldc %s: %w", arg, ErrBadOperand)
		}
		in.Sort, in.Const, in.Str = RefSort, ConstString, s
	case arg[0] == 'L' || arg[0] == '[':
		if _, err := ParseType(arg); err != nil {
			return fmt.Errorf("ldc %s: %w", arg, err)
		}
		in.Sort, in.Const, in.Str = RefSort, ConstClass, arg
	default:
		if v, err := strconv.ParseInt(arg, 10, 32); err == nil {
			in.Sort, in.Const, in.Int = IntSort, ConstInt, v
			return nil
		}
		in.Const, in.Str = ConstWide, arg
		body := strings.TrimRight(arg, "LlFfDd")
		if _, err := strconv.ParseFloat(body, 64); err != nil {
			return fmt.Errorf("ldc %s: %w", arg, ErrBadOperand)
		}
		switch arg[len(arg)-1] {
		case 'L', 'l':
			in.Sort = LongSort
		case 'F', 'f':
			in.Sort = FloatSort
		default:
			in.Sort = DoubleSort
		}
	}
	return nil
}
