package pattern

import (
	"fmt"
	"strconv"
)

// Unbounded is the Max of a term quantified with '*', '+' or '{n,}'.
const Unbounded = -1

// MaxRepeat is the largest count accepted inside a '{n,m}' quantifier.
const MaxRepeat = 1000

// Term is a single byte-matching unit repeated between Min and Max times.
type Term struct {
	Set    ByteSet
	Min    int
	Max    int
	Greedy bool
}

type syntax struct {
	begin bool
	end   bool
	terms []Term
}

type parser struct {
	expr string
	pos  int
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &Error{Expr: p.expr, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func parse(expr string) (*syntax, error) {
	p := &parser{expr: expr}
	if expr == "" {
		return nil, p.errorf(0, "empty pattern")
	}

	out := &syntax{}
	if expr[0] == '^' {
		out.begin = true
		p.pos = 1
	}

	for p.pos < len(expr) {
		c := expr[p.pos]
		switch c {
		case '$':
			if p.pos != len(expr)-1 {
				return nil, p.errorf(p.pos, "'$' is only allowed at the end of the pattern")
			}
			out.end = true
			p.pos++
			continue
		case '^':
			return nil, p.errorf(p.pos, "'^' is only allowed at the start of the pattern")
		case '(', ')', '|':
			return nil, p.errorf(p.pos, "unsupported syntax %q", c)
		case '?', '*', '+', '{':
			return nil, p.errorf(p.pos, "quantifier %q has nothing to repeat", c)
		}

		set, err := p.atom()
		if err != nil {
			return nil, err
		}
		term := Term{Set: set, Min: 1, Max: 1, Greedy: true}
		if err := p.quantifier(&term); err != nil {
			return nil, err
		}
		out.terms = append(out.terms, term)
	}

	return out, nil
}

// atom parses one byte-matching unit at p.pos.
func (p *parser) atom() (ByteSet, error) {
	var set ByteSet
	switch p.expr[p.pos] {
	case '.':
		p.pos++
		return FullSet(), nil
	case '[':
		return p.class()
	case '\\':
		b, err := p.escape()
		if err != nil {
			return set, err
		}
		set.Add(b)
		return set, nil
	default:
		set.Add(p.expr[p.pos])
		p.pos++
		return set, nil
	}
}

// escape parses a backslash sequence and returns the byte it denotes.
func (p *parser) escape() (byte, error) {
	start := p.pos
	if start+1 >= len(p.expr) {
		return 0, p.errorf(start, "trailing backslash")
	}
	c := p.expr[start+1]
	switch c {
	case 'x', 'X':
		if start+4 > len(p.expr) {
			return 0, p.errorf(start, "\\x escape needs two hex digits")
		}
		v, err := strconv.ParseUint(p.expr[start+2:start+4], 16, 8)
		if err != nil {
			return 0, p.errorf(start, "invalid hex digits %q in \\x escape", p.expr[start+2:start+4])
		}
		p.pos = start + 4
		return byte(v), nil
	case 'n':
		p.pos = start + 2
		return '\n', nil
	case 'r':
		p.pos = start + 2
		return '\r', nil
	case 't':
		p.pos = start + 2
		return '\t', nil
	case '0':
		p.pos = start + 2
		return 0, nil
	case '\\', '.', '+', '*', '?', '(', ')', '[', ']', '{', '}', '|', '^', '$', '-', '/':
		p.pos = start + 2
		return c, nil
	default:
		return 0, p.errorf(start, "unknown escape \\%c", c)
	}
}

// class parses a bracket expression such as [\x00-\x1F] or [^\xFF].
func (p *parser) class() (ByteSet, error) {
	var set ByteSet
	open := p.pos
	p.pos++
	negate := false
	if p.pos < len(p.expr) && p.expr[p.pos] == '^' {
		negate = true
		p.pos++
	}

	items := 0
	for {
		if p.pos >= len(p.expr) {
			return set, p.errorf(open, "unterminated character class")
		}
		if p.expr[p.pos] == ']' {
			p.pos++
			break
		}
		lo, err := p.classByte()
		if err != nil {
			return set, err
		}
		hi := lo
		if p.pos+1 < len(p.expr) && p.expr[p.pos] == '-' && p.expr[p.pos+1] != ']' {
			rangeAt := p.pos
			p.pos++
			hi, err = p.classByte()
			if err != nil {
				return set, err
			}
			if lo > hi {
				return set, p.errorf(rangeAt, "invalid range %02X-%02X", lo, hi)
			}
		}
		set.AddRange(lo, hi)
		items++
	}

	if items == 0 {
		return set, p.errorf(open, "empty character class")
	}
	if negate {
		set.Negate()
	}
	if set.Len() == 0 {
		return set, p.errorf(open, "character class matches no byte")
	}
	return set, nil
}

func (p *parser) classByte() (byte, error) {
	if p.expr[p.pos] == '\\' {
		return p.escape()
	}
	b := p.expr[p.pos]
	p.pos++
	return b, nil
}

// quantifier parses an optional repetition suffix into t.
func (p *parser) quantifier(t *Term) error {
	if p.pos >= len(p.expr) {
		return nil
	}
	at := p.pos
	switch p.expr[p.pos] {
	case '?':
		t.Min, t.Max = 0, 1
		p.pos++
	case '*':
		t.Min, t.Max = 0, Unbounded
		p.pos++
	case '+':
		t.Min, t.Max = 1, Unbounded
		p.pos++
	case '{':
		if err := p.repeat(t); err != nil {
			return err
		}
	default:
		return nil
	}

	if p.pos < len(p.expr) && p.expr[p.pos] == '?' {
		t.Greedy = false
		p.pos++
	}
	if p.pos < len(p.expr) {
		switch p.expr[p.pos] {
		case '?', '*', '+', '{':
			return p.errorf(p.pos, "quantifier %q follows quantifier at offset %d", p.expr[p.pos], at)
		}
	}
	return nil
}

// repeat parses {n}, {n,} and {n,m}.
func (p *parser) repeat(t *Term) error {
	open := p.pos
	p.pos++
	lo, ok := p.number()
	if !ok {
		return p.errorf(open, "malformed repetition")
	}
	hi := lo
	if p.pos < len(p.expr) && p.expr[p.pos] == ',' {
		p.pos++
		if p.pos < len(p.expr) && p.expr[p.pos] == '}' {
			hi = Unbounded
		} else if hi, ok = p.number(); !ok {
			return p.errorf(open, "malformed repetition")
		}
	}
	if p.pos >= len(p.expr) || p.expr[p.pos] != '}' {
		return p.errorf(open, "unterminated repetition")
	}
	p.pos++

	if lo > MaxRepeat || hi > MaxRepeat {
		return p.errorf(open, "repetition count exceeds %d", MaxRepeat)
	}
	if hi != Unbounded && lo > hi {
		return p.errorf(open, "repetition minimum %d exceeds maximum %d", lo, hi)
	}
	t.Min, t.Max = lo, hi
	return nil
}

func (p *parser) number() (int, bool) {
	start := p.pos
	for p.pos < len(p.expr) && p.expr[p.pos] >= '0' && p.expr[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, false
	}
	if p.pos-start > 4 {
		return MaxRepeat + 1, true
	}
	n, err := strconv.Atoi(p.expr[start:p.pos])
	if err != nil {
		return 0, false
	}
	return n, true
}
