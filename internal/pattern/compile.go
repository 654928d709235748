package pattern

type opcode uint8

const (
	opByte opcode = iota
	opSplit
	opBegin
	opEnd
	opMatch
)

// maxInsts bounds the size of a compiled program.
const maxInsts = 1 << 17

// inst is one program instruction. For opSplit, out is the preferred branch
// and alt the fallback; opByte consumes one byte in sets[set] and goes to out.
type inst struct {
	op  opcode
	set int
	out int
	alt int
}

type program struct {
	insts []inst
	sets  []ByteSet
}

type compiler struct {
	expr string
	prog program
}

func compile(expr string, syn *syntax) (*program, error) {
	c := &compiler{expr: expr}
	if syn.begin {
		c.emit(inst{op: opBegin})
	}
	for i := range syn.terms {
		if err := c.term(&syn.terms[i]); err != nil {
			return nil, err
		}
	}
	if syn.end {
		c.emit(inst{op: opEnd})
	}
	c.emit(inst{op: opMatch})
	if len(c.prog.insts) > maxInsts {
		return nil, &Error{Expr: expr, Pos: 0, Msg: "pattern too large"}
	}
	return &c.prog, nil
}

// emit appends in and links it to the next instruction.
func (c *compiler) emit(in inst) int {
	pc := len(c.prog.insts)
	if in.op != opMatch && in.op != opSplit {
		in.out = pc + 1
	}
	c.prog.insts = append(c.prog.insts, in)
	return pc
}

func (c *compiler) term(t *Term) error {
	if t.Max == 0 {
		return nil
	}
	set := len(c.prog.sets)
	c.prog.sets = append(c.prog.sets, t.Set)

	for range t.Min {
		c.emit(inst{op: opByte, set: set})
		if len(c.prog.insts) > maxInsts {
			return &Error{Expr: c.expr, Pos: 0, Msg: "pattern too large"}
		}
	}

	if t.Max == Unbounded {
		// L: split(L+1, exit); L+1: byte -> L
		loop := c.emit(inst{op: opSplit})
		body := c.emit(inst{op: opByte, set: set})
		c.prog.insts[body].out = loop
		c.branch(loop, body, body+1, t.Greedy)
		return nil
	}

	// Each optional copy may skip straight past the remaining copies.
	var splits []int
	for range t.Max - t.Min {
		splits = append(splits, c.emit(inst{op: opSplit}))
		c.emit(inst{op: opByte, set: set})
		if len(c.prog.insts) > maxInsts {
			return &Error{Expr: c.expr, Pos: 0, Msg: "pattern too large"}
		}
	}
	exit := len(c.prog.insts)
	for _, pc := range splits {
		c.branch(pc, pc+1, exit, t.Greedy)
	}
	return nil
}

// branch points a split at body and exit, preferring body when greedy.
func (c *compiler) branch(pc, body, exit int, greedy bool) {
	if greedy {
		c.prog.insts[pc].out, c.prog.insts[pc].alt = body, exit
		return
	}
	c.prog.insts[pc].out, c.prog.insts[pc].alt = exit, body
}
