// Package text implements the reference backend.Backend: it renders an
// ir.Module as flat, deterministic assembly-like text, one line per
// instruction/terminator, grouped by function and block label. Grounded on
// the pack's bytecode-compiler example's disassembly convention
// (other_examples' mna-nenuphar lang compiler renders its own instruction
// stream the same line-per-op way for debug dumps) — there is no real
// object-file format here, just a stable text form golden-file tests can
// diff against.
package text

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mkerian10/pluto/internal/codegen/backend"
	"github.com/mkerian10/pluto/internal/codegen/ir"
)

type Backend struct{}

func New() *Backend { return &Backend{} }

var _ backend.Backend = (*Backend)(nil)

func (*Backend) Name() string { return "text" }

func (*Backend) Emit(mod *ir.Module) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "; module app_main=%s\n", mod.AppMain)
	if len(mod.DIOrder) > 0 {
		fmt.Fprintf(&b, "; di_order %s\n", strings.Join(mod.DIOrder, ","))
	}
	if len(mod.TestEntries) > 0 {
		entries := append([]string(nil), mod.TestEntries...)
		sort.Strings(entries)
		fmt.Fprintf(&b, "; test_entries %s\n", strings.Join(entries, ","))
	}

	for _, fn := range mod.Functions {
		fmt.Fprintf(&b, "\nfunc %s(%s) fallible=%v {\n", fn.Name, strings.Join(fn.Params, ", "), fn.IsFallible)
		for _, blk := range fn.Blocks {
			fmt.Fprintf(&b, "%s:\n", blk.Label)
			for _, ins := range blk.Instrs {
				fmt.Fprintf(&b, "    %s\n", formatInstr(ins))
			}
			fmt.Fprintf(&b, "    %s\n", formatTerm(blk.Term))
		}
		b.WriteString("}\n")
	}

	return []byte(b.String()), nil
}

func formatInstr(ins ir.Instruction) string {
	var parts []string
	if ins.Dst != "" {
		parts = append(parts, ins.Dst, "=")
	}
	parts = append(parts, opName(ins.Op))
	if ins.Str != "" {
		parts = append(parts, fmt.Sprintf("%q", ins.Str))
	}
	if len(ins.Args) > 0 {
		parts = append(parts, strings.Join(ins.Args, ", "))
	}
	if ins.Imm != 0 {
		parts = append(parts, fmt.Sprintf("imm=%d", ins.Imm))
	}
	return strings.Join(parts, " ")
}

func formatTerm(t ir.Terminator) string {
	switch t.Kind {
	case ir.TermReturn:
		if t.Value == "" {
			return "return"
		}
		return "return " + t.Value
	case ir.TermJump:
		return "jump " + t.Target
	case ir.TermBranch:
		return fmt.Sprintf("branch %s, %s, %s", t.Value, t.Target, t.Alt)
	default:
		return "unreachable"
	}
}

var opNames = map[ir.Op]string{
	ir.OpConstInt: "const.int", ir.OpConstFloat: "const.float", ir.OpConstBool: "const.bool",
	ir.OpConstByte: "const.byte", ir.OpConstString: "const.str",
	ir.OpAdd: "add", ir.OpSub: "sub", ir.OpMul: "mul", ir.OpDiv: "div", ir.OpMod: "mod",
	ir.OpEq: "eq", ir.OpNeq: "neq", ir.OpLt: "lt", ir.OpLte: "lte", ir.OpGt: "gt", ir.OpGte: "gte",
	ir.OpAnd: "and", ir.OpOr: "or", ir.OpBitAnd: "bitand", ir.OpBitOr: "bitor", ir.OpBitXor: "bitxor",
	ir.OpShl: "shl", ir.OpShr: "shr", ir.OpNeg: "neg", ir.OpNot: "not", ir.OpBitNot: "bitnot",
	ir.OpLoadLocal: "load.local", ir.OpStoreLocal: "store.local",
	ir.OpLoadField: "load.field", ir.OpStoreField: "store.field",
	ir.OpAlloc: "alloc", ir.OpCall: "call", ir.OpCallRuntime: "call.rt",
	ir.OpClosureCreate: "closure.create", ir.OpSpawnTask: "spawn",
	ir.OpChanMake: "chan.make", ir.OpChanSend: "chan.send", ir.OpChanRecv: "chan.recv",
	ir.OpContractCheck: "contract.check", ir.OpOldSnapshot: "old.snapshot",
	ir.OpRaise: "raise", ir.OpPropagateCheck: "propagate.check",
}

func opName(op ir.Op) string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return fmt.Sprintf("op(%d)", op)
}
