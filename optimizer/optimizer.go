// Package optimizer runs a fixed set of local (peephole) passes over a
// tac.Listing: constant folding, algebraic simplification, copy
// propagation, and dead code elimination. Passes repeat until a full
// round rewrites nothing, capped at maxIterations to guarantee
// termination regardless of input.
package optimizer

import (
	"regexp"

	"tinylang/diag"
	"tinylang/tac"
	"tinylang/token"
)

const maxIterations = 16

var tempName = regexp.MustCompile(`^t[0-9]+$`)

// Optimize rewrites listing in place (conceptually — a new slice is
// returned each pass) and returns the fixed-point result, iterating at
// most the default cap of passes. Removed dead writes (unread
// temporaries and overwritten writes) are reported as WARNING/DEAD_CODE
// diagnostics into bag; unreachable instructions and unreferenced labels
// are dropped without a diagnostic.
func Optimize(listing tac.Listing, bag *diag.Bag) tac.Listing {
	return OptimizeWithLimit(listing, bag, maxIterations)
}

// OptimizeWithLimit behaves like Optimize but iterates at most limit
// times; a caller-configurable cap (e.g. the pipeline's Options) can use
// this directly instead of the package default.
func OptimizeWithLimit(listing tac.Listing, bag *diag.Bag, limit int) tac.Listing {
	current := listing
	for i := 0; i < limit; i++ {
		var changed bool

		current, changed = constantFold(current)
		var c2 bool
		current, c2 = algebraicSimplify(current)
		changed = changed || c2

		current, c2 = copyPropagate(current)
		changed = changed || c2

		current, c2 = eliminateUnreachableAfterJump(current)
		changed = changed || c2

		current, c2 = removeDeadAssignments(current, bag)
		changed = changed || c2

		current, c2 = eliminateOverwrittenWrites(current, bag)
		changed = changed || c2

		current, c2 = removeUnreferencedLabels(current)
		changed = changed || c2

		if !changed {
			break
		}
	}
	return current
}

// ---------------------------------------------------------------------
// Constant folding

// constantFold replaces BINARY/UNARY instructions whose operands are all
// literals with a COPY of the computed value. Division or modulo by a
// literal zero is left untouched so the runtime traps on it instead of
// the compiler silently producing a bogus result.
func constantFold(listing tac.Listing) (tac.Listing, bool) {
	out := make(tac.Listing, len(listing))
	changed := false
	for i, instr := range listing {
		out[i] = instr
		switch instr.Op {
		case tac.OpBinary:
			if folded, ok := foldBinary(instr); ok {
				out[i] = folded
				changed = true
			}
		case tac.OpUnary:
			if folded, ok := foldUnary(instr); ok {
				out[i] = folded
				changed = true
			}
		}
	}
	return out, changed
}

func foldBinary(instr tac.Instr) (tac.Instr, bool) {
	if instr.Lhs.Kind != tac.OperandLiteral || instr.Rhs.Kind != tac.OperandLiteral {
		return instr, false
	}
	lf, lIsFloat, lok := asNumber(instr.Lhs.Literal)
	rf, rIsFloat, rok := asNumber(instr.Rhs.Literal)
	if !lok || !rok {
		return instr, false
	}
	isFloat := lIsFloat || rIsFloat

	switch instr.Operator {
	case token.PLUS:
		return copyOf(instr, numericLiteral(lf+rf, isFloat)), true
	case token.MINUS:
		return copyOf(instr, numericLiteral(lf-rf, isFloat)), true
	case token.STAR:
		return copyOf(instr, numericLiteral(lf*rf, isFloat)), true
	case token.SLASH:
		if rf == 0 {
			return instr, false
		}
		return copyOf(instr, numericLiteral(lf/rf, isFloat)), true
	case token.PERCENT:
		if lIsFloat || rIsFloat || int64(rf) == 0 {
			return instr, false
		}
		return copyOf(instr, int64(lf)%int64(rf)), true
	case token.EQ:
		return copyOf(instr, boolLiteral(lf == rf)), true
	case token.NEQ:
		return copyOf(instr, boolLiteral(lf != rf)), true
	case token.LT:
		return copyOf(instr, boolLiteral(lf < rf)), true
	case token.GT:
		return copyOf(instr, boolLiteral(lf > rf)), true
	case token.LE:
		return copyOf(instr, boolLiteral(lf <= rf)), true
	case token.GE:
		return copyOf(instr, boolLiteral(lf >= rf)), true
	case token.AND:
		return copyOf(instr, boolLiteral(lf != 0 && rf != 0)), true
	case token.OR:
		return copyOf(instr, boolLiteral(lf != 0 || rf != 0)), true
	default:
		return instr, false
	}
}

func foldUnary(instr tac.Instr) (tac.Instr, bool) {
	if instr.Lhs.Kind != tac.OperandLiteral {
		return instr, false
	}
	f, isFloat, ok := asNumber(instr.Lhs.Literal)
	if !ok {
		return instr, false
	}
	switch instr.Operator {
	case token.MINUS:
		return copyOf(instr, numericLiteral(-f, isFloat)), true
	case token.NOT:
		return copyOf(instr, boolLiteral(f == 0)), true
	default:
		return instr, false
	}
}

func copyOf(instr tac.Instr, literal any) tac.Instr {
	return tac.Instr{Op: tac.OpCopy, Dest: instr.Dest, Lhs: tac.Lit(literal)}
}

func numericLiteral(f float64, isFloat bool) any {
	if isFloat {
		return f
	}
	return int64(f)
}

func boolLiteral(b bool) any {
	if b {
		return int64(1)
	}
	return int64(0)
}

// asNumber reduces a literal's underlying Go value to a float64 for
// uniform arithmetic, reporting whether the source value was a float.
func asNumber(v any) (value float64, isFloat bool, ok bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), false, true
	case float64:
		return n, true, true
	case byte:
		return float64(n), false, true
	default:
		return 0, false, false
	}
}

// ---------------------------------------------------------------------
// Algebraic simplification
//
// Identities are only applied when the identity literal is an int64 (not
// a float64): "x * 1.0" must not collapse to "x", because the literal
// 1.0 represents a deliberate int-to-float promotion that the semantic
// analyzer already resolved — dropping it would silently discard that
// conversion. An int64 identity literal never changes the result's
// representation, so folding it away is always safe.

func algebraicSimplify(listing tac.Listing) (tac.Listing, bool) {
	out := make(tac.Listing, len(listing))
	changed := false
	for i, instr := range listing {
		out[i] = instr
		if instr.Op != tac.OpBinary {
			continue
		}
		if simplified, ok := simplifyIdentity(instr); ok {
			out[i] = simplified
			changed = true
		}
	}
	return out, changed
}

func simplifyIdentity(instr tac.Instr) (tac.Instr, bool) {
	isOne := func(o tac.Operand) bool {
		v, ok := o.Literal.(int64)
		return o.Kind == tac.OperandLiteral && ok && v == 1
	}
	isZero := func(o tac.Operand) bool {
		v, ok := o.Literal.(int64)
		return o.Kind == tac.OperandLiteral && ok && v == 0
	}

	switch instr.Operator {
	case token.STAR:
		if isOne(instr.Rhs) {
			return copyFrom(instr, instr.Lhs), true
		}
		if isOne(instr.Lhs) {
			return copyFrom(instr, instr.Rhs), true
		}
		if isZero(instr.Rhs) || isZero(instr.Lhs) {
			return copyOf(instr, int64(0)), true
		}
	case token.PLUS:
		if isZero(instr.Rhs) {
			return copyFrom(instr, instr.Lhs), true
		}
		if isZero(instr.Lhs) {
			return copyFrom(instr, instr.Rhs), true
		}
	case token.MINUS:
		if isZero(instr.Rhs) {
			return copyFrom(instr, instr.Lhs), true
		}
	case token.SLASH:
		if isOne(instr.Rhs) {
			return copyFrom(instr, instr.Lhs), true
		}
	}
	return instr, false
}

func copyFrom(instr tac.Instr, src tac.Operand) tac.Instr {
	return tac.Instr{Op: tac.OpCopy, Dest: instr.Dest, Lhs: src}
}

// ---------------------------------------------------------------------
// Copy propagation
//
// Tracks "Dest currently equals name X" as a forward alias map. Any read
// of Dest is rewritten to read X instead, until either Dest or X is
// reassigned (at which point the alias is invalidated): "t = x; y = t"
// becomes "t = x; y = x", after which dead code elimination can drop the
// now-unused "t = x" if t is a temporary.

func copyPropagate(listing tac.Listing) (tac.Listing, bool) {
	alias := map[string]string{}
	changed := false

	invalidate := func(name string) {
		delete(alias, name)
		for k, v := range alias {
			if v == name {
				delete(alias, k)
			}
		}
	}
	resolve := func(o tac.Operand) tac.Operand {
		if o.Kind == tac.OperandName {
			if src, ok := alias[o.Name]; ok {
				changed = true
				return tac.Ref(src)
			}
		}
		return o
	}

	out := make(tac.Listing, len(listing))
	for i, instr := range listing {
		switch instr.Op {
		case tac.OpCopy:
			instr.Lhs = resolve(instr.Lhs)
			invalidate(instr.Dest)
			if instr.Lhs.Kind == tac.OperandName {
				alias[instr.Dest] = instr.Lhs.Name
			}
		case tac.OpBinary:
			instr.Lhs = resolve(instr.Lhs)
			instr.Rhs = resolve(instr.Rhs)
			invalidate(instr.Dest)
		case tac.OpUnary:
			instr.Lhs = resolve(instr.Lhs)
			invalidate(instr.Dest)
		case tac.OpIfFalse, tac.OpIfTrue, tac.OpParam, tac.OpPrint, tac.OpRet:
			instr.Lhs = resolve(instr.Lhs)
		case tac.OpCall:
			if instr.HasResult {
				invalidate(instr.Dest)
			}
		case tac.OpInput, tac.OpAlloc:
			invalidate(instr.Dest)
		}
		out[i] = instr
	}
	return out, changed
}

// ---------------------------------------------------------------------
// Unreachable-after-jump elimination

// eliminateUnreachableAfterJump drops instructions following an
// unconditional GOTO or RET up to (not including) the next LABEL.
func eliminateUnreachableAfterJump(listing tac.Listing) (tac.Listing, bool) {
	var out tac.Listing
	changed := false
	dead := false
	for _, instr := range listing {
		if instr.Op == tac.OpLabel {
			dead = false
		}
		if dead {
			changed = true
			continue
		}
		out = append(out, instr)
		if instr.Op == tac.OpGoto || instr.Op == tac.OpRet {
			dead = true
		}
	}
	return out, changed
}

// ---------------------------------------------------------------------
// Dead assignment elimination
//
// This pass catches compiler-generated temporaries that go completely
// unread anywhere in the listing, using a whole-listing read count: a
// temporary with a zero count is never needed on any path, so every
// write to it (the short-circuit result temporaries of && and || get
// two) can be dropped. It does not catch
// a named variable written twice in a row before either write is read
// ("x = 10; x = 20;") — eliminateOverwrittenWrites below handles that
// case for both temporaries and named variables.

func removeDeadAssignments(listing tac.Listing, bag *diag.Bag) (tac.Listing, bool) {
	reads := map[string]int{}
	for _, instr := range listing {
		countReads(instr, reads)
	}

	var out tac.Listing
	changed := false
	for _, instr := range listing {
		if isDeadTempAssignment(instr, reads) {
			bag.Warning(diag.DeadCode, 0, "removed unused temporary '%s'", instr.Dest)
			changed = true
			continue
		}
		out = append(out, instr)
	}
	return out, changed
}

func isDeadTempAssignment(instr tac.Instr, reads map[string]int) bool {
	switch instr.Op {
	case tac.OpCopy, tac.OpBinary, tac.OpUnary:
		return tempName.MatchString(instr.Dest) && reads[instr.Dest] == 0
	default:
		return false
	}
}

func countReads(instr tac.Instr, reads map[string]int) {
	count := func(o tac.Operand) {
		if o.Kind == tac.OperandName {
			reads[o.Name]++
		}
	}
	switch instr.Op {
	case tac.OpCopy, tac.OpUnary:
		count(instr.Lhs)
	case tac.OpBinary:
		count(instr.Lhs)
		count(instr.Rhs)
	case tac.OpIfFalse, tac.OpIfTrue, tac.OpParam, tac.OpPrint, tac.OpRet:
		count(instr.Lhs)
	}
}

// ---------------------------------------------------------------------
// Overwritten-write elimination
//
// A forward scan tracking, per name, the index of its most recent write
// that has not yet been read ("pending"). A second write to a name that
// still has a pending write means the pending one was never read before
// being clobbered, so it is dead regardless of whether the name is a
// temporary or a source variable: "x = 10; x = 20; print x;" leaves only
// the second assignment. Reading a name clears its pending status.
//
// Execution order can't be assumed to continue linearly past a label
// (it may have more than one predecessor), a branch (the two arms
// diverge), a call (opaque side effects on globals this pass doesn't
// model), or a return, so every such boundary clears the whole pending
// map rather than risk treating two writes on different control-flow
// paths as if one overwrote the other.
//
// ALLOC and INPUT are themselves overwrite events — a pending prior
// write to the same name is dead either way — but neither becomes a new
// pending entry: ALLOC is a declaration codegen needs for its data
// section, and INPUT has an observable side effect (consuming a token
// from input) independent of whether the loaded value is ever read.

func eliminateOverwrittenWrites(listing tac.Listing, bag *diag.Bag) (tac.Listing, bool) {
	dead := make([]bool, len(listing))
	pending := map[string]int{}

	clearPending := func() {
		for k := range pending {
			delete(pending, k)
		}
	}
	read := func(o tac.Operand) {
		if o.Kind == tac.OperandName {
			delete(pending, o.Name)
		}
	}
	write := func(name string, i int) {
		if prev, ok := pending[name]; ok {
			dead[prev] = true
		}
		pending[name] = i
	}
	overwriteOnly := func(name string) {
		if prev, ok := pending[name]; ok {
			dead[prev] = true
		}
		delete(pending, name)
	}

	for i, instr := range listing {
		switch instr.Op {
		case tac.OpCopy, tac.OpUnary:
			read(instr.Lhs)
			write(instr.Dest, i)
		case tac.OpBinary:
			read(instr.Lhs)
			read(instr.Rhs)
			write(instr.Dest, i)
		case tac.OpAlloc, tac.OpInput:
			overwriteOnly(instr.Dest)
		case tac.OpIfFalse, tac.OpIfTrue:
			read(instr.Lhs)
			clearPending()
		case tac.OpParam, tac.OpPrint:
			read(instr.Lhs)
		case tac.OpRet:
			read(instr.Lhs)
			clearPending()
		case tac.OpCall:
			if instr.HasResult {
				write(instr.Dest, i)
			}
			clearPending()
		case tac.OpLabel, tac.OpGoto:
			clearPending()
		}
	}

	var out tac.Listing
	changed := false
	for i, instr := range listing {
		if dead[i] {
			bag.Warning(diag.DeadCode, 0, "removed dead write to '%s'", instr.Dest)
			changed = true
			continue
		}
		out = append(out, instr)
	}
	return out, changed
}

// ---------------------------------------------------------------------
// Unreferenced label removal

// removeUnreferencedLabels drops a LABEL only when nothing jumps or
// calls into it AND it has no fall-through predecessor (i.e. the
// preceding instruction, if any, is itself an unconditional transfer).
func removeUnreferencedLabels(listing tac.Listing) (tac.Listing, bool) {
	referenced := map[string]bool{}
	for _, instr := range listing {
		switch instr.Op {
		case tac.OpGoto, tac.OpIfFalse, tac.OpIfTrue, tac.OpCall:
			if instr.Label != "" {
				referenced[instr.Label] = true
			}
		}
	}

	var out tac.Listing
	changed := false
	var prevOp tac.Op
	hasPrev := false
	for _, instr := range listing {
		if instr.Op == tac.OpLabel && !referenced[instr.Label] {
			fallsThrough := hasPrev && prevOp != tac.OpGoto && prevOp != tac.OpRet
			if !fallsThrough {
				changed = true
				continue
			}
		}
		out = append(out, instr)
		prevOp = instr.Op
		hasPrev = true
	}
	return out, changed
}
