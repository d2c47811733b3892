// Package vm implements the stack-based bytecode interpreter: the runtime
// environment a compiler.Chunk executes in.
package vm

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"

	"rqalam/compiler"
	"rqalam/value"
)

// VM is a stack-based virtual machine. It owns the value stack and the
// globals table outright; no instruction handler is given a reference to
// either that outlives a single dispatch step.
type VM struct {
	stack   Stack
	globals map[string]value.Value
	frames  []string
	ip      int
	chunk   *compiler.Chunk
	out     io.Writer
	debug   bool
}

// New creates an empty VM: empty stack, empty globals, a single call
// frame for the top-level script.
func New() *VM {
	return &VM{
		globals: make(map[string]value.Value),
		frames:  []string{"__main__"},
		out:     os.Stdout,
	}
}

// SetOutput redirects qul's output; a VM made by New writes to stdout.
func (vm *VM) SetOutput(w io.Writer) { vm.out = w }

// SetDebug toggles per-opcode trace logging via logrus.
func (vm *VM) SetDebug(debug bool) { vm.debug = debug }

// Interpret compiles src and runs the resulting chunk to completion.
func (vm *VM) Interpret(src string) error {
	chunk, err := compiler.New(src).Compile()
	if err != nil {
		return err
	}
	return vm.Run(chunk)
}

// Run executes chunk to completion, starting at ip 0. Per §4.6, each
// dispatched instruction returns either 0 ("advance by one instruction")
// or a nonzero destination ip; the loop runs until ip reaches the end of
// the code, or a RuntimeError aborts execution.
func (vm *VM) Run(chunk *compiler.Chunk) error {
	vm.chunk = chunk
	vm.ip = 0
	entryFrames := len(vm.frames)

	for vm.ip < len(chunk.Code) {
		op := compiler.Opcode(chunk.Code[vm.ip])
		line := chunk.Lines[vm.ip]
		width := instructionWidth(chunk, vm.ip)

		if vm.debug {
			logrus.Debugf("ip=%04d line=%d op=%v stack=%v", vm.ip, line, op, vm.stack)
		}

		next, err := vm.dispatch(op, line)
		if err != nil {
			return err
		}

		if len(vm.frames) < entryFrames {
			vm.stack.Pop()
			return nil
		}

		// A loop can start at ip 0, so LOOP_JUMP's destination is always taken.
		if next != 0 || op == compiler.OP_LOOP_JUMP {
			vm.ip = next
		} else {
			vm.ip += width
		}
	}
	return nil
}

func instructionWidth(chunk *compiler.Chunk, offset int) int {
	op := compiler.Opcode(chunk.Code[offset])
	def, err := compiler.Get(op)
	if err != nil {
		return 1
	}
	width := 1
	for _, w := range def.OperandWidths {
		width += w
	}
	return width
}

func (vm *VM) operand16() uint16 {
	hi := vm.chunk.Code[vm.ip+1]
	lo := vm.chunk.Code[vm.ip+2]
	return uint16(hi)<<8 | uint16(lo)
}

// dispatch executes the instruction at vm.ip and returns the jump
// convention of §4.5: 0 means advance by the instruction's own width,
// nonzero is an absolute destination ip.
func (vm *VM) dispatch(op compiler.Opcode, line int) (int, error) {
	switch op {
	case compiler.OP_CONSTANT:
		idx := vm.operand16()
		vm.stack.Push(vm.chunk.Constants[idx])

	case compiler.OP_NEGATE:
		v, _ := vm.stack.Pop()
		if v.Kind != value.Number {
			return 0, vm.runtimeError(line, "Operand must be a number.")
		}
		vm.stack.Push(value.NumberValue(-v.Num))

	case compiler.OP_NOT:
		v, _ := vm.stack.Pop()
		vm.stack.Push(value.BoolValue(v.IsFalsy()))

	case compiler.OP_ADD:
		b, _ := vm.stack.Pop()
		a, _ := vm.stack.Pop()
		switch {
		case a.Kind == value.Number && b.Kind == value.Number:
			vm.stack.Push(value.NumberValue(a.Num + b.Num))
		case a.Kind == value.String && b.Kind == value.String:
			vm.stack.Push(value.StringValue(a.Str + b.Str))
		default:
			return 0, vm.runtimeError(line, "Operands must be two numbers or two strings.")
		}

	case compiler.OP_SUBTRACT, compiler.OP_MULTIPLY, compiler.OP_DIVIDE, compiler.OP_MODULO,
		compiler.OP_GREATER, compiler.OP_LESS:
		b, _ := vm.stack.Pop()
		a, _ := vm.stack.Pop()
		if a.Kind != value.Number || b.Kind != value.Number {
			return 0, vm.runtimeError(line, "Operands must be numbers.")
		}
		switch op {
		case compiler.OP_SUBTRACT:
			vm.stack.Push(value.NumberValue(a.Num - b.Num))
		case compiler.OP_MULTIPLY:
			vm.stack.Push(value.NumberValue(a.Num * b.Num))
		case compiler.OP_DIVIDE:
			vm.stack.Push(value.NumberValue(a.Num / b.Num))
		case compiler.OP_MODULO:
			vm.stack.Push(value.NumberValue(math.Mod(a.Num, b.Num)))
		case compiler.OP_GREATER:
			vm.stack.Push(value.BoolValue(a.Num > b.Num))
		case compiler.OP_LESS:
			vm.stack.Push(value.BoolValue(a.Num < b.Num))
		}

	case compiler.OP_EQUAL:
		b, _ := vm.stack.Pop()
		a, _ := vm.stack.Pop()
		vm.stack.Push(value.BoolValue(a.Equals(b)))

	case compiler.OP_PRINT:
		v, _ := vm.stack.Pop()
		fmt.Fprintln(vm.out, v.String())

	case compiler.OP_POP:
		vm.stack.Pop()

	case compiler.OP_POPN:
		n := int(vm.operand16())
		if n > 0 {
			vm.stack.Truncate(n)
		}

	case compiler.OP_DEFINE_GLOBAL:
		name := vm.chunk.Constants[vm.operand16()].Str
		v, _ := vm.stack.Pop()
		vm.globals[name] = v

	case compiler.OP_GET_GLOBAL:
		name := vm.chunk.Constants[vm.operand16()].Str
		v, ok := vm.globals[name]
		if !ok {
			return 0, vm.runtimeError(line, "Undefined variable '"+name+"'.")
		}
		vm.stack.Push(v)

	case compiler.OP_SET_GLOBAL:
		name := vm.chunk.Constants[vm.operand16()].Str
		if _, ok := vm.globals[name]; !ok {
			return 0, vm.runtimeError(line, "Undefined variable '"+name+"'.")
		}
		v, _ := vm.stack.Peek()
		vm.globals[name] = v

	case compiler.OP_GET_LOCAL:
		slot := int(vm.operand16())
		vm.stack.Push(vm.stack[slot])

	case compiler.OP_SET_LOCAL:
		slot := int(vm.operand16())
		v, _ := vm.stack.Peek()
		vm.stack[slot] = v

	case compiler.OP_JUMP:
		delta := int(vm.operand16())
		return vm.ip + 3 + delta, nil

	case compiler.OP_FALSE_JUMP:
		delta := int(vm.operand16())
		top, _ := vm.stack.Peek()
		if top.IsFalsy() {
			return vm.ip + 3 + delta, nil
		}

	case compiler.OP_LOOP_JUMP:
		delta := int(vm.operand16())
		return vm.ip + 3 - delta, nil

	case compiler.OP_RETURN:
		vm.frames = vm.frames[:len(vm.frames)-1]

	default:
		return 0, vm.runtimeError(line, fmt.Sprintf("unknown opcode %v", op))
	}

	return 0, nil
}

func (vm *VM) runtimeError(line int, msg string) error {
	return &RuntimeError{Line: line, Message: msg}
}
