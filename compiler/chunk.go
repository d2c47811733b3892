package compiler

import (
	"encoding/binary"
	"fmt"
	"strings"

	"rqalam/value"
)

// Opcode identifies a single bytecode instruction. The set is closed: a
// tagged variant dispatched in the VM loop rather than the heterogeneous,
// self-evaluating instruction objects of the original implementation.
type Opcode byte

const (
	OP_CONSTANT Opcode = iota
	OP_NEGATE
	OP_NOT
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_MODULO
	OP_EQUAL
	OP_GREATER
	OP_LESS
	OP_PRINT
	OP_POP
	OP_POPN
	OP_DEFINE_GLOBAL
	OP_GET_GLOBAL
	OP_SET_GLOBAL
	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_JUMP
	OP_FALSE_JUMP
	OP_LOOP_JUMP
	OP_RETURN
)

// OpCodeDefinition names an opcode and the byte width of each of its
// operands, in emission order.
type OpCodeDefinition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*OpCodeDefinition{
	OP_CONSTANT:      {Name: "OP_CONSTANT", OperandWidths: []int{2}},
	OP_NEGATE:        {Name: "OP_NEGATE", OperandWidths: []int{}},
	OP_NOT:           {Name: "OP_NOT", OperandWidths: []int{}},
	OP_ADD:           {Name: "OP_ADD", OperandWidths: []int{}},
	OP_SUBTRACT:      {Name: "OP_SUBTRACT", OperandWidths: []int{}},
	OP_MULTIPLY:      {Name: "OP_MULTIPLY", OperandWidths: []int{}},
	OP_DIVIDE:        {Name: "OP_DIVIDE", OperandWidths: []int{}},
	OP_MODULO:        {Name: "OP_MODULO", OperandWidths: []int{}},
	OP_EQUAL:         {Name: "OP_EQUAL", OperandWidths: []int{}},
	OP_GREATER:       {Name: "OP_GREATER", OperandWidths: []int{}},
	OP_LESS:          {Name: "OP_LESS", OperandWidths: []int{}},
	OP_PRINT:         {Name: "OP_PRINT", OperandWidths: []int{}},
	OP_POP:           {Name: "OP_POP", OperandWidths: []int{}},
	OP_POPN:          {Name: "OP_POPN", OperandWidths: []int{2}},
	OP_DEFINE_GLOBAL: {Name: "OP_DEFINE_GLOBAL", OperandWidths: []int{2}},
	OP_GET_GLOBAL:    {Name: "OP_GET_GLOBAL", OperandWidths: []int{2}},
	OP_SET_GLOBAL:    {Name: "OP_SET_GLOBAL", OperandWidths: []int{2}},
	OP_GET_LOCAL:     {Name: "OP_GET_LOCAL", OperandWidths: []int{2}},
	OP_SET_LOCAL:     {Name: "OP_SET_LOCAL", OperandWidths: []int{2}},
	OP_JUMP:          {Name: "OP_JUMP", OperandWidths: []int{2}},
	OP_FALSE_JUMP:    {Name: "OP_FALSE_JUMP", OperandWidths: []int{2}},
	OP_LOOP_JUMP:     {Name: "OP_LOOP_JUMP", OperandWidths: []int{2}},
	OP_RETURN:        {Name: "OP_RETURN", OperandWidths: []int{}},
}

func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode: '%d' undefined", op)
	}
	return def, nil
}

// AssembleInstruction encodes op and its operands into a byte sequence:
// the opcode byte followed by each operand in BigEndian order, per its
// defined width.
func AssembleInstruction(op Opcode, operands ...int) ([]byte, error) {
	def, err := Get(op)
	if err != nil {
		return nil, err
	}

	byteOffset := 1
	instructionLength := byteOffset
	for _, w := range def.OperandWidths {
		instructionLength += w
	}

	instruction := make([]byte, instructionLength)
	instruction[0] = byte(op)

	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 2:
			binary.BigEndian.PutUint16(instruction[byteOffset:], uint16(o))
		}
		byteOffset += width
	}
	return instruction, nil
}

// DiassembleInstruction formats a single encoded instruction (opcode plus
// any operand bytes) for diagnostic output.
func DiassembleInstruction(instruction []byte) (string, error) {
	if len(instruction) == 0 {
		return "", fmt.Errorf("empty instruction")
	}
	op := Opcode(instruction[0])
	def, err := Get(op)
	if err != nil {
		return "", err
	}

	if len(def.OperandWidths) == 0 {
		return fmt.Sprintf("opcode: %s, operand: None, operand widths: 0 bytes", def.Name), nil
	}

	width := def.OperandWidths[0]
	operand := binary.BigEndian.Uint16(instruction[1 : 1+width])
	return fmt.Sprintf("opcode: %s, operand: %d, operand widths: %d bytes", def.Name, operand, width), nil
}

// instructionWidth returns the total byte length (opcode + operands) of
// an instruction with opcode op.
func instructionWidth(op Opcode) int {
	def, err := Get(op)
	if err != nil {
		return 1
	}
	width := 1
	for _, w := range def.OperandWidths {
		width += w
	}
	return width
}

// Chunk is an append-only instruction stream produced during compilation
// and read-only during execution, with a line number recorded per byte
// (clox's convention) so any instruction can report the source line it
// came from, and the pool of constant Values it references by index.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []value.Value
}

func NewChunk() *Chunk {
	return &Chunk{}
}

// Write appends a single raw byte, recording line as its source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// Emit assembles op and operands and appends the resulting bytes, each
// tagged with line. It returns the offset of the opcode byte.
func (c *Chunk) Emit(op Opcode, line int, operands ...int) int {
	instruction, err := AssembleInstruction(op, operands...)
	if err != nil {
		panic(err)
	}
	offset := len(c.Code)
	for _, b := range instruction {
		c.Write(b, line)
	}
	return offset
}

// AddConstant appends v to the constant pool and returns its index.
func (c *Chunk) AddConstant(v value.Value) uint16 {
	c.Constants = append(c.Constants, v)
	return uint16(len(c.Constants) - 1)
}

// PatchOperand overwrites the 2-byte BigEndian operand at offset+1 with
// operand. offset must be the index of the opcode byte of an instruction
// with a 2-byte operand.
func (c *Chunk) PatchOperand(offset int, operand uint16) {
	binary.BigEndian.PutUint16(c.Code[offset+1:offset+3], operand)
}

// Disassemble renders the whole chunk, one line per instruction, for
// the `disasm` diagnostic subcommand.
func (c *Chunk) Disassemble(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	offset := 0
	for offset < len(c.Code) {
		op := Opcode(c.Code[offset])
		width := instructionWidth(op)
		if offset+width > len(c.Code) {
			width = len(c.Code) - offset
		}
		line, err := DiassembleInstruction(c.Code[offset : offset+width])
		if err != nil {
			fmt.Fprintf(&b, "%04d line %d  <bad opcode %d>\n", offset, c.Lines[offset], op)
			offset++
			continue
		}
		fmt.Fprintf(&b, "%04d line %d  %s\n", offset, c.Lines[offset], line)
		offset += width
	}
	return b.String()
}
