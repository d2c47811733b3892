package compiler

import (
	"testing"

	"rqalam/value"
)

func TestAssembleInstruction(t *testing.T) {
	operand := 65000
	tests := []struct {
		op       Opcode
		operands []int
		expected []byte
	}{
		{OP_CONSTANT, []int{operand}, []byte{byte(OP_CONSTANT), 253, 232}},
		{OP_RETURN, []int{}, []byte{byte(OP_RETURN)}},
		{OP_ADD, []int{}, []byte{byte(OP_ADD)}},
		{OP_MULTIPLY, []int{}, []byte{byte(OP_MULTIPLY)}},
		{OP_DIVIDE, []int{}, []byte{byte(OP_DIVIDE)}},
		{OP_SUBTRACT, []int{}, []byte{byte(OP_SUBTRACT)}},
		{OP_MODULO, []int{}, []byte{byte(OP_MODULO)}},
		{OP_NEGATE, []int{}, []byte{byte(OP_NEGATE)}},
		{OP_NOT, []int{}, []byte{byte(OP_NOT)}},
		{OP_PRINT, []int{}, []byte{byte(OP_PRINT)}},
		{OP_EQUAL, []int{}, []byte{byte(OP_EQUAL)}},
		{OP_GREATER, []int{}, []byte{byte(OP_GREATER)}},
		{OP_LESS, []int{}, []byte{byte(OP_LESS)}},
		{OP_DEFINE_GLOBAL, []int{operand}, []byte{byte(OP_DEFINE_GLOBAL), 253, 232}},
		{OP_SET_GLOBAL, []int{operand}, []byte{byte(OP_SET_GLOBAL), 253, 232}},
		{OP_GET_GLOBAL, []int{operand}, []byte{byte(OP_GET_GLOBAL), 253, 232}},
		{OP_SET_LOCAL, []int{operand}, []byte{byte(OP_SET_LOCAL), 253, 232}},
		{OP_GET_LOCAL, []int{operand}, []byte{byte(OP_GET_LOCAL), 253, 232}},
		{OP_JUMP, []int{operand}, []byte{byte(OP_JUMP), 253, 232}},
		{OP_FALSE_JUMP, []int{operand}, []byte{byte(OP_FALSE_JUMP), 253, 232}},
		{OP_LOOP_JUMP, []int{operand}, []byte{byte(OP_LOOP_JUMP), 253, 232}},
		{OP_POP, []int{}, []byte{byte(OP_POP)}},
		{OP_POPN, []int{operand}, []byte{byte(OP_POPN), 253, 232}},
	}

	for _, tt := range tests {
		instruction, err := AssembleInstruction(tt.op, tt.operands...)
		if err != nil {
			t.Errorf("error assembling instruction: %v", err)
		}
		if len(instruction) != len(tt.expected) {
			t.Errorf("instruction has wrong length - got: %d, want: %d", len(instruction), len(tt.expected))
		}
		for i, b := range tt.expected {
			if instruction[i] != b {
				t.Errorf("instruction has wrong byte - got: %v, want: %v", instruction[i], b)
			}
		}
	}
}

func TestDiassembleInstruction(t *testing.T) {
	tests := []struct {
		instruction []byte
		expected    string
	}{
		{[]byte{byte(OP_CONSTANT), 253, 232}, "opcode: OP_CONSTANT, operand: 65000, operand widths: 2 bytes"},
		{[]byte{byte(OP_RETURN)}, "opcode: OP_RETURN, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OP_ADD)}, "opcode: OP_ADD, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OP_POP)}, "opcode: OP_POP, operand: None, operand widths: 0 bytes"},
		{[]byte{byte(OP_JUMP), 253, 232}, "opcode: OP_JUMP, operand: 65000, operand widths: 2 bytes"},
	}

	for _, tt := range tests {
		result, err := DiassembleInstruction(tt.instruction)
		if err != nil {
			t.Errorf(err.Error())
		}
		if tt.expected != result {
			t.Errorf("wrong diassembled instruction - got: %s, want: %s", result, tt.expected)
		}
	}
}

func TestChunkWriteTracksLinesPerByte(t *testing.T) {
	c := NewChunk()
	c.Emit(OP_RETURN, 7)
	if len(c.Code) != len(c.Lines) {
		t.Fatalf("|code| (%d) != |lines| (%d)", len(c.Code), len(c.Lines))
	}
	if c.Lines[0] != 7 {
		t.Errorf("line = %d, want 7", c.Lines[0])
	}
}

func TestAddConstant(t *testing.T) {
	c := NewChunk()
	idx := c.AddConstant(value.NumberValue(3))
	if idx != 0 {
		t.Errorf("first constant index = %d, want 0", idx)
	}
	idx2 := c.AddConstant(value.NumberValue(4))
	if idx2 != 1 {
		t.Errorf("second constant index = %d, want 1", idx2)
	}
}

func TestPatchOperand(t *testing.T) {
	c := NewChunk()
	offset := c.Emit(OP_JUMP, 1, 0)
	c.PatchOperand(offset, 42)
	got := uint16(c.Code[offset+1])<<8 | uint16(c.Code[offset+2])
	if got != 42 {
		t.Errorf("patched operand = %d, want 42", got)
	}
}
