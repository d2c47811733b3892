package compiler

import "testing"

func compileOK(t *testing.T, src string) *Chunk {
	t.Helper()
	chunk, err := New(src).Compile()
	if err != nil {
		t.Fatalf("Compile(%q) raised an error: %v", src, err)
	}
	return chunk
}

func compileErr(t *testing.T, src string) error {
	t.Helper()
	_, err := New(src).Compile()
	if err == nil {
		t.Fatalf("Compile(%q) expected an error, got none", src)
	}
	return err
}

func opcodesOf(c *Chunk) []Opcode {
	var ops []Opcode
	offset := 0
	for offset < len(c.Code) {
		op := Opcode(c.Code[offset])
		ops = append(ops, op)
		offset += instructionWidth(op)
	}
	return ops
}

func TestArithmeticPrecedence(t *testing.T) {
	// "1 + 2 * 3;" -> CONSTANT 1, CONSTANT 2, CONSTANT 3, MULTIPLY, ADD, POP, RETURN
	c := compileOK(t, "1 + 2 * 3;")
	ops := opcodesOf(c)
	want := []Opcode{OP_CONSTANT, OP_CONSTANT, OP_CONSTANT, OP_MULTIPLY, OP_ADD, OP_POP, OP_RETURN}
	assertOpcodes(t, ops, want)
}

func TestStringConcatenation(t *testing.T) {
	c := compileOK(t, `"ha" + "lo";`)
	ops := opcodesOf(c)
	want := []Opcode{OP_CONSTANT, OP_CONSTANT, OP_ADD, OP_POP, OP_RETURN}
	assertOpcodes(t, ops, want)
}

func TestComparisonLowering(t *testing.T) {
	tests := []struct {
		src  string
		want []Opcode
	}{
		{"1 != 2;", []Opcode{OP_CONSTANT, OP_CONSTANT, OP_EQUAL, OP_NOT, OP_POP, OP_RETURN}},
		{"1 >= 2;", []Opcode{OP_CONSTANT, OP_CONSTANT, OP_LESS, OP_NOT, OP_POP, OP_RETURN}},
		{"1 <= 2;", []Opcode{OP_CONSTANT, OP_CONSTANT, OP_GREATER, OP_NOT, OP_POP, OP_RETURN}},
		{"1 == 2;", []Opcode{OP_CONSTANT, OP_CONSTANT, OP_EQUAL, OP_POP, OP_RETURN}},
	}
	for _, tt := range tests {
		c := compileOK(t, tt.src)
		assertOpcodes(t, opcodesOf(c), tt.want)
	}
}

func TestCompoundAssignment(t *testing.T) {
	// "sha x = 10; x += 5; qul x;"
	c := compileOK(t, "sha x = 10; x += 5; qul x;")
	ops := opcodesOf(c)
	want := []Opcode{
		OP_CONSTANT, OP_DEFINE_GLOBAL, // sha x = 10;
		OP_GET_GLOBAL, OP_CONSTANT, OP_ADD, OP_SET_GLOBAL, OP_POP, // x += 5;
		OP_GET_GLOBAL, OP_PRINT, // qul x;
		OP_RETURN,
	}
	assertOpcodes(t, ops, want)
}

func TestImmutableAssignmentIsCompileError(t *testing.T) {
	err := compileErr(t, "lazim c = 1; c = 2;")
	ce, ok := err.(interface{ Error() string })
	if !ok {
		t.Fatalf("expected an error value, got %T", err)
	}
	if ce.Error() == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestShadowingBanAtSameDepth(t *testing.T) {
	compileErr(t, "{ sha a = 1; sha a = 2; }")
}

func TestShadowingAllowedAtDeeperDepth(t *testing.T) {
	compileOK(t, "{ sha a = 1; { sha a = 2; } }")
}

func TestReadLocalInOwnInitializerIsError(t *testing.T) {
	compileErr(t, "{ sha a = a; }")
}

func TestIfElseDesugaring(t *testing.T) {
	c := compileOK(t, "itha (haqq) { qul 1; } ilma { qul 2; }")
	ops := opcodesOf(c)
	want := []Opcode{
		OP_CONSTANT, OP_FALSE_JUMP, OP_POP,
		OP_CONSTANT, OP_PRINT, OP_POPN, // then block (its own end_scope)
		OP_JUMP, OP_POP,
		OP_CONSTANT, OP_PRINT, OP_POPN, // else block
		OP_RETURN,
	}
	assertOpcodes(t, ops, want)
}

func TestWhileDesugaring(t *testing.T) {
	c := compileOK(t, "sha i = 0; baynama (i < 3) { qul i; i += 1; }")
	ops := opcodesOf(c)
	// sha i=0; DEFINE_GLOBAL; GET_GLOBAL i; CONSTANT 3; LESS; FALSE_JUMP; POP;
	// scope{ GET_GLOBAL i; PRINT; GET_GLOBAL i; CONSTANT 1; ADD; SET_GLOBAL; POP; POPN(0) }
	// LOOP_JUMP; patch exit; POP; RETURN
	want := []Opcode{
		OP_CONSTANT, OP_DEFINE_GLOBAL,
		OP_GET_GLOBAL, OP_CONSTANT, OP_LESS, OP_FALSE_JUMP, OP_POP,
		OP_GET_GLOBAL, OP_PRINT, OP_GET_GLOBAL, OP_CONSTANT, OP_ADD, OP_SET_GLOBAL, OP_POP, OP_POPN,
		OP_LOOP_JUMP,
		OP_POP,
		OP_RETURN,
	}
	assertOpcodes(t, ops, want)
}

func TestShortCircuitAnd(t *testing.T) {
	c := compileOK(t, "qul haqq wa batil;")
	ops := opcodesOf(c)
	want := []Opcode{OP_CONSTANT, OP_FALSE_JUMP, OP_POP, OP_CONSTANT, OP_PRINT, OP_RETURN}
	assertOpcodes(t, ops, want)
}

func TestShortCircuitOr(t *testing.T) {
	c := compileOK(t, "qul batil aw 42;")
	ops := opcodesOf(c)
	want := []Opcode{OP_CONSTANT, OP_FALSE_JUMP, OP_JUMP, OP_POP, OP_CONSTANT, OP_PRINT, OP_RETURN}
	assertOpcodes(t, ops, want)
}

func TestForDesugaring(t *testing.T) {
	c := compileOK(t, "tawaf (sha i = 0; i < 2; i += 1) qul i;")
	ops := opcodesOf(c)
	want := []Opcode{
		OP_CONSTANT, // sha i = 0;
		OP_GET_LOCAL, OP_CONSTANT, OP_LESS, OP_FALSE_JUMP, OP_POP,
		OP_JUMP,
		OP_GET_LOCAL, OP_CONSTANT, OP_ADD, OP_SET_LOCAL, OP_POP,
		OP_LOOP_JUMP,
		OP_GET_LOCAL, OP_PRINT,
		OP_LOOP_JUMP,
		OP_POP,
		OP_POPN, // end of for's own scope
		OP_RETURN,
	}
	assertOpcodes(t, ops, want)
}

func assertOpcodes(t *testing.T, got, want []Opcode) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d opcodes %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("opcode %d: got %v, want %v (full: got=%v want=%v)", i, got[i], want[i], got, want)
		}
	}
}
