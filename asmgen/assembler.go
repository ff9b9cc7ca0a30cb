// Package asmgen is the assembler/back-end collaborator spec.md §1
// puts out of scope for the compiler proper: labels, the emit_*
// primitives the translator drives, an x86-64 encoder, and ELF
// writeout. It realizes the translator's operand stack directly on the
// real machine stack (push/pop), so the "stack machine" in spec.md §4.5
// needs no separate interpreter — every compiled expression leaves its
// one result on rsp the same way the CPU already tracks it.
//
// Calling convention: arguments are pushed by the caller, in the order
// the translator already produces them (first argument ends up
// closest to the return address), so a callee's prologue finds them at
// +16, +24, ... off rbp whether it was called directly or through a
// pointer — no register-argument ABI is introduced internally. The one
// place a real ABI is unavoidable is the `syscall` builtin thunk, which
// must shuffle into the kernel's register convention; EmitSyscall does
// that and nothing else.
package asmgen

import (
	"encoding/binary"
	"fmt"
)

// fixupKind distinguishes what a pending patch means.
type fixupKind int

const (
	fixupRel32 fixupKind = iota // call/jmp/jz displacement, relative to instr end
	fixupAbs64Label             // absolute address of a label, 8-byte immediate
	fixupAbs64Data              // absolute address of interned string data
)

type fixup struct {
	offset int // byte offset into code where the patch lands
	kind   fixupKind
	label  *Label
	data   int // index into Assembler.strings, for fixupAbs64Data
}

// Assembler accumulates one function's worth of machine code at a time
// into a single growing code segment, plus a side table of interned
// string constants that are appended as data after all code once
// Writeout runs.
type Assembler struct {
	code    []byte
	strings [][]byte
	fixups  []fixup
}

// New returns an empty assembler ready to emit the program's single
// code segment.
func New() *Assembler {
	return &Assembler{}
}

// Pos returns the current emit offset, used by FixupLabel.
func (a *Assembler) Pos() int { return len(a.code) }

func (a *Assembler) emit(b ...byte) { a.code = append(a.code, b...) }

func (a *Assembler) emitImm32(v int32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	a.code = append(a.code, buf[:]...)
}

func (a *Assembler) emitImm64(v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	a.code = append(a.code, buf[:]...)
}

// --- stack machine primitives -------------------------------------------

// EmitNum pushes a 64-bit integer literal. Used for NUM and CHAR nodes
// alike (spec.md §9 open question 2: char literals are plain ints).
func (a *Assembler) EmitNum(v int64) {
	a.emit(0x48, 0xB8) // REX.W movabs rax, imm64
	a.emitImm64(v)
	a.emit(0x50) // push rax
}

// InternString records s (as a NUL-terminated byte string, matching C
// string literal semantics) in the data segment and pushes its final
// address, resolved once Writeout lays out the segment.
func (a *Assembler) InternString(s string) {
	idx := len(a.strings)
	a.strings = append(a.strings, append([]byte(s), 0))
	a.emit(0x48, 0xB8) // movabs rax, imm64 (patched)
	a.fixups = append(a.fixups, fixup{offset: len(a.code), kind: fixupAbs64Data, data: idx})
	a.emitImm64(0)
	a.emit(0x50) // push rax
}

// EmitFrameAddr pushes the address of a frame slot at rbp+offset — a
// local (offset < 0) or an argument (offset >= 16).
func (a *Assembler) EmitFrameAddr(offset int) {
	a.emit(0x48, 0x8D, 0x85) // lea rax, [rbp+disp32]
	a.emitImm32(int32(offset))
	a.emit(0x50) // push rax
}

// EmitLabelAddr pushes the absolute address l will resolve to — used
// to materialize a function value (e.g. an indirect-call callee or a
// function used as a plain value).
func (a *Assembler) EmitLabelAddr(l *Label) {
	a.emit(0x48, 0xB8) // movabs rax, imm64 (patched)
	a.fixups = append(a.fixups, fixup{offset: len(a.code), kind: fixupAbs64Label, label: l})
	a.emitImm64(0)
	a.emit(0x50) // push rax
}

// EmitLoad pops an address and pushes the size-byte value stored
// there, zero-extended to a full word.
func (a *Assembler) EmitLoad(size int) {
	a.emit(0x58) // pop rax
	if size == 1 {
		a.emit(0x48, 0x0F, 0xB6, 0x00) // movzx rax, byte [rax]
	} else {
		a.emit(0x48, 0x8B, 0x00) // mov rax, [rax]
	}
	a.emit(0x50) // push rax
}

// EmitStore pops an address (top) and a value (below), stores the
// low size bytes of the value at that address, and pushes the value
// back — every expression, assignment included, leaves one result
// (spec.md §4.5 statement-translator "anything else" rule).
func (a *Assembler) EmitStore(size int) {
	a.emit(0x58)       // pop rax (address)
	a.emit(0x5B)       // pop rbx (value)
	if size == 1 {
		a.emit(0x88, 0x18) // mov [rax], bl
	} else {
		a.emit(0x48, 0x89, 0x18) // mov [rax], rbx
	}
	a.emit(0x53) // push rbx
}

// popLeftRight is the shared pop-pop prefix every arithmetic, bitwise,
// and comparison operator starts with. left was pushed after right
// (spec.md §4.5: right compiled first), so left pops first.
func (a *Assembler) popLeftRight() {
	a.emit(0x58) // pop rax (left)
	a.emit(0x5B) // pop rbx (right)
}

// Arithmetic/bitwise opcodes: ADD SUB MUL DIV MOD LSH RSH AND OR XOR.

func (a *Assembler) EmitAdd() { a.popLeftRight(); a.emit(0x48, 0x01, 0xD8); a.emit(0x50) }   // add rax,rbx
func (a *Assembler) EmitSub() { a.popLeftRight(); a.emit(0x48, 0x29, 0xD8); a.emit(0x50) }   // sub rax,rbx
func (a *Assembler) EmitAnd() { a.popLeftRight(); a.emit(0x48, 0x21, 0xD8); a.emit(0x50) }   // and rax,rbx
func (a *Assembler) EmitOr()  { a.popLeftRight(); a.emit(0x48, 0x09, 0xD8); a.emit(0x50) }   // or  rax,rbx
func (a *Assembler) EmitXor() { a.popLeftRight(); a.emit(0x48, 0x31, 0xD8); a.emit(0x50) }   // xor rax,rbx

func (a *Assembler) EmitMul() {
	a.popLeftRight()
	a.emit(0x48, 0x0F, 0xAF, 0xC3) // imul rax, rbx
	a.emit(0x50)
}

func (a *Assembler) EmitDiv() {
	a.popLeftRight()
	a.emit(0x48, 0x99)             // cqo: sign-extend rax into rdx:rax
	a.emit(0x48, 0xF7, 0xFB)       // idiv rbx
	a.emit(0x50)                   // push rax (quotient)
}

func (a *Assembler) EmitMod() {
	a.popLeftRight()
	a.emit(0x48, 0x99)       // cqo
	a.emit(0x48, 0xF7, 0xFB) // idiv rbx
	a.emit(0x52)             // push rdx (remainder)
}

func (a *Assembler) EmitLsh() {
	a.popLeftRight()
	a.emit(0x48, 0x89, 0xD9) // mov rcx, rbx
	a.emit(0x48, 0xD3, 0xE0) // shl rax, cl
	a.emit(0x50)
}

func (a *Assembler) EmitRsh() {
	a.popLeftRight()
	a.emit(0x48, 0x89, 0xD9) // mov rcx, rbx
	a.emit(0x48, 0xD3, 0xF8) // sar rax, cl
	a.emit(0x50)
}

// cmpOp is the shared shape for the six comparisons: cmp, setcc al,
// zero-extend, push.
func (a *Assembler) cmpOp(setcc byte) {
	a.popLeftRight()
	a.emit(0x48, 0x39, 0xD8)       // cmp rax, rbx
	a.emit(0x0F, setcc, 0xC0)      // setcc al
	a.emit(0x48, 0x0F, 0xB6, 0xC0) // movzx rax, al
	a.emit(0x50)
}

func (a *Assembler) EmitLt() { a.cmpOp(0x9C) } // setl
func (a *Assembler) EmitGt() { a.cmpOp(0x9F) } // setg
func (a *Assembler) EmitLe() { a.cmpOp(0x9E) } // setle
func (a *Assembler) EmitGe() { a.cmpOp(0x9D) } // setge
func (a *Assembler) EmitEq() { a.cmpOp(0x94) } // sete
func (a *Assembler) EmitNe() { a.cmpOp(0x95) } // setne

// EmitNeg negates the top of stack (unary -).
func (a *Assembler) EmitNeg() {
	a.emit(0x58)             // pop rax
	a.emit(0x48, 0xF7, 0xD8) // neg rax
	a.emit(0x50)
}

// EmitNot computes a C-style logical not (result is 0 or 1).
func (a *Assembler) EmitNot() {
	a.emit(0x58)                   // pop rax
	a.emit(0x48, 0x83, 0xF8, 0x00) // cmp rax, 0
	a.emit(0x0F, 0x94, 0xC0)       // sete al
	a.emit(0x48, 0x0F, 0xB6, 0xC0) // movzx rax, al
	a.emit(0x50)
}

// EmitBnot computes a bitwise complement.
func (a *Assembler) EmitBnot() {
	a.emit(0x58)             // pop rax
	a.emit(0x48, 0xF7, 0xD0) // not rax
	a.emit(0x50)
}

// EmitPop discards n words — the statement translator's "anything
// else: compile as expression, then pop 1" rule, generalized to the
// argument-list cleanup EmitCall/EmitLcall also need.
func (a *Assembler) EmitPop(n int) {
	if n == 0 {
		return
	}
	a.emit(0x48, 0x81, 0xC4) // add rsp, imm32
	a.emitImm32(int32(n * 8))
}

// --- control flow --------------------------------------------------------

// EmitJmp emits an unconditional jump to l (forward references are
// fixed up at Writeout).
func (a *Assembler) EmitJmp(l *Label) {
	a.emit(0xE9) // jmp rel32
	a.fixups = append(a.fixups, fixup{offset: len(a.code), kind: fixupRel32, label: l})
	a.emitImm32(0)
}

// EmitJz pops the top of stack and jumps to l if it is zero.
func (a *Assembler) EmitJz(l *Label) {
	a.emit(0x58)             // pop rax
	a.emit(0x48, 0x83, 0xF8, 0x00) // cmp rax, 0
	a.emit(0x0F, 0x84) // jz rel32
	a.fixups = append(a.fixups, fixup{offset: len(a.code), kind: fixupRel32, label: l})
	a.emitImm32(0)
}

// EmitCall pops the callee address off the top of stack (it was
// pushed last, after all argc arguments), calls it, discards the
// caller-pushed arguments, and pushes the return value. argc is
// unbounded: every argument lives on the stack at +16, +24, ... off
// the callee's rbp (spec.md §6's emit_call takes a plain count, not a
// register-file width — there is no register-argument ABI here at all,
// see the package doc comment).
func (a *Assembler) EmitCall(argc int) {
	// The callee address sits on top of the argument block we want to
	// leave in place for `call` to find at +16.. in the callee's frame,
	// so pop it into rax first and stash it below the call instruction.
	a.emit(0x58)       // pop rax (callee addr)
	a.emit(0xFF, 0xD0) // call rax
	a.EmitPop(argc)    // caller cleans up its own pushed arguments
	a.emit(0x50)       // push rax (return value)
}

// EmitLcall calls l directly, the same cleanup convention as EmitCall.
func (a *Assembler) EmitLcall(l *Label, argc int) {
	a.emit(0xE8) // call rel32
	a.fixups = append(a.fixups, fixup{offset: len(a.code), kind: fixupRel32, label: l})
	a.emitImm32(0)
	a.EmitPop(argc)
	a.emit(0x50)
}

// EmitPreamble opens a function's frame. For the entry point
// (isEntry), argc/argv/envp are read off the raw kernel-provided stack
// and re-pushed so the synthesized frame looks exactly like one built
// by a normal `call`, letting the rest of the translator treat _start's
// three declared parameters the same as any other function's.
func (a *Assembler) EmitPreamble(frameSize int, isEntry bool) {
	if isEntry {
		a.emit(0x48, 0x8B, 0x04, 0x24) // mov rax, [rsp]      (argc)
		a.emit(0x48, 0x8D, 0x5C, 0x24, 0x08) // lea rbx, [rsp+8]    (argv)
		a.emit(0x48, 0x8D, 0x4C, 0xC3, 0x08) // lea rcx, [rbx+rax*8+8] (envp)
		a.emit(0x51) // push rcx (envp)
		a.emit(0x53) // push rbx (argv)
		a.emit(0x50) // push rax (argc)
		a.emit(0x6A, 0x00) // push 0 (fake return address)
	}
	a.emit(0x55)             // push rbp
	a.emit(0x48, 0x89, 0xE5) // mov rbp, rsp
	if frameSize > 0 {
		a.emit(0x48, 0x81, 0xEC) // sub rsp, imm32
		a.emitImm32(int32(frameSize))
	}
}

// EmitRet pops the function's result into rax, tears down the frame,
// and returns.
func (a *Assembler) EmitRet() {
	a.emit(0x58)             // pop rax
	a.emit(0x48, 0x89, 0xEC) // mov rsp, rbp
	a.emit(0x5D)             // pop rbp
	a.emit(0xC3)             // ret
}

// EmitSyscall reads the syscall number and up to six arguments from
// the current frame's arguments (+16, +24, ...), the only point this
// back end steps outside its own stack calling convention to satisfy
// the kernel's real register ABI, then pushes the kernel's return
// value as this thunk's result.
func (a *Assembler) EmitSyscall(argFrameOffsets []int) error {
	if len(argFrameOffsets) == 0 || len(argFrameOffsets) > 7 {
		return fmt.Errorf("asmgen: syscall thunk needs 1-7 frame slots (number + up to 6 args), got %d", len(argFrameOffsets))
	}
	regs := [][]byte{
		{0x48, 0x8B, 0x85}, // mov rax, [rbp+disp32]  (syscall number)
		{0x48, 0x8B, 0xBD}, // mov rdi, [rbp+disp32]
		{0x48, 0x8B, 0xB5}, // mov rsi, [rbp+disp32]
		{0x48, 0x8B, 0x95}, // mov rdx, [rbp+disp32]
		{0x4C, 0x8B, 0x95}, // mov r10, [rbp+disp32]
		{0x4C, 0x8B, 0x85}, // mov r8,  [rbp+disp32]
		{0x4C, 0x8B, 0x8D}, // mov r9,  [rbp+disp32]
	}
	for i, off := range argFrameOffsets {
		a.emit(regs[i]...)
		a.emitImm32(int32(off))
	}
	a.emit(0x0F, 0x05) // syscall
	a.emit(0x50)       // push rax (kernel return value)
	return nil
}
