package vm

// Instruction is the decoded form of a 32-bit NanoCore instruction word:
// a pure (opcode, rd, rs1, rs2, imm16) tuple (spec §4.1). Decode never
// fails — every 6-bit opcode value is syntactically valid; unrecognized
// opcodes are a dispatch-time trap (spec §4.2, "other" row), not a decode
// error.
type Instruction struct {
	Opcode uint8
	Rd     uint8
	Rs1    uint8
	Rs2    uint8
	Imm16  uint16
}

// Decode extracts the fixed five-field layout from a 32-bit instruction
// word (spec §4.1):
//
//	opcode [31:26]  rd [25:21]  rs1 [20:16]  rs2 [15:11]  imm16 [15:0]
//
// imm16 overlaps rs2 and the low bits of the reserved field; its signed
// or unsigned interpretation is decided per-opcode by the executor, not
// here.
func Decode(word uint32) Instruction {
	return Instruction{
		Opcode: uint8((word >> opcodeShift) & bitMask(opcodeWidth)),
		Rd:     uint8((word >> rdShift) & bitMask(rdWidth)),
		Rs1:    uint8((word >> rs1Shift) & bitMask(rs1Width)),
		Rs2:    uint8((word >> rs2Shift) & bitMask(rs2Width)),
		Imm16:  uint16(word & bitMask(imm16Width)),
	}
}

// SignExtendImm16 sign-extends a 16-bit immediate to 64 bits, for opcodes
// whose imm16 is a signed displacement or literal (LD, ST, branches;
// spec §4.1).
func SignExtendImm16(imm uint16) int64 {
	return int64(int16(imm))
}
