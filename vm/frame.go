package vm

// MaxCallDepth bounds the frame stack. Tail calls reuse their frame, so
// well-formed tail-recursive programs never approach this.
const MaxCallDepth = 4096

// frame is one activation record. Registers live in the machine's flat
// buffer; the frame only records where its window starts. A callee's
// window begins at the caller's argument block, so arguments are passed
// without copying.
//
// Iterator slots belong to the frame, not the machine: slot numbers are
// assigned per function by static loop depth, so a looping function
// called from inside a caller's loop would otherwise clobber the
// caller's live slot.
type frame struct {
	base       int // window start in the machine's register buffer
	returnAddr int // caller instruction to resume at
	returnDst  int // absolute register index receiving the result, -1 to discard
	fn         int // function table index, -1 for the top level
	iters      [NumIterSlots]iterSlot
}
