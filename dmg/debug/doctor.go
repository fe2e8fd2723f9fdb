// Package debug holds tracing aids that sit outside the emulation core.
package debug

import (
	"bufio"
	"fmt"
	"io"
)

// DoctorWriter emits one line per executed instruction in the
// "Gameboy Doctor" format:
//
//	A:xx F:xx B:xx C:xx D:xx E:xx H:xx L:xx SP:xxxx PC:xxxx PCMEM:xx,xx,xx,xx
//
// All values are uppercase hex without prefixes. PCMEM is the four bytes at
// PC, so reference traces can be compared byte for byte.
type DoctorWriter struct {
	w *bufio.Writer
}

func NewDoctorWriter(w io.Writer) *DoctorWriter {
	return &DoctorWriter{w: bufio.NewWriterSize(w, 1<<16)}
}

// RegisterState is the CPU snapshot a trace line is built from.
type RegisterState struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
}

// Log writes one trace line. pcmem holds the four bytes at PC.
func (d *DoctorWriter) Log(regs RegisterState, pcmem [4]byte) {
	fmt.Fprintf(d.w,
		"A:%02X F:%02X B:%02X C:%02X D:%02X E:%02X H:%02X L:%02X SP:%04X PC:%04X PCMEM:%02X,%02X,%02X,%02X\n",
		regs.A, regs.F, regs.B, regs.C, regs.D, regs.E, regs.H, regs.L,
		regs.SP, regs.PC, pcmem[0], pcmem[1], pcmem[2], pcmem[3])
}

// Flush drains the buffered output, call before exit.
func (d *DoctorWriter) Flush() error {
	return d.w.Flush()
}
