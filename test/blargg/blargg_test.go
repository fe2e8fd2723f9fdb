// Package blargg runs Blargg's cpu_instrs and instr_timing test ROMs end to
// end. The ROMs
// report their result over the serial port, which the core captures.
//
// ROMs are not distributed with the repository: place them under
// test-roms/ (or point BLARGG_DIR at them) to enable these tests.
package blargg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivanmara/dotmatrix/dmg"
)

type testCase struct {
	rom       string
	pass      string // exact transcript the ROM prints on success
	maxFrames int
}

func blarggTests() []testCase {
	return []testCase{
		{rom: "01-special.gb", pass: "01-special\n\nPassed\n", maxFrames: 600},
		{rom: "02-interrupts.gb", pass: "02-interrupts\n\nPassed\n", maxFrames: 600},
		{rom: "03-op sp,hl.gb", pass: "03-op sp,hl\n\nPassed\n", maxFrames: 600},
		{rom: "04-op r,imm.gb", pass: "04-op r,imm\n\nPassed\n", maxFrames: 600},
		{rom: "05-op rp.gb", pass: "05-op rp\n\nPassed\n", maxFrames: 600},
		{rom: "06-ld r,r.gb", pass: "06-ld r,r\n\nPassed\n", maxFrames: 600},
		{rom: "07-jr,jp,call,ret,rst.gb", pass: "07-jr,jp,call,ret,rst\n\nPassed\n", maxFrames: 600},
		{rom: "08-misc instrs.gb", pass: "08-misc instrs\n\nPassed\n", maxFrames: 600},
		{rom: "09-op r,r.gb", pass: "09-op r,r\n\nPassed\n", maxFrames: 1200},
		{rom: "10-bit ops.gb", pass: "10-bit ops\n\nPassed\n", maxFrames: 1200},
		{rom: "11-op a,(hl).gb", pass: "11-op a,(hl)\n\nPassed\n", maxFrames: 1800},
		{rom: "instr_timing.gb", pass: "Passed", maxFrames: 600},
	}
}

func romDir(t *testing.T) string {
	t.Helper()
	dir := os.Getenv("BLARGG_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "test-roms")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Skipf("blargg ROM dir missing: %s", dir)
	}
	return dir
}

func TestBlarggSerial(t *testing.T) {
	dir := romDir(t)

	for _, tC := range blarggTests() {
		t.Run(strings.TrimSuffix(tC.rom, ".gb"), func(t *testing.T) {
			romPath := filepath.Join(dir, tC.rom)
			if _, err := os.Stat(romPath); err != nil {
				t.Skipf("ROM not present: %s", romPath)
			}

			emu, err := dmg.NewWithFile(romPath)
			if err != nil {
				t.Fatalf("load ROM: %v", err)
			}

			for frame := 0; frame < tC.maxFrames; frame++ {
				emu.RunUntilFrame()

				out := emu.SerialOutput()
				if strings.Contains(out, "Passed") {
					if !strings.Contains(out, tC.pass) {
						t.Fatalf("unexpected pass transcript:\n%q", out)
					}
					return
				}
				if strings.Contains(out, "Failed") {
					t.Fatalf("%s reported failure:\n%s", tC.rom, out)
				}
			}

			t.Fatalf("timeout after %d frames; serial output:\n%s",
				tC.maxFrames, emu.SerialOutput())
		})
	}
}
