package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"

	"github.com/ivanmara/dotmatrix/dmg"
	"github.com/ivanmara/dotmatrix/dmg/backend"
	"github.com/ivanmara/dotmatrix/dmg/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "dotmatrix"
	app.Description = "A DMG (original Game Boy) emulator"
	app.Usage = "dotmatrix [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "log",
			Usage: "Print a Gameboy-Doctor trace line per executed instruction",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a display",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Display backend: terminal or sdl2",
			Value: "terminal",
		},
		cli.StringFlag{
			Name:  "pacing",
			Usage: "Frame pacing: adaptive, ticker or none",
			Value: "adaptive",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots",
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowAppHelp(c)
		return errors.New("no ROM path provided")
	}
	romPath := c.Args().Get(0)

	emu, err := dmg.NewWithFile(romPath)
	if err != nil {
		return err
	}

	if c.Bool("log") {
		emu.EnableTrace(os.Stdout)
		defer emu.FlushTrace()
	}

	if c.Bool("headless") {
		return runHeadless(c, emu, romPath)
	}

	return runInteractive(c, emu)
}

func runHeadless(c *cli.Context, emu *dmg.DMG, romPath string) error {
	frames := c.Int("frames")
	if frames <= 0 {
		return errors.New("headless mode requires --frames option with a positive value")
	}

	romName := filepath.Base(romPath)
	romName = strings.TrimSuffix(romName, filepath.Ext(romName))

	be := backend.NewHeadless()
	be.SnapshotInterval = c.Int("snapshot-interval")
	be.SnapshotDir = c.String("snapshot-dir")
	be.ROMName = romName
	if err := be.Init(backend.Config{Title: romName}); err != nil {
		return err
	}
	defer be.Cleanup()

	slog.Info("Running headless mode", "frames", frames)

	// headless runs unpaced: frames complete as fast as the host allows
	limiter := timing.NewNoOpLimiter()

	for i := 0; i < frames; i++ {
		emu.RunUntilFrame()
		if _, _, err := be.Update(emu.GetCurrentFrame()); err != nil {
			return err
		}
		limiter.WaitForNextFrame()
	}

	slog.Info("Headless execution completed",
		"frames", frames, "instructions", emu.GetInstructionCount())
	return nil
}

func runInteractive(c *cli.Context, emu *dmg.DMG) error {
	var be backend.Backend
	switch c.String("backend") {
	case "terminal":
		be = backend.NewTerminal()
	case "sdl2":
		be = backend.NewSDL2()
	default:
		return errors.New("unknown backend: " + c.String("backend"))
	}

	limiter, err := newLimiter(c.String("pacing"))
	if err != nil {
		return err
	}

	if err := be.Init(backend.Config{Title: "dotmatrix", Scale: 3}); err != nil {
		return err
	}
	defer be.Cleanup()

	for {
		emu.RunUntilFrame()

		buttons, quit, err := be.Update(emu.GetCurrentFrame())
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		emu.SetButtons(buttons)

		limiter.WaitForNextFrame()
	}
}

// newLimiter maps the --pacing flag to a frame limiter.
func newLimiter(pacing string) (timing.Limiter, error) {
	switch pacing {
	case "adaptive":
		return timing.NewAdaptiveLimiter(), nil
	case "ticker":
		return timing.NewTickerLimiter(), nil
	case "none":
		return timing.NewNoOpLimiter(), nil
	default:
		return nil, errors.New("unknown pacing mode: " + pacing)
	}
}
