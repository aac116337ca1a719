// Command possum-emu runs a possum system image: a ROM file loaded at
// bank 0 offset 0, an optional CompactFlash image attached as hd0, and
// the host terminal wired in as keyboard/UART.
package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/possum-systems/possum/pkg/cf"
	"github.com/possum-systems/possum/pkg/kb"
	"github.com/possum-systems/possum/pkg/sys"
	"github.com/possum-systems/possum/pkg/uart"
	"github.com/possum-systems/possum/pkg/vdc"
	"github.com/possum-systems/possum/pkg/z80"
)

func main() {
	var hd0Path string

	root := &cobra.Command{
		Use:   "possum-emu ROM",
		Short: "Run a possum Z80 system image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], hd0Path)
		},
	}
	root.Flags().StringVar(&hd0Path, "hd0", "", "writable CompactFlash image path")
	root.SilenceUsage = true

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(romPath, hd0Path string) error {
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("reading ROM: %w", err)
	}

	var hd *cf.Card
	if hd0Path != "" {
		info, err := os.Stat(hd0Path)
		if err != nil {
			return fmt.Errorf("opening hd0: %w", err)
		}
		mm, err := cf.OpenFileMap(hd0Path, int(info.Size()))
		if err != nil {
			return fmt.Errorf("opening hd0: %w", err)
		}
		defer mm.Close()
		hd = cf.Primary(mm)
		hd.EnableInterrupt(0xD0)
	}

	stdin := newStdinStream()
	stdout := newStdoutStream()

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err == nil {
		defer term.Restore(int(os.Stdin.Fd()), oldState)
	}

	keyboard := kb.New(stdin)
	ser1 := uart.New(stdout, 0xC0)
	ser2 := uart.New(noopStream{}, 0xC8)
	video := vdc.New()

	cpu := z80.New()
	var m *sys.Machine
	if hd != nil {
		m = sys.New(cpu, ser1, ser2, hd, video, keyboard)
	} else {
		m = sys.New(cpu, ser1, ser2, nil, video, keyboard)
	}
	m.LoadROM(rom, 0)

	for !m.Halted() {
		m.Step()
	}
	return nil
}

// stdinStream feeds keyboard reads from host stdin without
// blocking the step loop: a single reader goroutine drains os.Stdin
// into a buffered channel, and ReadByte only ever does a non-blocking
// channel poll. This is host-terminal glue, not part of the single
// threaded stepping model spec §5 describes.
type stdinStream struct {
	ch chan byte
}

func newStdinStream() *stdinStream {
	s := &stdinStream{ch: make(chan byte, 256)}
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				s.ch <- buf[0]
			}
			if err != nil {
				return
			}
		}
	}()
	return s
}

func (s *stdinStream) ReadByte() (byte, bool) {
	select {
	case b := <-s.ch:
		return b, true
	default:
		return 0, false
	}
}

// stdoutStream is the UART's sink: writes never block the step loop,
// mirroring the non-blocking-device rule in spec §5.
type stdoutStream struct {
	mu sync.Mutex
}

func newStdoutStream() *stdoutStream { return &stdoutStream{} }

func (s *stdoutStream) ReadByte() (byte, bool) { return 0, false }

func (s *stdoutStream) WriteByte(b byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := os.Stdout.Write([]byte{b})
	return err == nil
}

// noopStream backs the second serial port when nothing is attached to
// it; ser2 is wired per spec §4.8's device set even though nothing on
// the possum-emu CLI drives it today.
type noopStream struct{}

func (noopStream) ReadByte() (byte, bool) { return 0, false }
func (noopStream) WriteByte(b byte) bool  { return true }
