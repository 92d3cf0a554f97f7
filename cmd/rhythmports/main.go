package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"go-rhythm/midi"
	"go-rhythm/sequencer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "kits":
		listKits()
	case "hit":
		err = hit(os.Args[2:])
	case "watch":
		err = watch(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("MIDI port tools for go-rhythm")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                          - List all MIDI ports")
	fmt.Println("  kits                          - Show note maps")
	fmt.Println("  hit <port> [kit] [instrument] - Send one hit (default gm, snare)")
	fmt.Println("  watch <port> [kit]            - Print hits from an input as they arrive")
}

func listPorts() error {
	fmt.Println("(waiting up to 3 seconds...)")
	ins, err := midi.InPortNames()
	if err != nil {
		return err
	}
	outs, err := midi.OutPortNames()
	if err != nil {
		return err
	}

	fmt.Println("=== MIDI Input Ports ===")
	for i, name := range ins {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, name := range outs {
		fmt.Printf("  %d: %s\n", i, name)
	}
	return nil
}

func listKits() {
	for _, name := range midi.KitNames() {
		kit := midi.GetKit(name)
		var notes []string
		for _, id := range []string{"bass", "snare", "hihat-closed", "hihat-open", "crash", "ride", "tom1", "tom2"} {
			if n, err := kit.Note(id); err == nil {
				notes = append(notes, fmt.Sprintf("%s=%d", id, n))
			}
		}
		fmt.Printf("%-6s %s\n", name, strings.Join(notes, " "))
	}
}

func arg(args []string, i int, def string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return def
}

func hit(args []string) error {
	port, err := midi.FindOutPort(arg(args, 0, ""))
	if err != nil {
		return err
	}
	out, err := midi.NewOutput(port, 10, arg(args, 1, midi.DefaultKit))
	if err != nil {
		return err
	}
	defer out.Close()

	instrument := arg(args, 2, "snare")
	fmt.Printf("Sending %s to %s\n", instrument, port.String())
	if err := out.Trigger(instrument, 0); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	fmt.Println("Sending accent-reduced hit and click")
	if err := out.Trigger(instrument, -6); err != nil {
		return err
	}
	return out.Click(sequencer.ClickVolume)
}

func watch(args []string) error {
	dm := midi.NewDeviceManager(arg(args, 0, ""), arg(args, 1, midi.DefaultKit))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go dm.Run(ctx)

	fmt.Println("Connect/disconnect the device to test. Ctrl+C to exit.")
	events := dm.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			fmt.Printf("[%s] %s %s\n", time.Now().Format("15:04:05"), ev.Port, ev.Type)
		case n := <-dm.NoteEvents():
			name := n.Instrument
			if name == "" {
				name = "(unmapped)"
			}
			fmt.Printf("  ch %d note %3d vel %3d  %s\n", n.Channel+1, n.Note, n.Velocity, name)
		}
	}
}
