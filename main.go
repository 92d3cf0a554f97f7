package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"go-rhythm/audio"
	"go-rhythm/catalog"
	"go-rhythm/config"
	"go-rhythm/debug"
	"go-rhythm/midi"
	"go-rhythm/sequencer"
	"go-rhythm/theme"
	"go-rhythm/tui"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/go-rhythm/config.json)")
	backend := flag.String("backend", "", "synth, midi, both or none (overrides config)")
	headless := flag.Bool("headless", false, "play without the editor until interrupted")
	debugLog := flag.Bool("debug", false, "write a debug log to "+debug.DefaultPath())
	flag.Parse()

	if err := run(*configPath, *backend, *headless, *debugLog); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, backendName string, headless, debugLog bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	saved := *cfg
	if backendName != "" {
		cfg.Backend = config.BackendType(backendName)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	if debugLog || cfg.Debug {
		if err := debug.Enable(""); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		if cat, err = catalog.LoadFile(cfg.CatalogPath); err != nil {
			return err
		}
	}

	palette, err := theme.Load(cfg.Palette)
	if err != nil {
		return err
	}
	th := theme.New(palette)

	out, closers := openBackend(cfg)
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	player, err := newPlayer(cat, out, cfg)
	if err != nil {
		return err
	}
	defer player.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.MIDI.InputPort != "" {
		dm := midi.NewDeviceManager(cfg.MIDI.InputPort, cfg.MIDI.Kit)
		g.Go(func() error {
			dm.Run(ctx)
			return nil
		})
		g.Go(func() error {
			events := dm.Events()
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-events:
					if !ok {
						events = nil
						continue
					}
					debug.Log("main", "keyboard %s: %s", ev.Type, ev.Port)
				case n := <-dm.NoteEvents():
					if n.Instrument == "" {
						continue
					}
					if err := player.Preview(n.Instrument); err != nil {
						debug.Log("main", "preview %s: %v", n.Instrument, err)
					}
				}
			}
		})
	}

	if headless || !term.IsTerminal(int(os.Stdout.Fd())) {
		player.OnPosition(func(e sequencer.PositionEvent) {
			if e.Measure > 0 && e.Beat == 1 && e.SubBeat == 1 {
				fmt.Printf("measure %d\n", e.Measure)
			}
		})
		player.Start()
		fmt.Printf("go-rhythm: %s at %d bpm, ctrl+c to stop\n", player.Snapshot().Preset, player.Snapshot().Tempo)
		g.Go(func() error {
			<-ctx.Done()
			return nil
		})
	} else {
		prog := tea.NewProgram(tui.NewModel(player, th), tea.WithAltScreen())
		g.Go(func() error {
			defer stop()
			_, err := prog.Run()
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			prog.Quit()
			return nil
		})
	}

	err = g.Wait()
	player.Stop()
	remember(&saved, player.Snapshot())
	if serr := saveConfig(&saved, configPath); serr != nil {
		debug.Warn("main", "save config: %v", serr)
	}
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func saveConfig(cfg *config.Config, path string) error {
	if path == "" {
		return cfg.Save()
	}
	return cfg.SaveTo(path)
}

// remember copies the session's last settings into cfg
func remember(cfg *config.Config, s sequencer.Snapshot) {
	cfg.Tempo = s.Tempo
	cfg.Preset = s.Preset
	cfg.Kit = s.Kit
	cfg.CountIn = s.CountIn
	cfg.FillEnabled = s.FillEnabled
	cfg.AccentReduction = s.AccentReduction
}

// openBackend builds the configured outputs. An output that fails to open
// is reported and skipped.
func openBackend(cfg *config.Config) (sequencer.Backend, []io.Closer) {
	var sinks audio.Multi
	var closers []io.Closer

	if cfg.Backend == config.BackendSynth || cfg.Backend == config.BackendBoth {
		s, err := audio.NewSynth()
		if err != nil {
			fmt.Fprintf(os.Stderr, "audio: %v (continuing without synth)\n", err)
		} else {
			sinks = append(sinks, s)
			closers = append(closers, s)
		}
	}

	if cfg.Backend == config.BackendMIDI || cfg.Backend == config.BackendBoth {
		out, err := openMIDI(cfg.MIDI)
		if err != nil {
			fmt.Fprintf(os.Stderr, "midi: %v (continuing without midi)\n", err)
		} else {
			sinks = append(sinks, out)
			closers = append(closers, out)
		}
	}

	switch len(sinks) {
	case 0:
		return audio.Null{}, closers
	case 1:
		return sinks[0], closers
	default:
		return sinks, closers
	}
}

func openMIDI(mc config.MIDIConfig) (*midi.Output, error) {
	port, err := midi.FindOutPort(mc.Port)
	if err != nil {
		return nil, err
	}
	return midi.NewOutput(port, mc.Channel, mc.Kit)
}

// newPlayer applies the config. A preset or kit the catalog does not
// have falls back to the catalog's first entry.
func newPlayer(cat *catalog.Catalog, b sequencer.Backend, cfg *config.Config) (*sequencer.Player, error) {
	opts := []sequencer.Option{
		sequencer.WithTempo(cfg.Tempo),
		sequencer.WithCountIn(cfg.CountIn),
		sequencer.WithFill(cfg.FillEnabled),
		sequencer.WithAccentReduction(cfg.AccentReduction),
	}

	p, err := sequencer.NewPlayer(cat, b, append(opts,
		sequencer.WithPreset(cfg.Preset), sequencer.WithKit(cfg.Kit))...)
	if err == nil {
		return p, nil
	}
	presets, kits := cat.PresetIDs(), cat.KitIDs()
	if len(presets) == 0 || len(kits) == 0 {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "%v (using %s / %s)\n", err, presets[0], kits[0])
	return sequencer.NewPlayer(cat, b, append(opts,
		sequencer.WithPreset(presets[0]), sequencer.WithKit(kits[0]))...)
}
