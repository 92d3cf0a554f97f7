package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/pkg/errors"

	"go-rhythm/catalog"
	"go-rhythm/debug"
)

// Synth renders drum voices in process and plays them through oto
type Synth struct {
	ctx    *oto.Context
	player *oto.Player
	mix    *mixer
	bound  atomic.Pointer[map[string]bool] // nil = every instrument sounds
	mutex  sync.Mutex                      // Only for setup/control operations
}

// NewSynth opens the default audio device. It blocks until the device is ready.
func NewSynth() (*Synth, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   10 * time.Millisecond,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open audio device")
	}
	<-ready

	s := newSynth(newMixer(SampleRate, uint64(time.Now().UnixNano())))
	s.ctx = ctx
	s.player = ctx.NewPlayer(s.mix)
	s.player.Play()
	debug.Log("synth", "output open: %d Hz mono", SampleRate)
	return s, nil
}

func newSynth(m *mixer) *Synth {
	return &Synth{mix: m}
}

// LoadKit restricts the synth to the instruments the kit binds a sound to
func (s *Synth) LoadKit(k catalog.Kit) error {
	bound := make(map[string]bool, len(k.Sounds))
	for id := range k.Sounds {
		bound[id] = true
	}
	s.bound.Store(&bound)
	debug.Log("synth", "kit %s: %d sounds", k.ID, len(bound))
	return nil
}

func (s *Synth) Trigger(instrument string, volumeDb float64) error {
	if b := s.bound.Load(); b != nil && !(*b)[instrument] {
		return errors.Wrapf(ErrNoVoice, "%q", instrument)
	}
	s.mix.start(VoiceFor(instrument), volumeDb)
	return nil
}

func (s *Synth) Click(volumeDb float64) error {
	s.mix.start(clickVoice, volumeDb)
	return nil
}

// Close stops output
func (s *Synth) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.player == nil {
		return nil
	}
	err := s.player.Close()
	s.player = nil
	if s.ctx != nil {
		if serr := s.ctx.Suspend(); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}
