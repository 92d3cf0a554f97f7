package audio

import (
	"math"
	"math/rand/v2"
	"sync"
)

// SampleRate of the synth output
const SampleRate = 44100

// headroom keeps a few simultaneous full-level voices out of the clipper
const headroom = 0.5

// mixer sums the sounding voices into a signed 16-bit little-endian mono
// stream for oto
type mixer struct {
	mu      sync.Mutex
	rate    float64
	playing []*sounding
	rng     *rand.Rand
}

type sounding struct {
	v      Voice
	amp    float64
	n      int // samples rendered
	length int
}

func newMixer(rate int, seed uint64) *mixer {
	return &mixer{
		rate: float64(rate),
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// start begins a voice at volumeDb (0 = full level)
func (m *mixer) start(v Voice, volumeDb float64) {
	s := &sounding{
		v:      v,
		amp:    dbToGain(volumeDb + v.Gain),
		length: int(v.Decay * m.rate),
	}
	if s.length < 1 {
		return
	}
	m.mu.Lock()
	m.playing = append(m.playing, s)
	m.mu.Unlock()
}

// Active returns the number of voices still sounding
func (m *mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.playing)
}

// Read implements io.Reader for oto.Player.
func (m *mixer) Read(p []byte) (int, error) {
	samples := len(p) / 2

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < samples; i++ {
		var sum float64
		for _, s := range m.playing {
			if s.n < s.length {
				sum += m.sample(s)
				s.n++
			}
		}
		sum *= headroom
		if sum > 1 {
			sum = 1
		} else if sum < -1 {
			sum = -1
		}
		v := int16(sum * 32767)
		p[2*i] = byte(v)
		p[2*i+1] = byte(v >> 8)
	}

	live := m.playing[:0]
	for _, s := range m.playing {
		if s.n < s.length {
			live = append(live, s)
		}
	}
	clear(m.playing[len(live):])
	m.playing = live

	return samples * 2, nil
}

func (m *mixer) sample(s *sounding) float64 {
	t := float64(s.n) / m.rate
	env := s.amp * math.Pow(silenceLevel, t/s.v.Decay)
	if s.v.Wave == Noise {
		return env * (m.rng.Float64()*2 - 1)
	}
	return env * math.Sin(2*math.Pi*s.v.Freq*t)
}

func dbToGain(db float64) float64 {
	return math.Pow(10, db/20)
}
