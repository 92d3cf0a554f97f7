package audio

import "go-rhythm/catalog"

// Null discards every trigger
type Null struct{}

func (Null) Trigger(string, float64) error { return nil }
func (Null) Click(float64) error { return nil }

// Sink is what Multi fans out to
type Sink interface {
	Trigger(instrument string, volumeDb float64) error
	Click(volumeDb float64) error
}

type kitLoader interface {
	LoadKit(k catalog.Kit) error
}

// Multi sends every trigger to all of its sinks. A failing sink does not
// keep the others from sounding; the first error is returned.
type Multi []Sink

func (m Multi) Trigger(instrument string, volumeDb float64) error {
	var first error
	for _, s := range m {
		if err := s.Trigger(instrument, volumeDb); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Click(volumeDb float64) error {
	var first error
	for _, s := range m {
		if err := s.Click(volumeDb); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LoadKit forwards the kit to the sinks that care about it
func (m Multi) LoadKit(k catalog.Kit) error {
	for _, s := range m {
		if kl, ok := s.(kitLoader); ok {
			if err := kl.LoadKit(k); err != nil {
				return err
			}
		}
	}
	return nil
}
