package notify

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
)

const chimeSampleRate = beep.SampleRate(44100)

var errNoSpeaker = errors.New("notify: audio output unavailable")

// Chime plays a short two-tone sound through the default audio device
type Chime struct {
	Volume float64 // log2 gain, 0 leaves the tone unchanged

	once    sync.Once
	initErr error
}

func (c *Chime) Dispatch(ctx context.Context, n Notification) error {
	c.once.Do(func() {
		c.initErr = speaker.Init(chimeSampleRate, chimeSampleRate.N(time.Second/10))
	})
	if c.initErr != nil {
		return errNoSpeaker
	}

	speaker.Play(c.stream())
	return nil
}

func (c *Chime) stream() beep.Streamer {
	tones := beep.Seq(
		tone(880, 150*time.Millisecond),
		tone(1320, 200*time.Millisecond),
	)
	return &effects.Volume{
		Streamer: tones,
		Base:     2,
		Volume:   c.Volume,
	}
}

// tone returns a sine wave at freq Hz lasting d
func tone(freq float64, d time.Duration) beep.Streamer {
	step := 2 * math.Pi * freq / float64(chimeSampleRate)
	var phase float64
	sine := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			v := math.Sin(phase) * 0.3
			samples[i][0] = v
			samples[i][1] = v
			phase += step
		}
		return len(samples), true
	})
	return beep.Take(chimeSampleRate.N(d), sine)
}
