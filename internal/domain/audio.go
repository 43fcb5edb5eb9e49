package domain

import "time"

// Fixed capture format. The recognition backend is configured for these values.
const (
	SampleRate = 44100
	BitDepth   = 16
)

type AudioClip struct {
	Path       string
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int
}

func (c *AudioClip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames) * time.Second / time.Duration(c.SampleRate)
}

func (c *AudioClip) IsMono() bool {
	return c != nil && c.Channels == 1
}

type Transcript struct {
	Text string
}

func (t Transcript) Empty() bool {
	return t.Text == ""
}

type SynthesizedAudio struct {
	Path  string
	Bytes int
}
