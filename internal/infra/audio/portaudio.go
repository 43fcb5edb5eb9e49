//go:build portaudio
// +build portaudio

package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

var (
	paMu    sync.Mutex
	paOnce  sync.Once
	paErr   error
	paReady bool
)

// initPortAudio initialises PortAudio once per process for both capture and
// playback.
func initPortAudio() error {
	paOnce.Do(func() {
		if err := portaudio.Initialize(); err != nil {
			paErr = fmt.Errorf("initializing portaudio: %w", err)
			return
		}
		paMu.Lock()
		paReady = true
		paMu.Unlock()
	})
	return paErr
}

// Shutdown terminates PortAudio if it was initialised.
func Shutdown() error {
	paMu.Lock()
	defer paMu.Unlock()

	if !paReady {
		return nil
	}
	paReady = false
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("terminating portaudio: %w", err)
	}
	return nil
}
