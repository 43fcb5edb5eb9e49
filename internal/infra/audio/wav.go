package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voice-assistant/internal/domain"
)

const pcmFormat = 1

// framesFor returns how many frames at rate make up d.
func framesFor(d time.Duration, rate int) int {
	return int(int64(d) * int64(rate) / int64(time.Second))
}

// decodeWAV reads a whole PCM WAV file into memory.
func decodeWAV(path string) (*goaudio.IntBuffer, *domain.AudioClip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, nil, fmt.Errorf("%s is not a valid wav file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("decoding wav: %w", err)
	}

	clip := &domain.AudioClip{
		Path:       path,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Frames:     buf.NumFrames(),
	}
	return buf, clip, nil
}

// encodeWAV writes buf as a PCM WAV file. The file is written next to path and
// renamed into place, so path may also be the file buf was decoded from.
func encodeWAV(path string, buf *goaudio.IntBuffer, bitDepth int) error {
	return writeAtomic(path, func(f *os.File) error {
		enc := wav.NewEncoder(f, buf.Format.SampleRate, bitDepth, buf.Format.NumChannels, pcmFormat)
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("writing wav: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("closing wav encoder: %w", err)
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	return writeAtomic(dst, func(f *os.File) error {
		if _, err := io.Copy(f, in); err != nil {
			return fmt.Errorf("copying %s: %w", src, err)
		}
		return nil
	})
}

func writeAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
