package audio

import (
	"fmt"
	"log/slog"

	goaudio "github.com/go-audio/audio"

	"voice-assistant/internal/domain"
)

// Downmixer converts WAV clips to a single channel by averaging the channel
// samples of every frame. Mono input is copied unchanged, so applying it twice
// gives a byte-identical file.
type Downmixer struct {
	logger *slog.Logger
}

func NewDownmixer(logger *slog.Logger) *Downmixer {
	return &Downmixer{logger: logger}
}

func (d *Downmixer) ToMono(inputPath, outputPath string) (*domain.AudioClip, error) {
	buf, clip, err := decodeWAV(inputPath)
	if err != nil {
		return nil, domain.Wrap(domain.ErrDecode, "to mono", err)
	}

	if clip.IsMono() {
		if err := copyFile(inputPath, outputPath); err != nil {
			return nil, domain.Wrap(domain.ErrDecode, "to mono", err)
		}
		clip.Path = outputPath
		return clip, nil
	}

	mono := downmix(buf, clip.Channels)
	if err := encodeWAV(outputPath, mono, clip.BitDepth); err != nil {
		return nil, domain.Wrap(domain.ErrDecode, "to mono", fmt.Errorf("writing %s: %w", outputPath, err))
	}

	d.logger.Debug("downmixed clip", "channels", clip.Channels, "frames", clip.Frames, "path", outputPath)

	return &domain.AudioClip{
		Path:       outputPath,
		SampleRate: clip.SampleRate,
		Channels:   1,
		BitDepth:   clip.BitDepth,
		Frames:     clip.Frames,
	}, nil
}

func downmix(buf *goaudio.IntBuffer, channels int) *goaudio.IntBuffer {
	frames := len(buf.Data) / channels
	data := make([]int, frames)
	for i := range data {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		data[i] = sum / channels
	}

	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: buf.Format.SampleRate},
		Data:           data,
		SourceBitDepth: buf.SourceBitDepth,
	}
}
