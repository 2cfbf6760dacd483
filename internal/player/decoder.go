package player

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// DecodeFile decodes an MP3 or WAV file to interleaved stereo int16 samples
// at 48kHz, resampling when the source rate differs.
func DecodeFile(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported audio format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if format.SampleRate != SampleRate {
		src = beep.Resample(4, format.SampleRate, SampleRate, streamer)
	}

	var samples []int16
	buf := make([][2]float64, FrameSize)
	for {
		n, ok := src.Stream(buf)
		for _, s := range buf[:n] {
			samples = append(samples, floatToSample(s[0]), floatToSample(s[1]))
		}
		if !ok {
			break
		}
	}

	// Align to whole frames so the playback loop never slices past the end.
	if rem := len(samples) % FrameSamples; rem != 0 {
		samples = samples[:len(samples)-rem]
	}

	return samples, nil
}

func floatToSample(v float64) int16 {
	v *= 32767
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
