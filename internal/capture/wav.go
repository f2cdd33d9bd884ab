package capture

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV export parameters. Samples are widened to 16-bit PCM because 8-bit
// WAV is unsigned and would hide the signed format the sink receives.
const (
	wavBitDepth    = 16
	wavChannels    = 1
	wavFormatPCM   = 1
	int8ToInt16Shl = 8
)

// ErrSampleRate is returned for a sample rate a WAV header cannot hold.
var ErrSampleRate = errors.New("capture: sample rate must be positive")

// WriteWAV encodes samples as mono 16-bit PCM at sampleRate.
func WriteWAV(w io.WriteSeeker, samples []int8, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: got %d", ErrSampleRate, sampleRate)
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: wavChannels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: wavBitDepth,
	}
	for i, s := range samples {
		buf.Data[i] = int(s) << int8ToInt16Shl
	}

	enc := wav.NewEncoder(w, sampleRate, wavBitDepth, wavChannels, wavFormatPCM)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return nil
}

// WriteWAVFile creates path and writes samples to it with WriteWAV.
func WriteWAVFile(path string, samples []int8, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

// ReadWAV decodes a file written by WriteWAV back to int8 samples and
// returns them with the stored sample rate.
func ReadWAV(r io.ReadSeeker) ([]int8, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("capture: invalid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode WAV: %w", err)
	}
	out := make([]int8, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = int8(v >> int8ToInt16Shl)
	}
	return out, int(dec.SampleRate), nil
}
