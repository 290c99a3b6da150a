package transcode

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// nativeDecoder decodes a whole file into interleaved PCM
type nativeDecoder func(r io.ReadSeeker) (pcm []float64, sampleRate, channels int, err error)

var nativeDecoders = map[string]nativeDecoder{
	"wav":  decodeWAV,
	"wave": decodeWAV,
	"mp3":  decodeMP3,
	"ogg":  decodeOgg,
	"oga":  decodeOgg,
}

// wavFormatPCM is the WAVE_FORMAT_PCM tag
const wavFormatPCM = 1

func decodeWAV(r io.ReadSeeker) ([]float64, int, int, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, 0, 0, errors.New("invalid WAV file")
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, 0, 0, fmt.Errorf("%w: WAV format tag %d", ErrUnsupportedFormat, decoder.WavAudioFormat)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("could not read PCM buffer: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, 0, 0, errors.New("WAV file has no channel information")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(decoder.BitDepth)
	}
	// 8-bit WAV is unsigned, everything else is signed
	var offset float64
	if bitDepth == 8 {
		offset = 128
	}
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))

	pcm := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		pcm[i] = (float64(v) - offset) * scale
	}

	return pcm, buf.Format.SampleRate, buf.Format.NumChannels, nil
}

func decodeMP3(r io.ReadSeeker) ([]float64, int, int, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, err
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read mp3 stream: %w", err)
	}

	// go-mp3 always emits 16-bit little-endian stereo
	samples := len(raw) / 2
	pcm := make([]float64, samples)
	for i := range samples {
		val := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		pcm[i] = float64(val) / 32768.0
	}

	return pcm, dec.SampleRate(), 2, nil
}

func decodeOgg(r io.ReadSeeker) ([]float64, int, int, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, 0, 0, err
	}

	pcm := make([]float64, len(data))
	for i, v := range data {
		pcm[i] = float64(v)
	}

	return pcm, format.SampleRate, format.Channels, nil
}
