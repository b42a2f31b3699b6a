// Package wav reads and writes 16-bit PCM RIFF/WAVE files. Multi-channel
// input is mixed down to mono on decode.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
	headerSize       = 44
)

// ErrFormat is returned for input that is not a 16-bit PCM WAVE file.
var ErrFormat = errors.New("wav: unsupported format")

// header is the canonical 44-byte header written by Encode.
type header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// fmtChunk is the common prefix of every "fmt " chunk.
type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Audio is decoded mono audio.
type Audio struct {
	SampleRate int
	// Channels is the channel count of the source before mixdown.
	Channels int
	// Samples are in [-1, 1).
	Samples []float64
}

// Duration returns the length in seconds.
func (a *Audio) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

// Encode writes mono samples in [-1, 1] as a 16-bit PCM WAVE file. Values
// outside the range are clipped.
func Encode(samples []float64, sampleRate int) ([]byte, error) {
	pcm := make([]int16, len(samples))
	for i, v := range samples {
		pcm[i] = FloatToPCM16(v)
	}
	return EncodeInt16(pcm, sampleRate)
}

// EncodeInt16 writes mono PCM-16 samples as a WAVE file.
func EncodeInt16(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("wav: cannot encode empty audio")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("wav: sample rate must be positive, got %d", sampleRate)
	}

	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	dataSize := uint32(len(samples) * 2)
	h := header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   formatPCM,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * numChannels * bitsPerSample / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("wav: write header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("wav: write data: %w", err)
	}
	return buf.Bytes(), nil
}

// Write encodes samples to w.
func Write(w io.Writer, samples []float64, sampleRate int) error {
	data, err := Encode(samples, sampleRate)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Read decodes a whole WAVE stream from r.
func Read(r io.Reader) (*Audio, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("wav: read: %w", err)
	}
	return Decode(data)
}

// Decode parses a WAVE file. Chunks other than "fmt " and "data" are
// skipped. Channels are averaged into one.
func Decode(data []byte) (*Audio, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrFormat)
	}

	var (
		format  *fmtChunk
		payload []byte
	)
	pos := 12
	for pos+8 <= len(data) && payload == nil {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if size < 0 || end > len(data) {
			if id != "data" {
				return nil, fmt.Errorf("%w: chunk %q overruns file", ErrFormat, id)
			}
			// Streaming writers leave the data size unset; take what is there.
			end = len(data)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too short (%d bytes)", ErrFormat, size)
			}
			var fc fmtChunk
			if err := binary.Read(bytes.NewReader(data[body:body+16]), binary.LittleEndian, &fc); err != nil {
				return nil, fmt.Errorf("wav: read fmt chunk: %w", err)
			}
			format = &fc
		case "data":
			payload = data[body:end]
		}

		// Chunks are word aligned.
		pos = end + end%2
	}

	if format == nil {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrFormat)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: missing data chunk", ErrFormat)
	}
	if format.AudioFormat != formatPCM && format.AudioFormat != formatExtensible {
		return nil, fmt.Errorf("%w: audio format %d (only PCM is supported)", ErrFormat, format.AudioFormat)
	}
	if format.BitsPerSample != 16 {
		return nil, fmt.Errorf("%w: bit depth %d (only 16-bit is supported)", ErrFormat, format.BitsPerSample)
	}
	if format.NumChannels == 0 {
		return nil, fmt.Errorf("%w: zero channels", ErrFormat)
	}
	if format.SampleRate == 0 {
		return nil, fmt.Errorf("%w: zero sample rate", ErrFormat)
	}

	channels := int(format.NumChannels)
	frames := len(payload) / (2 * channels)
	out := make([]float64, frames)
	scale := 1 / float64(channels)
	for i := range out {
		var sum float64
		for c := 0; c < channels; c++ {
			off := 2 * (i*channels + c)
			sum += PCM16ToFloat(int16(binary.LittleEndian.Uint16(payload[off:])))
		}
		out[i] = sum * scale
	}

	return &Audio{
		SampleRate: int(format.SampleRate),
		Channels:   channels,
		Samples:    out,
	}, nil
}

// PCM16ToFloat converts one sample to [-1, 1).
func PCM16ToFloat(v int16) float64 {
	return float64(v) / 32768
}

// FloatToPCM16 converts one sample in [-1, 1] to PCM-16, clipping
// out-of-range values. NaN maps to zero.
func FloatToPCM16(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}
	s := math.Round(v * 32767)
	if s > math.MaxInt16 {
		return math.MaxInt16
	}
	if s < math.MinInt16 {
		return math.MinInt16
	}
	return int16(s)
}

// DecodePCM16 converts little-endian PCM-16 bytes to samples, appending to
// dst. A trailing odd byte is ignored.
func DecodePCM16(dst []float64, src []byte) []float64 {
	for i := 0; i+1 < len(src); i += 2 {
		dst = append(dst, PCM16ToFloat(int16(binary.LittleEndian.Uint16(src[i:]))))
	}
	return dst
}
