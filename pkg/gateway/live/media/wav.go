package media

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Canonical 44-byte RIFF/WAVE header for mono 16-bit linear PCM.
const wavHeaderSize = 44

// WriteWAV writes pcm as a single-channel 16-bit linear PCM WAV file.
func WriteWAV(path string, pcm []byte, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	header := make([]byte, wavHeaderSize)
	byteRate := sampleRate * 2 // mono, 2 bytes per sample

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // audio format: PCM
	binary.LittleEndian.PutUint16(header[22:24], 1)  // channels
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(header[34:36], 16) // bits per sample
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	out := make([]byte, 0, wavHeaderSize+len(pcm))
	out = append(out, header...)
	out = append(out, pcm...)
	return os.WriteFile(path, out, 0o644)
}

// ReadWAVMono16 reads a WAV file previously produced by WriteWAV and returns
// its PCM payload and sample rate. Files that are not mono 16-bit PCM are
// rejected.
func ReadWAVMono16(path string) (pcm []byte, sampleRate int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("wav file %q too short", path)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("wav file %q has no RIFF/WAVE signature", path)
	}

	channels := binary.LittleEndian.Uint16(data[22:24])
	rate := binary.LittleEndian.Uint32(data[24:28])
	bits := binary.LittleEndian.Uint16(data[34:36])
	if channels != 1 || bits != 16 {
		return nil, 0, fmt.Errorf("wav file %q is not mono 16-bit (channels=%d bits=%d)", path, channels, bits)
	}

	size := binary.LittleEndian.Uint32(data[40:44])
	body := data[wavHeaderSize:]
	if int(size) < len(body) {
		body = body[:size]
	}
	return body, int(rate), nil
}

// MixWAV averages the two mono 16-bit inputs sample by sample, truncated to
// the shorter stream and clamped to the signed 16-bit range. The mix is
// written at the first input's sample rate.
func MixWAV(aPath, bPath, mixPath string) error {
	aPCM, aRate, err := ReadWAVMono16(aPath)
	if err != nil {
		return fmt.Errorf("mix: %w", err)
	}
	bPCM, _, err := ReadWAVMono16(bPath)
	if err != nil {
		return fmt.Errorf("mix: %w", err)
	}

	n := min(len(aPCM), len(bPCM))
	n -= n % 2 // whole samples only
	if n == 0 {
		return fmt.Errorf("mix: no overlapping audio")
	}

	mixed := make([]byte, n)
	for i := 0; i < n; i += 2 {
		a := int16(binary.LittleEndian.Uint16(aPCM[i : i+2]))
		b := int16(binary.LittleEndian.Uint16(bPCM[i : i+2]))
		v := (int(a) + int(b)) / 2
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(mixed[i:i+2], uint16(int16(v)))
	}

	return WriteWAV(mixPath, mixed, aRate)
}
