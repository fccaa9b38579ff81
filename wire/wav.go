package wire

import (
	"encoding/binary"
	"fmt"
)

// Capture format shared by every component that touches PCM.
const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	ByteRate      = SampleRate * Channels * BitsPerSample / 8
	BlockAlign    = Channels * BitsPerSample / 8

	WAVHeaderSize = 44
)

// EncodeWAV prefixes raw PCM with the canonical 44-byte RIFF/WAVE header
// for 16 kHz mono s16le audio.
func EncodeWAV(pcm []byte) []byte {
	out := make([]byte, WAVHeaderSize+len(pcm))
	writeWAVHeader(out, len(pcm))
	copy(out[WAVHeaderSize:], pcm)
	return out
}

func writeWAVHeader(dst []byte, audioLen int) {
	copy(dst[0:4], "RIFF")
	binary.LittleEndian.PutUint32(dst[4:8], uint32(audioLen+36))
	copy(dst[8:12], "WAVE")
	copy(dst[12:16], "fmt ")
	binary.LittleEndian.PutUint32(dst[16:20], 16)
	binary.LittleEndian.PutUint16(dst[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(dst[22:24], Channels)
	binary.LittleEndian.PutUint32(dst[24:28], SampleRate)
	binary.LittleEndian.PutUint32(dst[28:32], ByteRate)
	binary.LittleEndian.PutUint16(dst[32:34], BlockAlign)
	binary.LittleEndian.PutUint16(dst[34:36], BitsPerSample)
	copy(dst[36:40], "data")
	binary.LittleEndian.PutUint32(dst[40:44], uint32(audioLen))
}

// PCM strips the WAV header and returns the raw sample bytes.
func PCM(wav []byte) ([]byte, error) {
	if len(wav) < WAVHeaderSize {
		return nil, fmt.Errorf("wav too short: %d bytes", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE container")
	}
	dataLen := binary.LittleEndian.Uint32(wav[40:44])
	body := wav[WAVHeaderSize:]
	if int(dataLen) > len(body) {
		return nil, fmt.Errorf("wav data length %d exceeds payload %d", dataLen, len(body))
	}
	return body[:dataLen], nil
}
