package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Frame type tags. Outbound first, then inbound.
const (
	TypePing              = "ping"
	TypeResetSession      = "reset_session"
	TypeAudioFromGlasses  = "audio_from_glasses"
	TypeRegisterVoice     = "register_voice"
	TypeSetVoiceExclusion = "set_voice_exclusion"

	TypePong              = "pong"
	TypeKeepAlive         = "keep_alive"
	TypeProcessingStarted = "processing_started"
	TypeProcessingStatus  = "processing_status"
	TypeAudioReceived     = "audio_received"
	TypeAudioProcessed    = "audio_processed"
	TypeSegmentResult     = "segment_result"
	TypeNoSpeech          = "no_speech"
	TypeSpeakersList      = "speakers_list"
	TypeVoiceRegistered   = "voice_registered"
	TypeVoiceRegError     = "voice_registration_error"
	TypeError             = "error"
)

// Segment is the transcript payload of a segment_result frame.
type Segment struct {
	SpeakerID     string `json:"speaker_id"`
	Text          string `json:"text"`
	SegmentNumber int    `json:"segment_number,omitempty"`
}

// Frame is one JSON message on the wire. Every frame carries a type and a
// millisecond timestamp; the remaining fields are populated per type.
type Frame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	ChunkID      string `json:"chunk_id,omitempty"`
	AudioData    string `json:"audio_data,omitempty"`
	Format       string `json:"format,omitempty"`
	SampleRate   int    `json:"sample_rate,omitempty"`
	VoiceData    string `json:"voice_data,omitempty"`
	ExcludeVoice *bool  `json:"exclude_voice,omitempty"`
	VoiceID      string `json:"voice_id,omitempty"`

	StatusCode    int      `json:"status_code,omitempty"`
	TotalSegments int      `json:"total_segments,omitempty"`
	Segment       *Segment `json:"segment,omitempty"`
	Error         string   `json:"error,omitempty"`
}

func stamp(typ string) Frame {
	return Frame{Type: typ, Timestamp: time.Now().UnixMilli()}
}

func Ping() Frame { return stamp(TypePing) }

func ResetSession() Frame { return stamp(TypeResetSession) }

// AudioFromGlasses wraps a sealed utterance's PCM as a WAV container,
// base64-encodes it, and tags it with a timestamp-derived chunk id.
func AudioFromGlasses(pcm []byte) Frame {
	f := stamp(TypeAudioFromGlasses)
	f.ChunkID = fmt.Sprintf("glasses_wav_%d", f.Timestamp)
	f.AudioData = base64.StdEncoding.EncodeToString(EncodeWAV(pcm))
	f.Format = "wav"
	f.SampleRate = SampleRate
	return f
}

func RegisterVoice(pcm []byte) Frame {
	f := stamp(TypeRegisterVoice)
	f.VoiceData = base64.StdEncoding.EncodeToString(EncodeWAV(pcm))
	f.SampleRate = SampleRate
	return f
}

func SetVoiceExclusion(exclude bool, voiceID string) Frame {
	f := stamp(TypeSetVoiceExclusion)
	f.ExcludeVoice = &exclude
	f.VoiceID = voiceID
	return f
}

func Encode(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Type, err)
	}
	return data, nil
}

// Decode parses an inbound frame. Unknown types decode fine — the caller
// decides whether to ignore them — but a frame without a type is malformed.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("decode frame: missing type field")
	}
	return f, nil
}
