package audio

import "time"

const (
	// DefaultSampleRate is the only sample rate the realtime endpoint accepts
	// for pcm input.
	DefaultSampleRate = 24000

	// DefaultFrameDuration is the amount of audio carried by a single
	// input_audio_buffer.append message.
	DefaultFrameDuration = 100 * time.Millisecond

	// MaxFrameDuration is the longest stereo capture frame that still fits in
	// the one second of mono audio a Framer may buffer.
	MaxFrameDuration = 500 * time.Millisecond
)

// WireEncodingInfo describes the audio the remote endpoint expects: 24kHz,
// mono, signed 16-bit little-endian.
func WireEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Channels: 1, Format: EncodingLinear16}
}

// CaptureEncodingInfo describes the raw output of the system audio capture
// process: the wire format, but interleaved stereo.
func CaptureEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Channels: 2, Format: EncodingLinear16}
}

type EncodingInfo struct {
	SampleRate int
	Channels   int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Channels == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) BytesPerSample() int { return e.Format.ByteSize() }

// BytesPerSecond is the byte rate of a single channel.
func (e EncodingInfo) BytesPerSecond() int {
	return e.SampleRate * e.Format.ByteSize()
}

// FrameSize returns the number of bytes covering duration d across all
// channels.
func (e EncodingInfo) FrameSize(d time.Duration) int {
	return int(int64(e.SampleRate) * int64(e.Format.ByteSize()) * int64(e.Channels) * int64(d) / int64(time.Second))
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	if e == EncodingLinear16 {
		return 2
	}
	return -1
}

const EncodingLinear16 encodingFormat = "linear16"
