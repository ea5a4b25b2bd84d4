package audio

import "time"

// Framer slices a continuous byte stream into fixed duration frames.
//
// Leftover bytes stay buffered until enough data arrives to complete a frame.
// The buffer never holds more than one second of single channel audio; when
// it would, the oldest bytes are discarded so capture keeps up with real time.
//
// A Framer is not safe for concurrent use, it is meant to be owned by the
// goroutine reading the audio source.
type Framer struct {
	frameSize   int
	maxBuffered int
	buf         []byte
}

func NewFramer(info EncodingInfo, frameDuration time.Duration) *Framer {
	if info.IsZero() {
		info = WireEncodingInfo()
	}
	if frameDuration <= 0 {
		frameDuration = DefaultFrameDuration
	}

	// a frame larger than the buffer cap could never complete
	maxBuffered := info.BytesPerSecond()
	frameSize := min(info.FrameSize(frameDuration), maxBuffered)
	// keep whole sample frames, otherwise channels drift between frames
	sampleFrame := info.Format.ByteSize() * info.Channels
	if sampleFrame <= 0 {
		sampleFrame = 1
	}
	if rem := frameSize % sampleFrame; rem != 0 {
		frameSize -= rem
	}
	if frameSize <= 0 {
		frameSize = sampleFrame
	}

	return &Framer{
		frameSize:   frameSize,
		maxBuffered: max(maxBuffered, frameSize),
		buf:         make([]byte, 0, frameSize*2),
	}
}

func (f *Framer) FrameSize() int   { return f.frameSize }
func (f *Framer) MaxBuffered() int { return f.maxBuffered }
func (f *Framer) Buffered() int    { return len(f.buf) }

// Write appends p and returns every frame that is now complete, in order.
// Returned frames do not alias the internal buffer.
func (f *Framer) Write(p []byte) [][]byte {
	f.buf = append(f.buf, p...)

	var frames [][]byte
	consumed := 0
	for len(f.buf)-consumed >= f.frameSize {
		frame := make([]byte, f.frameSize)
		copy(frame, f.buf[consumed:consumed+f.frameSize])
		frames = append(frames, frame)
		consumed += f.frameSize
	}

	remaining := f.buf[consumed:]
	if len(remaining) > f.maxBuffered {
		remaining = remaining[len(remaining)-f.maxBuffered:]
	}
	f.buf = append(f.buf[:0], remaining...)

	return frames
}

func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}
