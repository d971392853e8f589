// Package video wraps frame-level access to video files. The stabiliser only
// depends on the Source and Sink contracts so tests can substitute synthetic
// streams.
package video

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrSourceUnavailable marks a video that cannot be opened or has no frames.
var ErrSourceUnavailable = errors.New("video: source unavailable")

// Source provides sequential frame access with rewind support. The stream
// must be re-readable from the start, the stabiliser traverses it twice.
type Source interface {
	FrameCount() int
	Dimensions() (width, height int)
	FPS() float64

	// Read decodes the next frame into dst. It returns false at end of
	// stream, which may arrive before FrameCount frames were produced.
	Read(dst *gocv.Mat) bool

	// Reset rewinds the stream to the first frame.
	Reset() error

	Close() error
}

// Sink receives finished frames.
type Sink interface {
	Write(frame gocv.Mat) error
	Close() error
}

type fileSource struct {
	cap    *gocv.VideoCapture
	path   string
	frames int
}

// OpenSource opens a video file for reading.
func OpenSource(path string) (Source, error) {
	cap, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, path)
	}
	frames := int(cap.Get(gocv.VideoCaptureFrameCount))
	if frames <= 0 {
		cap.Close()
		return nil, fmt.Errorf("%w: %s has no frames", ErrSourceUnavailable, path)
	}
	return &fileSource{cap: cap, path: path, frames: frames}, nil
}

func (s *fileSource) FrameCount() int { return s.frames }

func (s *fileSource) Dimensions() (int, int) {
	return int(s.cap.Get(gocv.VideoCaptureFrameWidth)), int(s.cap.Get(gocv.VideoCaptureFrameHeight))
}

func (s *fileSource) FPS() float64 { return s.cap.Get(gocv.VideoCaptureFPS) }

func (s *fileSource) Read(dst *gocv.Mat) bool {
	return s.cap.Read(dst) && !dst.Empty()
}

func (s *fileSource) Reset() error {
	s.cap.Set(gocv.VideoCapturePosFrames, 0)
	return nil
}

func (s *fileSource) Close() error { return s.cap.Close() }

type fileSink struct {
	writer *gocv.VideoWriter
}

// OpenSink opens a video file for writing with the given codec fourcc.
func OpenSink(path, codec string, fps float64, width, height int) (Sink, error) {
	writer, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("video: open sink %s: %w", path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("video: sink %s did not open for codec %s", path, codec)
	}
	return &fileSink{writer: writer}, nil
}

func (s *fileSink) Write(frame gocv.Mat) error {
	return s.writer.Write(frame)
}

func (s *fileSink) Close() error { return s.writer.Close() }
