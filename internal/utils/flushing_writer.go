package utils

import "io"

type flusher interface {
	Flush() error
}

// FlushingWriter flushes the wrapped writer after every write when it supports flushing, so
// log lines interleave correctly with output from child processes sharing the terminal.
type FlushingWriter struct {
	destination io.Writer
}

// NewFlushingWriter wraps destination.
func NewFlushingWriter(destination io.Writer) *FlushingWriter {
	return &FlushingWriter{destination: destination}
}

// Write writes data and then flushes. A flush failure is returned after the bytes are written.
func (writer *FlushingWriter) Write(data []byte) (int, error) {
	bytesWritten, writeError := writer.destination.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}
	if flushable, ok := writer.destination.(flusher); ok {
		if flushError := flushable.Flush(); flushError != nil {
			return bytesWritten, flushError
		}
	}
	return bytesWritten, nil
}
