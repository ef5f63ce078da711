package ld2410

import (
	"io"
	"os"
	"sync"

	"github.com/golang/glog"
)

// DataHandler is notified when bytes are available on a transport.
type DataHandler interface {
	DataAvailable(n int)
}

// DataAvailableFunc is func type of DataHandler.
type DataAvailableFunc func(n int)

// DataAvailable implements DataHandler.
func (f DataAvailableFunc) DataAvailable(n int) {
	f(n)
}

// Transport is the byte link to the module.
// Open starts delivering DataAvailable notifications; Read drains the
// announced bytes without blocking.
type Transport interface {
	Open(DataHandler) error
	Close() error
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
}

// StreamTransport adapts a blocking io.ReadWriteCloser, e.g. a serial port,
// to Transport with a background read loop.
type StreamTransport struct {
	// Opener opens the underlying stream.
	Opener func() (io.ReadWriteCloser, error)
	// ErrorHandler is called when the read loop fails.
	ErrorHandler func(error)
	// ReadSize is the chunk size of a single read.
	ReadSize int
	// IgnoreEOF treats io.EOF as an expired read timeout, as reported
	// by serial ports configured with a read timeout.
	IgnoreEOF bool

	lock    sync.Mutex
	stream  io.ReadWriteCloser
	pending []byte
	closed  bool
	done    chan struct{}
}

// NewStreamTransport creates a StreamTransport.
func NewStreamTransport(opener func() (io.ReadWriteCloser, error)) *StreamTransport {
	return &StreamTransport{Opener: opener, ReadSize: 64}
}

// Open implements Transport.
func (t *StreamTransport) Open(h DataHandler) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.stream != nil {
		return &TransportError{Op: "open", Err: os.ErrExist}
	}
	stream, err := t.Opener()
	if err != nil {
		return &TransportError{Op: "open", Err: err}
	}
	t.stream, t.closed, t.pending = stream, false, nil
	t.done = make(chan struct{})
	glog.V(4).Info("transport opened")
	go t.readLoop(stream, h, t.done)
	return nil
}

// Close implements Transport.
func (t *StreamTransport) Close() error {
	t.lock.Lock()
	stream, done := t.stream, t.done
	t.stream, t.closed = nil, true
	t.lock.Unlock()
	if stream == nil {
		return nil
	}
	err := stream.Close()
	<-done
	glog.V(4).Info("transport closed")
	return err
}

// Write implements Transport.
func (t *StreamTransport) Write(p []byte) (int, error) {
	t.lock.Lock()
	stream := t.stream
	t.lock.Unlock()
	if stream == nil {
		return 0, os.ErrClosed
	}
	return stream.Write(p)
}

// Read implements Transport.
func (t *StreamTransport) Read(p []byte) (int, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	n := copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

func (t *StreamTransport) isClosed() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.closed
}

func (t *StreamTransport) readLoop(stream io.Reader, h DataHandler, done chan struct{}) {
	defer close(done)
	size := t.ReadSize
	if size <= 0 {
		size = 64
	}
	buf := make([]byte, size)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			t.lock.Lock()
			t.pending = append(t.pending, buf[:n]...)
			t.lock.Unlock()
			h.DataAvailable(n)
		}
		if err == nil {
			continue
		}
		if t.isClosed() {
			return
		}
		if os.IsTimeout(err) || (err == io.EOF && t.IgnoreEOF) {
			continue
		}
		glog.Errorf("transport read error: %v", err)
		if eh := t.ErrorHandler; eh != nil {
			eh(&TransportError{Op: "read", Err: err})
		}
		return
	}
}
