package ld2410

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// pipeStream joins the read side of one pipe with the write side of another.
type pipeStream struct {
	io.Reader
	io.Writer
	closeFn func() error
}

func (s *pipeStream) Close() error {
	return s.closeFn()
}

type pipeEnv struct {
	// module side
	moduleR *io.PipeReader
	moduleW *io.PipeWriter
	// host side
	hostR *io.PipeReader
	hostW *io.PipeWriter
}

func newPipeEnv() *pipeEnv {
	env := &pipeEnv{}
	env.hostR, env.moduleW = io.Pipe()
	env.moduleR, env.hostW = io.Pipe()
	return env
}

func (e *pipeEnv) opener() (io.ReadWriteCloser, error) {
	return &pipeStream{
		Reader: e.hostR,
		Writer: e.hostW,
		closeFn: func() error {
			e.hostW.Close()
			return e.hostR.Close()
		},
	}, nil
}

func TestStreamTransportDelivers(t *testing.T) {
	env := newPipeEnv()
	tr := NewStreamTransport(env.opener)
	tr.ReadSize = 4

	var lock sync.Mutex
	var got []byte
	require.NoError(t, tr.Open(DataAvailableFunc(func(n int) {
		buf := make([]byte, n)
		r, _ := tr.Read(buf)
		lock.Lock()
		got = append(got, buf[:r]...)
		lock.Unlock()
	})))
	require.Error(t, tr.Open(DataAvailableFunc(func(int) {})))

	go env.moduleW.Write(basicReport)
	require.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return len(got) == len(basicReport)
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, basicReport, got)

	go tr.Write([]byte{1, 2, 3})
	buf := make([]byte, 3)
	_, err := io.ReadFull(env.moduleR, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, buf)

	require.NoError(t, tr.Close())
	_, err = tr.Write([]byte{1})
	require.Error(t, err)
}

func TestStreamTransportReadError(t *testing.T) {
	env := newPipeEnv()
	tr := NewStreamTransport(env.opener)
	errCh := make(chan error, 1)
	tr.ErrorHandler = func(err error) { errCh <- err }
	require.NoError(t, tr.Open(DataAvailableFunc(func(int) {})))

	broken := errors.New("line broken")
	env.moduleW.CloseWithError(broken)
	select {
	case err := <-errCh:
		var terr *TransportError
		require.ErrorAs(t, err, &terr)
		require.Equal(t, "read", terr.Op)
		require.ErrorIs(t, err, broken)
	case <-time.After(time.Second):
		t.Fatal("read error not reported")
	}
	require.NoError(t, tr.Close())
}

func TestStreamTransportIgnoreEOF(t *testing.T) {
	reads := make(chan []byte, 2)
	reads <- nil
	reads <- basicReport
	stream := &scriptedStream{reads: reads}
	tr := NewStreamTransport(func() (io.ReadWriteCloser, error) { return stream, nil })
	tr.IgnoreEOF = true
	errCh := make(chan error, 1)
	tr.ErrorHandler = func(err error) { errCh <- err }

	s := NewSession(tr)
	reports := NewReportChan(1)
	s.Handler = reports
	require.NoError(t, s.Open())
	select {
	case r := <-reports.C():
		require.Equal(t, TargetBoth, r.State)
	case err := <-errCh:
		t.Fatalf("unexpected error %v", err)
	case <-time.After(time.Second):
		t.Fatal("no report")
	}
	require.NoError(t, s.Close())
}

func TestSessionOverStreamTransport(t *testing.T) {
	env := newPipeEnv()
	s := NewSession(NewStreamTransport(env.opener))
	require.NoError(t, s.Open())

	go func() {
		buf := make([]byte, len(EnableConfigurationCommand().Bytes()))
		if _, err := io.ReadFull(env.moduleR, buf); err != nil {
			return
		}
		// ack split across writes
		ack := okAck(CmdEnableConfiguration, 0x01, 0x00, 0x40, 0x00)
		env.moduleW.Write(ack[:7])
		env.moduleW.Write(ack[7:])
	}()
	info, err := s.EnableConfiguration(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint16(0x40), info.BufferSize)
	require.Equal(t, StateConfigMode, s.State())
	require.NoError(t, s.Close())
}

// scriptedStream returns io.EOF whenever a nil chunk is scripted, the way
// a serial port reports an expired read timeout.
type scriptedStream struct {
	reads  chan []byte
	lock   sync.Mutex
	closed bool
}

func (s *scriptedStream) Read(p []byte) (int, error) {
	s.lock.Lock()
	closed := s.closed
	s.lock.Unlock()
	if closed {
		return 0, io.ErrClosedPipe
	}
	select {
	case b := <-s.reads:
		if b == nil {
			return 0, io.EOF
		}
		return copy(p, b), nil
	case <-time.After(5 * time.Millisecond):
		return 0, io.EOF
	}
}

func (s *scriptedStream) Write(p []byte) (int, error) {
	return len(p), nil
}

func (s *scriptedStream) Close() error {
	s.lock.Lock()
	s.closed = true
	s.lock.Unlock()
	return nil
}
