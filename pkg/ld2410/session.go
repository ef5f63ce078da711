package ld2410

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"
)

// State is the connection state of a Session.
type State int

// Session states.
const (
	StateDisconnected State = iota
	StateConnected
	StateConfigMode
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateConfigMode:
		return "config-mode"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// DefaultTimeout is the command timeout used when the context has no deadline.
const DefaultTimeout = time.Second

// Result is what a pending command receives from the receive path.
type Result struct {
	Ack *Ack
	Err error
}

type pendingCommand struct {
	kind     CommandKind
	resultCh chan Result
}

// received is a frame or a decode error found while scanning.
type received struct {
	frame Frame
	err   error
}

// Session talks to a module over a Transport. It multiplexes one
// outstanding command with the unsolicited report stream.
type Session struct {
	Transport Transport
	// Handler receives reports. It is called on the receive path.
	Handler ReportHandler
	// Timeout applies to commands whose context has no deadline.
	Timeout time.Duration

	cmdLock sync.Mutex

	lock        sync.Mutex
	state       State
	engineering bool
	pendingBaud BaudRate
	pending     *pendingCommand

	// recvLock guards recvBuf and orders dispatch across notifications.
	recvLock sync.Mutex
	recvBuf  []byte
}

// NewSession creates a session over the transport.
func NewSession(t Transport) *Session {
	return &Session{Transport: t, Timeout: DefaultTimeout}
}

// State gets the current state.
func (s *Session) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

// EngineeringMode indicates engineering reports were switched on.
func (s *Session) EngineeringMode() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.engineering
}

// PendingBaudRate returns a baud rate set but not yet applied by a restart.
func (s *Session) PendingBaudRate() (BaudRate, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.pendingBaud, s.pendingBaud != 0
}

// Open opens the transport.
func (s *Session) Open() error {
	s.lock.Lock()
	if s.state != StateDisconnected {
		s.lock.Unlock()
		return invalidOperation("session already open")
	}
	s.lock.Unlock()
	s.recvLock.Lock()
	s.recvBuf = s.recvBuf[:0]
	s.recvLock.Unlock()
	if err := s.Transport.Open(s); err != nil {
		return err
	}
	s.lock.Lock()
	s.state, s.engineering, s.pendingBaud = StateConnected, false, 0
	s.lock.Unlock()
	return nil
}

// Close closes the transport and fails the outstanding command.
func (s *Session) Close() error {
	s.lock.Lock()
	s.state = StateDisconnected
	if pc := s.pending; pc != nil {
		s.pending = nil
		pc.resultCh <- Result{Err: &TransportError{Op: "close", Err: ErrClosed}}
	}
	s.lock.Unlock()
	return s.Transport.Close()
}

// SendCommand writes the command and waits for its ack. A failure status
// is returned in the ack, not as an error. Errors are ErrInvalidOperation,
// ErrTimeout, *TransportError, *FormatError or the context error.
func (s *Session) SendCommand(ctx context.Context, cmd Command) (*Ack, error) {
	s.cmdLock.Lock()
	defer s.cmdLock.Unlock()

	pc := &pendingCommand{kind: cmd.Kind, resultCh: make(chan Result, 1)}
	s.lock.Lock()
	if err := s.checkStateLocked(cmd.Kind); err != nil {
		s.lock.Unlock()
		return nil, err
	}
	s.pending = pc
	s.lock.Unlock()
	defer s.clearPending(pc)

	glog.V(2).Infof("TX %s % x", cmd.Kind, cmd.Value)
	if _, err := s.Transport.Write(cmd.Bytes()); err != nil {
		return nil, &TransportError{Op: "write", Err: err}
	}

	if _, ok := ctx.Deadline(); !ok && s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	select {
	case r := <-pc.resultCh:
		return s.complete(r)
	case <-ctx.Done():
	}
	// a result delivered while the wait expired still counts
	s.clearPending(pc)
	select {
	case r := <-pc.resultCh:
		return s.complete(r)
	default:
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s", ErrTimeout, cmd.Kind)
	}
	return nil, ctx.Err()
}

func (s *Session) complete(r Result) (*Ack, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	s.applyAck(r.Ack)
	return r.Ack, nil
}

func (s *Session) checkStateLocked(kind CommandKind) error {
	switch {
	case s.state == StateDisconnected:
		return invalidOperation("%s: session not open", kind)
	case kind != CmdEnableConfiguration && s.state != StateConfigMode:
		return invalidOperation("%s: not in configuration mode", kind)
	}
	return nil
}

func (s *Session) clearPending(pc *pendingCommand) {
	s.lock.Lock()
	if s.pending == pc {
		s.pending = nil
	}
	s.lock.Unlock()
}

func (s *Session) applyAck(ack *Ack) {
	if !ack.Success() {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.state == StateDisconnected {
		return
	}
	switch ack.Kind {
	case CmdEnableConfiguration:
		s.state = StateConfigMode
	case CmdEndConfiguration:
		s.state = StateConnected
	case CmdEnableEngineeringMode:
		s.engineering = true
	case CmdDisableEngineeringMode:
		s.engineering = false
	case CmdRestart, CmdFactoryReset:
		// the module reboots into normal mode
		s.state, s.engineering = StateConnected, false
		if ack.Kind == CmdRestart {
			s.pendingBaud = 0
		}
	}
}

func (s *Session) trackBaud(rate BaudRate) {
	s.lock.Lock()
	s.pendingBaud = rate
	s.lock.Unlock()
}

// DataAvailable implements DataHandler. It drains the transport, decodes
// complete frames and dispatches them in stream order. Concurrent
// notifications are serialized, a notification returns after its frames
// have been dispatched.
func (s *Session) DataAvailable(n int) {
	if n <= 0 {
		return
	}
	s.recvLock.Lock()
	defer s.recvLock.Unlock()
	chunk := make([]byte, n)
	got := 0
	for got < n {
		r, err := s.Transport.Read(chunk[got:])
		if err != nil {
			glog.Warningf("transport read: %v", err)
		}
		if r <= 0 {
			break
		}
		got += r
	}
	s.recvBuf = append(s.recvBuf, chunk[:got]...)
	var events []received
	events, s.recvBuf = scan(s.recvBuf)

	for _, ev := range events {
		s.dispatch(ev)
	}
}

// scan decodes all complete frames in buf and returns the unconsumed tail.
func scan(buf []byte) (events []received, rest []byte) {
	pos, skipped := 0, 0
	for pos < len(buf) {
		pr, err := TryParse(buf, pos)
		if err != nil {
			events = append(events, received{err: err})
			pos++
			continue
		}
		if pr.Status == ParseIncomplete {
			break
		}
		if pr.Status == ParseNoFrame {
			pos++
			skipped++
			continue
		}
		events = append(events, received{frame: pr.Frame})
		pos += pr.Consumed
	}
	if skipped > 0 {
		glog.V(2).Infof("RX skipped %d bytes", skipped)
	}
	return events, append(buf[:0], buf[pos:]...)
}

func (s *Session) dispatch(ev received) {
	if ev.err != nil {
		s.handleFormatError(ev.err)
		return
	}
	switch f := ev.frame.(type) {
	case *Report:
		glog.V(2).Infof("RX %s report: %s", f.Type, f.State)
		if h := s.Handler; h != nil {
			h.HandleReport(f)
		}
	case *Ack:
		glog.V(2).Infof("RX ack %s status %04x", f.Kind, f.Status)
		if !s.deliver(f.Kind, Result{Ack: f}) {
			glog.Warningf("stray ack for %s dropped", f.Kind)
		}
	}
}

// handleFormatError hands the error to the outstanding command when it
// concerns the awaited ack, otherwise it is only logged.
func (s *Session) handleFormatError(err error) {
	var fe *FormatError
	if errors.As(err, &fe) && fe.Family == FamilyCommand && fe.Code >= ackCodeOffset {
		if s.deliver(CommandKind(fe.Code-ackCodeOffset), Result{Err: err}) {
			return
		}
	}
	glog.Warningf("RX %v", err)
}

func (s *Session) deliver(kind CommandKind, r Result) bool {
	s.lock.Lock()
	pc := s.pending
	if pc == nil || pc.kind != kind {
		s.lock.Unlock()
		return false
	}
	s.pending = nil
	// resultCh has room for the only result, the send never blocks
	pc.resultCh <- r
	s.lock.Unlock()
	return true
}

func (s *Session) do(ctx context.Context, cmd Command) (*Ack, error) {
	ack, err := s.SendCommand(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return ack, ack.Err()
}

// EnableConfiguration enters configuration mode.
func (s *Session) EnableConfiguration(ctx context.Context) (*ConfigModeInfo, error) {
	ack, err := s.do(ctx, EnableConfigurationCommand())
	if err != nil {
		return nil, err
	}
	info, _ := ack.Result.(*ConfigModeInfo)
	return info, nil
}

// EndConfiguration leaves configuration mode.
func (s *Session) EndConfiguration(ctx context.Context) error {
	_, err := s.do(ctx, EndConfigurationCommand())
	return err
}

// SetMaxGatesAndTimeout sets the farthest detection gates and the no-one duration.
func (s *Session) SetMaxGatesAndTimeout(ctx context.Context, movingGate, staticGate int, noOne time.Duration) error {
	cmd, err := SetMaxGatesAndTimeoutCommand(movingGate, staticGate, noOne)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, cmd)
	return err
}

// ReadConfiguration reads the configuration from the module.
func (s *Session) ReadConfiguration(ctx context.Context) (*Configuration, error) {
	ack, err := s.do(ctx, ReadConfigurationCommand())
	if err != nil {
		return nil, err
	}
	return ack.Result.(*Configuration), nil
}

// EnableEngineeringMode switches reports to engineering reports.
func (s *Session) EnableEngineeringMode(ctx context.Context) error {
	_, err := s.do(ctx, EngineeringModeCommand(true))
	return err
}

// DisableEngineeringMode switches reports back to basic reports.
func (s *Session) DisableEngineeringMode(ctx context.Context) error {
	_, err := s.do(ctx, EngineeringModeCommand(false))
	return err
}

// SetGateSensitivity applies the sensitivities of one gate.
func (s *Session) SetGateSensitivity(ctx context.Context, g GateConfiguration) error {
	_, err := s.do(ctx, g.command())
	return err
}

// SetAllGatesSensitivity applies the same sensitivities to every gate.
func (s *Session) SetAllGatesSensitivity(ctx context.Context, motion, rest int) error {
	cmd, err := SetAllGatesSensitivityCommand(motion, rest)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, cmd)
	return err
}

// ApplyConfiguration pushes the global settings and every gate.
// It stops at the first failure.
func (s *Session) ApplyConfiguration(ctx context.Context, c *Configuration) error {
	cmds, err := c.Commands()
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		if _, err := s.do(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// ReadFirmwareVersion reads the firmware version.
func (s *Session) ReadFirmwareVersion(ctx context.Context) (*FirmwareVersion, error) {
	ack, err := s.do(ctx, ReadFirmwareVersionCommand())
	if err != nil {
		return nil, err
	}
	return ack.Result.(*FirmwareVersion), nil
}

// SetBaudRate changes the baud rate. It takes effect after Restart.
func (s *Session) SetBaudRate(ctx context.Context, rate BaudRate) error {
	cmd, err := SetBaudRateCommand(rate)
	if err != nil {
		return err
	}
	if _, err = s.do(ctx, cmd); err != nil {
		return err
	}
	s.trackBaud(rate)
	return nil
}

// FactoryReset restores factory settings.
func (s *Session) FactoryReset(ctx context.Context) error {
	_, err := s.do(ctx, FactoryResetCommand())
	return err
}

// Restart reboots the module. The session leaves configuration mode.
func (s *Session) Restart(ctx context.Context) error {
	_, err := s.do(ctx, RestartCommand())
	return err
}

// SetBluetooth switches bluetooth on or off.
func (s *Session) SetBluetooth(ctx context.Context, on bool) error {
	_, err := s.do(ctx, BluetoothCommand(on))
	return err
}

// ReadMAC reads the bluetooth MAC address.
func (s *Session) ReadMAC(ctx context.Context) (net.HardwareAddr, error) {
	ack, err := s.do(ctx, ReadMACCommand())
	if err != nil {
		return nil, err
	}
	return ack.Result.(net.HardwareAddr), nil
}
