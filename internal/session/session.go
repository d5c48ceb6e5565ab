package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/1ureka/bzmon/internal/raknet"
	"github.com/1ureka/bzmon/internal/util"
)

// recvTimeout bounds each blocking read so the loop can service the send
// scheduler and the stop signal even when the peer is silent. A timeout is
// an expected steady-state condition, not an error.
const recvTimeout = 2 * time.Second

// Hooks are the session's outward-facing callbacks, consumed by the registry
// and UI layers. Nil hooks are skipped. All hooks fire from the session's
// own loop goroutine.
type Hooks struct {
	OnPong         func(addr *net.UDPAddr, status string)
	OnFrameMessage func(id byte, payload []byte)
	OnStateChange  func(old, new State)
	OnLog          func(text string)
}

// Session owns one UDP socket and one Machine, and runs the single-threaded
// receive loop that drives them. Sessions are fully independent of each
// other; nothing here is shared, so nothing needs locking — except cleanup,
// which either the loop or the context watcher may reach first.
type Session struct {
	addr  *net.UDPAddr
	hooks Hooks

	machine *Machine
	conn    *net.UDPConn

	closeOnce sync.Once
}

// New creates a session for the given server address with a fresh random
// client identity. The identity is stable for the session's lifetime.
func New(addr *net.UDPAddr, hooks Hooks) *Session {
	var guid [raknet.GUIDSize]byte
	rand.Read(guid[:])

	return &Session{
		addr:    addr,
		hooks:   hooks,
		machine: NewMachine(addr, guid),
	}
}

// Run opens the socket and blocks in the receive loop until ctx is cancelled
// or the socket fails. Receive timeouts and malformed datagrams keep the
// loop going; only send/socket errors end it. Returns nil on a clean stop.
func (s *Session) Run(ctx context.Context) error {
	conn, err := net.DialUDP("udp", nil, s.addr)
	if err != nil {
		return fmt.Errorf("failed to open socket for %s: %w", s.addr, err)
	}
	s.conn = conn
	defer s.cleanup()

	// Cooperative cancellation: closing the socket unblocks the read. The
	// watcher must not outlive Run — sessions are re-created on every retry
	// under one long-lived context.
	stop := context.AfterFunc(ctx, s.cleanup)
	defer stop()

	if err := s.apply(s.machine.Start(time.Now())); err != nil {
		return err
	}

	buf := make([]byte, 4096)
	for {
		conn.SetReadDeadline(time.Now().Add(recvTimeout))
		n, err := conn.Read(buf)

		if n > 0 {
			util.Stats.AddRecv(n)
			if err := s.apply(s.machine.HandleDatagram(time.Now(), buf[:n])); err != nil {
				return err
			}
		}

		if err != nil {
			var ne net.Error
			switch {
			case errors.As(err, &ne) && ne.Timeout():
				// Silence until the next scheduled send. Fall through to Tick.
			case ctx.Err() != nil:
				s.apply(s.machine.Stop())
				return nil
			default:
				util.LogError("session %s: socket error: %v", s.addr, err)
				return err
			}
		}

		if err := s.apply(s.machine.Tick(time.Now())); err != nil {
			return err
		}
	}
}

// apply executes machine actions in order. A failed send surfaces as a
// session-level error and ends the loop; everything else is hook dispatch.
func (s *Session) apply(acts []Action) error {
	for _, a := range acts {
		switch a.Kind {
		case ActionSend:
			if _, err := s.conn.Write(a.Datagram); err != nil {
				util.LogError("session %s: send failed: %v", s.addr, err)
				return fmt.Errorf("send to %s: %w", s.addr, err)
			}
			util.Stats.AddSent(len(a.Datagram))

		case ActionStateChange:
			util.LogDebug("session %s: %s -> %s", s.addr, a.Old, a.New)
			if s.hooks.OnStateChange != nil {
				s.hooks.OnStateChange(a.Old, a.New)
			}

		case ActionEmitPong:
			util.Stats.AddPong()
			if s.hooks.OnPong != nil {
				s.hooks.OnPong(s.addr, a.Status)
			}

		case ActionEmitMessage:
			if s.hooks.OnFrameMessage != nil {
				s.hooks.OnFrameMessage(a.MessageID, a.Payload)
			}

		case ActionLog:
			if s.hooks.OnLog != nil {
				s.hooks.OnLog(a.Text)
			} else {
				util.LogInfo("session %s: %s", s.addr, a.Text)
			}
		}
	}
	return nil
}

// cleanup closes the socket exactly once, whichever of the loop or the
// context watcher gets here first.
func (s *Session) cleanup() {
	s.closeOnce.Do(func() {
		if s.conn != nil {
			s.conn.Close()
		}
	})
}
