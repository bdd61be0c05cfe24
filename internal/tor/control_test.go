package tor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeControl is a scripted Tor control port.
type fakeControl struct {
	t     *testing.T
	ln    net.Listener
	reply func(cmd string) string

	mu    sync.Mutex
	cmds  []string
	conns int
}

func newFakeControl(t *testing.T, reply func(cmd string) string) *fakeControl {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx // test code
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeControl{t: t, ln: ln, reply: reply}
	t.Cleanup(func() { _ = ln.Close() })
	go f.serve()
	return f
}

func (f *fakeControl) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns++
		f.mu.Unlock()
		go f.handle(conn)
	}
}

func (f *fakeControl) handle(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.cmds = append(f.cmds, line)
		f.mu.Unlock()

		resp := f.reply(line)
		if err := tp.PrintfLine("%s", resp); err != nil {
			return
		}
		if !strings.HasPrefix(resp, "250") || strings.HasPrefix(line, "QUIT") {
			return
		}
	}
}

func (f *fakeControl) addr() string { return f.ln.Addr().String() }

func (f *fakeControl) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cmds...)
}

func (f *fakeControl) connections() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns
}

// okControl accepts everything.
func okControl(string) string { return "250 OK" }

type fakeLookup struct {
	mu  sync.Mutex
	ips []string
	err error
}

func (l *fakeLookup) Lookup(context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", l.err
	}
	ip := l.ips[0]
	if len(l.ips) > 1 {
		l.ips = l.ips[1:]
	}
	return ip, nil
}

type recordedSleeps struct {
	mu sync.Mutex
	d  []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.d = append(r.d, d)
	r.mu.Unlock()
	return ctx.Err()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRenewCircuit(t *testing.T) {
	t.Parallel()

	t.Run("successful renewal sends the expected commands", func(t *testing.T) {
		t.Parallel()
		fc := newFakeControl(t, okControl)
		sl := &recordedSleeps{}
		c := NewController(fc.addr(), WithSleep(sl.sleep), WithControllerLogger(quietLogger()))

		res := c.RenewCircuit(t.Context())
		if !res.Renewed() || res.Attempts != 1 || res.Err != nil {
			t.Fatalf("result = %+v", res)
		}
		cmds := fc.commands()
		if len(cmds) < 2 || cmds[0] != `AUTHENTICATE ""` || cmds[1] != "SIGNAL NEWNYM" {
			t.Errorf("commands = %q", cmds)
		}
		// settle delay only
		if len(sl.d) != 1 || sl.d[0] < time.Second || sl.d[0] >= 2*time.Second {
			t.Errorf("sleeps = %v, want one settle delay in [1s,2s)", sl.d)
		}
	})

	t.Run("auth refusal returns without retry or panic", func(t *testing.T) {
		t.Parallel()
		fc := newFakeControl(t, func(cmd string) string {
			if strings.HasPrefix(cmd, "AUTHENTICATE") {
				return "515 Authentication failed: Password did not match"
			}
			return "250 OK"
		})
		sl := &recordedSleeps{}
		c := NewController(fc.addr(), WithSleep(sl.sleep), WithControllerLogger(quietLogger()))

		res := c.RenewCircuit(t.Context())
		if res.Status != RenewAuthRejected {
			t.Fatalf("status = %v", res.Status)
		}
		if res.Attempts != 1 || fc.connections() != 1 {
			t.Errorf("attempts = %d, connections = %d; want 1, 1", res.Attempts, fc.connections())
		}
		if !errors.Is(res.Err, ErrAuthRejected) {
			t.Errorf("Err = %v", res.Err)
		}
		if res.Renewed() {
			t.Error("Renewed() = true")
		}
		for _, cmd := range fc.commands() {
			if cmd == "SIGNAL NEWNYM" {
				t.Error("NEWNYM sent after auth failure")
			}
		}
		if len(sl.d) != 0 {
			t.Errorf("unexpected sleeps %v", sl.d)
		}
	})

	t.Run("signal refusal is retried with backoff", func(t *testing.T) {
		t.Parallel()
		fc := newFakeControl(t, func(cmd string) string {
			if cmd == "SIGNAL NEWNYM" {
				return "552 Unrecognized signal"
			}
			return "250 OK"
		})
		sl := &recordedSleeps{}
		c := NewController(fc.addr(), WithSleep(sl.sleep), WithControllerLogger(quietLogger()))

		res := c.RenewCircuit(t.Context())
		if res.Status != RenewSignalRejected || res.Attempts != 3 {
			t.Fatalf("result = %+v", res)
		}
		if !errors.Is(res.Err, ErrSignalRejected) {
			t.Errorf("Err = %v", res.Err)
		}
		want := []time.Duration{time.Second, 2 * time.Second}
		if len(sl.d) != len(want) || sl.d[0] != want[0] || sl.d[1] != want[1] {
			t.Errorf("backoff = %v, want %v", sl.d, want)
		}
	})

	t.Run("unreachable control port degrades", func(t *testing.T) {
		t.Parallel()
		sl := &recordedSleeps{}
		c := NewController(closedAddr(t), WithSleep(sl.sleep), WithControllerLogger(quietLogger()), WithMaxAttempts(2))

		res := c.RenewCircuit(t.Context())
		if res.Status != RenewUnreachable || res.Attempts != 2 || res.Err == nil {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("password is quoted", func(t *testing.T) {
		t.Parallel()
		fc := newFakeControl(t, okControl)
		sl := &recordedSleeps{}
		c := NewController(fc.addr(), WithPassword(`pa"ss\word`), WithSleep(sl.sleep), WithControllerLogger(quietLogger()))

		c.RenewCircuit(t.Context())
		if cmds := fc.commands(); len(cmds) == 0 || cmds[0] != `AUTHENTICATE "pa\"ss\\word"` {
			t.Errorf("commands = %q", cmds)
		}
	})

	t.Run("cookie is sent as hex", func(t *testing.T) {
		t.Parallel()
		cookie := filepath.Join(t.TempDir(), "control_auth_cookie")
		if err := os.WriteFile(cookie, []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}, 0o600); err != nil {
			t.Fatal(err)
		}
		fc := newFakeControl(t, func(cmd string) string {
			if strings.HasPrefix(cmd, "AUTHENTICATE") && cmd != "AUTHENTICATE deadbeef0001" {
				return "515 Authentication failed: Wrong length on authentication cookie."
			}
			return "250 OK"
		})
		sl := &recordedSleeps{}
		c := NewController(fc.addr(), WithPassword("ignored"), WithCookie(cookie),
			WithSleep(sl.sleep), WithControllerLogger(quietLogger()))

		if res := c.RenewCircuit(t.Context()); !res.Renewed() {
			t.Errorf("result = %+v, commands = %q", res, fc.commands())
		}
	})

	t.Run("unreadable cookie is an auth failure", func(t *testing.T) {
		t.Parallel()
		fc := newFakeControl(t, okControl)
		sl := &recordedSleeps{}
		c := NewController(fc.addr(), WithCookie(filepath.Join(t.TempDir(), "missing")),
			WithSleep(sl.sleep), WithControllerLogger(quietLogger()))

		res := c.RenewCircuit(t.Context())
		if res.Status != RenewAuthRejected || res.Attempts != 1 {
			t.Errorf("result = %+v", res)
		}
		if !errors.Is(res.Err, os.ErrNotExist) {
			t.Errorf("err = %v, want not-exist", res.Err)
		}
		if len(fc.commands()) != 0 {
			t.Errorf("commands = %q, want none sent", fc.commands())
		}
	})

	t.Run("multi-line replies are accepted", func(t *testing.T) {
		t.Parallel()
		fc := newFakeControl(t, func(cmd string) string {
			if strings.HasPrefix(cmd, "AUTHENTICATE") {
				return "250-note one\r\n250 OK"
			}
			return "250 OK"
		})
		sl := &recordedSleeps{}
		c := NewController(fc.addr(), WithSleep(sl.sleep), WithControllerLogger(quietLogger()))
		if res := c.RenewCircuit(t.Context()); !res.Renewed() {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("verification records old and new IP", func(t *testing.T) {
		t.Parallel()
		fc := newFakeControl(t, okControl)
		sl := &recordedSleeps{}
		lookup := &fakeLookup{ips: []string{"198.51.100.1", "198.51.100.2"}}
		c := NewController(fc.addr(), WithSleep(sl.sleep), WithIPLookup(lookup), WithControllerLogger(quietLogger()))

		res := c.RenewCircuit(t.Context())
		if res.OldIP != "198.51.100.1" || res.NewIP != "198.51.100.2" || !res.IPChanged() {
			t.Errorf("result = %+v", res)
		}
		ip, err := c.CurrentIP(t.Context())
		if err != nil || ip != "198.51.100.2" {
			t.Errorf("CurrentIP() = %q, %v", ip, err)
		}
	})

	t.Run("unchanged IP is not an error", func(t *testing.T) {
		t.Parallel()
		fc := newFakeControl(t, okControl)
		sl := &recordedSleeps{}
		lookup := &fakeLookup{ips: []string{"198.51.100.1"}}
		c := NewController(fc.addr(), WithSleep(sl.sleep), WithIPLookup(lookup), WithControllerLogger(quietLogger()))

		res := c.RenewCircuit(t.Context())
		if !res.Renewed() || res.IPChanged() || res.Err != nil {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("failing IP lookup does not fail renewal", func(t *testing.T) {
		t.Parallel()
		fc := newFakeControl(t, okControl)
		sl := &recordedSleeps{}
		lookup := &fakeLookup{err: ErrNoEchoService}
		c := NewController(fc.addr(), WithSleep(sl.sleep), WithIPLookup(lookup), WithControllerLogger(quietLogger()))

		if res := c.RenewCircuit(t.Context()); !res.Renewed() {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		c := NewController(closedAddr(t), WithControllerLogger(quietLogger()))
		if res := c.RenewCircuit(ctx); res.Status != RenewCanceled {
			t.Errorf("status = %v", res.Status)
		}
	})
}

func TestControllerReachable(t *testing.T) {
	t.Parallel()

	fc := newFakeControl(t, func(cmd string) string {
		if strings.HasPrefix(cmd, "PROTOCOLINFO") {
			return "250-PROTOCOLINFO 1\r\n250-AUTH METHODS=NULL\r\n250 OK"
		}
		return "510 Unrecognized command"
	})
	if !NewController(fc.addr()).Reachable(t.Context()) {
		t.Error("Reachable() = false")
	}
	if NewController(closedAddr(t)).Reachable(t.Context()) {
		t.Error("Reachable() = true for closed port")
	}
}

func TestRenewStatusString(t *testing.T) {
	t.Parallel()

	for s, want := range map[RenewStatus]string{
		RenewOK:             "renewed",
		RenewAuthRejected:   "auth rejected",
		RenewSignalRejected: "signal rejected",
		RenewUnreachable:    "unreachable",
		RenewCanceled:       "canceled",
		RenewStatus(9):      "unknown",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}

func TestSleep(t *testing.T) {
	t.Parallel()

	if err := Sleep(t.Context(), time.Millisecond); err != nil {
		t.Errorf("Sleep() = %v", err)
	}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() on canceled ctx = %v", err)
	}
}
