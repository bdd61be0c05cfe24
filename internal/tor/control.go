package tor

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	// defaultRenewAttempts bounds the connect/authenticate/signal sequence.
	defaultRenewAttempts = 3

	// defaultControlTimeout bounds one control-port exchange.
	defaultControlTimeout = 10 * time.Second

	// replyOK is the control protocol success code.
	replyOK = 250
)

// RenewStatus is the outcome of a circuit renewal.
type RenewStatus int

const (
	// RenewOK means NEWNYM was accepted.
	RenewOK RenewStatus = iota
	// RenewAuthRejected means the control port refused our credentials.
	RenewAuthRejected
	// RenewSignalRejected means NEWNYM was refused on every attempt.
	RenewSignalRejected
	// RenewUnreachable means the control port could not be reached.
	RenewUnreachable
	// RenewCanceled means the context ended first.
	RenewCanceled
)

// String returns the status name.
func (s RenewStatus) String() string {
	switch s {
	case RenewOK:
		return "renewed"
	case RenewAuthRejected:
		return "auth rejected"
	case RenewSignalRejected:
		return "signal rejected"
	case RenewUnreachable:
		return "unreachable"
	case RenewCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// RenewResult describes one RenewCircuit call.
type RenewResult struct {
	Status   RenewStatus
	Attempts int

	// OldIP and NewIP are set when renewal verification is enabled and
	// the lookups succeeded.
	OldIP string
	NewIP string

	// Err is the last error seen, if any.
	Err error
}

// Renewed reports whether NEWNYM was accepted.
func (r RenewResult) Renewed() bool {
	return r.Status == RenewOK
}

// IPChanged reports whether both IPs are known and differ.
func (r RenewResult) IPChanged() bool {
	return r.OldIP != "" && r.NewIP != "" && r.OldIP != r.NewIP
}

// IPLookup returns the currently visible egress IP.
type IPLookup interface {
	Lookup(ctx context.Context) (string, error)
}

// Controller talks to the Tor control port.
type Controller struct {
	addr        string
	password    string
	cookiePath  string
	timeout     time.Duration
	maxAttempts int
	ip          IPLookup
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
	settle      func() time.Duration
	backoff     func(attempt int) time.Duration

	// renewMu keeps renewals from interleaving across workers.
	renewMu sync.Mutex

	ipMu   sync.Mutex
	lastIP string
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPassword sets the control port password. Empty means null auth.
func WithPassword(pw string) ControllerOption {
	return func(c *Controller) {
		c.password = pw
	}
}

// WithCookie authenticates with the cookie file Tor writes when
// CookieAuthentication is on. The file is read on every attempt because Tor
// rewrites it on restart. It takes precedence over a password.
func WithCookie(path string) ControllerOption {
	return func(c *Controller) {
		c.cookiePath = path
	}
}

// WithIPLookup enables before/after egress IP verification.
func WithIPLookup(l IPLookup) ControllerOption {
	return func(c *Controller) {
		c.ip = l
	}
}

// WithControlTimeout bounds one control-port exchange.
func WithControlTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.timeout = d
	}
}

// WithMaxAttempts sets the number of renewal attempts.
func WithMaxAttempts(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithSleep replaces the context-aware sleep; used by tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) ControllerOption {
	return func(c *Controller) {
		c.sleep = fn
	}
}

// NewController creates a controller for the control port at addr.
func NewController(addr string, opts ...ControllerOption) *Controller {
	c := &Controller{
		addr:        addr,
		timeout:     defaultControlTimeout,
		maxAttempts: defaultRenewAttempts,
		logger:      slog.Default(),
		sleep:       Sleep,
		settle: func() time.Duration {
			return time.Second + rand.N(time.Second) //nolint:gosec // timing jitter
		},
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the control port address.
func (c *Controller) Address() string {
	return c.addr
}

// RenewCircuit asks Tor for a new circuit. It never fails the caller: the
// outcome, including every degradation, is described by the result.
//
// A refused AUTHENTICATE ends the call at once since retrying with the same
// credentials cannot help. Connection problems and a refused NEWNYM are
// retried with exponential backoff. When IP verification is enabled, an
// unchanged egress IP is logged and otherwise ignored; some exits are
// recycled into new circuits.
func (c *Controller) RenewCircuit(ctx context.Context) RenewResult {
	c.renewMu.Lock()
	defer c.renewMu.Unlock()

	var res RenewResult
	if c.ip != nil {
		res.OldIP, _ = c.CurrentIP(ctx) //nolint:errcheck // verification is best effort
	}

	for attempt := range c.maxAttempts {
		res.Attempts = attempt + 1
		err := c.newnym(ctx)
		if err == nil {
			res.Status, res.Err = RenewOK, nil
			break
		}
		res.Err = err

		switch {
		case errors.Is(err, ErrAuthRejected):
			res.Status = RenewAuthRejected
			c.logger.Warn("control port refused authentication, keeping current circuit",
				"control", c.addr, "error", err)
			return res
		case errors.Is(err, ErrSignalRejected):
			res.Status = RenewSignalRejected
		default:
			res.Status = RenewUnreachable
		}
		if ctx.Err() != nil {
			res.Status = RenewCanceled
			return res
		}

		c.logger.Debug("circuit renewal attempt failed", "attempt", res.Attempts, "error", err)
		if attempt < c.maxAttempts-1 {
			if c.sleep(ctx, c.backoff(attempt)) != nil {
				res.Status = RenewCanceled
				return res
			}
		}
	}

	if res.Status != RenewOK {
		c.logger.Warn("circuit renewal failed, keeping current circuit",
			"attempts", res.Attempts, "status", res.Status.String(), "error", res.Err)
		return res
	}

	if c.sleep(ctx, c.settle()) != nil {
		return res
	}
	if c.ip == nil {
		c.logger.Debug("circuit renewed")
		return res
	}

	newIP, err := c.ip.Lookup(ctx)
	if err != nil {
		c.logger.Debug("could not verify new circuit", "error", err)
		c.setLastIP("")
		return res
	}
	res.NewIP = newIP
	c.setLastIP(newIP)
	if res.OldIP != "" && res.OldIP == newIP {
		c.logger.Info("circuit renewed but egress IP is unchanged", "ip", newIP)
	} else {
		c.logger.Info("circuit renewed", "old_ip", res.OldIP, "new_ip", newIP)
	}
	return res
}

// CurrentIP returns the last observed egress IP, looking it up if unknown.
func (c *Controller) CurrentIP(ctx context.Context) (string, error) {
	c.ipMu.Lock()
	cached := c.lastIP
	c.ipMu.Unlock()
	if cached != "" {
		return cached, nil
	}
	if c.ip == nil {
		return "", ErrNoEchoService
	}
	ip, err := c.ip.Lookup(ctx)
	if err != nil {
		return "", err
	}
	c.setLastIP(ip)
	return ip, nil
}

func (c *Controller) setLastIP(ip string) {
	c.ipMu.Lock()
	defer c.ipMu.Unlock()
	c.lastIP = ip
}

// Reachable reports whether the control port answers PROTOCOLINFO.
func (c *Controller) Reachable(ctx context.Context) bool {
	conn, err := c.dial(ctx)
	if err != nil {
		return false
	}
	defer conn.Close()
	_, err = command(conn, "PROTOCOLINFO 1")
	return err == nil
}

func (c *Controller) newnym(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	secret, err := c.credential()
	if err != nil {
		return err
	}
	if _, err := command(conn, "AUTHENTICATE %s", secret); err != nil {
		var te *textproto.Error
		if errors.As(err, &te) {
			return fmt.Errorf("%w: %d %s", ErrAuthRejected, te.Code, te.Msg)
		}
		return err
	}
	if _, err := command(conn, "SIGNAL NEWNYM"); err != nil {
		var te *textproto.Error
		if errors.As(err, &te) {
			return fmt.Errorf("%w: %d %s", ErrSignalRejected, te.Code, te.Msg)
		}
		return err
	}
	_, _ = command(conn, "QUIT") //nolint:errcheck // connection is closed anyway
	return nil
}

// credential renders the AUTHENTICATE argument: the hex cookie when a cookie
// file is configured, the quoted password otherwise.
func (c *Controller) credential() (string, error) {
	if c.cookiePath == "" {
		return quote(c.password), nil
	}
	cookie, err := os.ReadFile(c.cookiePath)
	if err != nil {
		return "", fmt.Errorf("%w: read auth cookie: %w", ErrAuthRejected, err)
	}
	return hex.EncodeToString(cookie), nil
}

func (c *Controller) dial(ctx context.Context) (*textproto.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("dial control port %s: %w", c.addr, err)
	}
	if err := raw.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return textproto.NewConn(raw), nil
}

// command sends one line and reads the (possibly multi-line) reply,
// which must carry code 250.
func command(conn *textproto.Conn, format string, args ...any) (string, error) {
	id, err := conn.Cmd(format, args...)
	if err != nil {
		return "", err
	}
	conn.StartResponse(id)
	defer conn.EndResponse(id)
	_, msg, err := conn.ReadResponse(replyOK)
	return msg, err
}

// quote renders a control-protocol QuotedString.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
