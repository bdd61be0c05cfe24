package tor

import "errors"

// Tor connectivity errors.
var (
	// ErrProxyNotTor is returned when the proxy answers but does not speak
	// unauthenticated SOCKS5.
	ErrProxyNotTor = errors.New("proxy is not a SOCKS5 proxy without authentication")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy
	// could be made. Tor is probably not running.
	ErrProxyCannotConnect = errors.New("cannot connect to Tor proxy")

	// ErrProxyTimeout is returned when the proxy did not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to Tor proxy")

	// ErrInvalidProxyAddress is returned when an address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrAuthRejected is returned when the control port refuses AUTHENTICATE.
	ErrAuthRejected = errors.New("control port rejected authentication")

	// ErrSignalRejected is returned when the control port refuses SIGNAL NEWNYM.
	ErrSignalRejected = errors.New("control port rejected NEWNYM")

	// ErrNoEchoService is returned when every IP echo endpoint failed.
	ErrNoEchoService = errors.New("no IP echo service answered")

	// ErrEmbeddedNotRunning is returned when the embedded daemon is not started.
	ErrEmbeddedNotRunning = errors.New("embedded Tor daemon is not running")
)

// ProxyStatus is the result of checking the SOCKS proxy.
type ProxyStatus int

const (
	// ProxyStatusOK indicates a working SOCKS5 proxy.
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType indicates something else listens on the address.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect indicates the connection was refused.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout indicates the check timed out.
	ProxyStatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not SOCKS5)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the matching error, or nil if OK.
func (s ProxyStatus) Error() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotTor
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
