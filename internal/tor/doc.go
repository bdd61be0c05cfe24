// Package tor provides everything reaper needs from a Tor daemon: a SOCKS5
// client for proxied HTTP, a control-port client that requests new circuits
// and checks whether the egress IP changed, IP echo lookups, and an
// optional embedded daemon started through tornago.
//
// Nothing in this package ends a crawl. Circuit renewal reports its outcome
// in a RenewResult instead of returning an error; the crawl carries on with
// the current circuit whatever happens.
//
// Design decision: the control port is driven over net/textproto here
// rather than through tornago's ControlClient because:
//  1. Renewal needs its own retry policy, where a refused AUTHENTICATE stops
//     at once and everything else backs off exponentially
//  2. Each attempt opens a fresh connection, so a daemon restarted mid-crawl
//     (and its rewritten auth cookie) is picked up without reconnect logic
//  3. Outcomes map onto RenewStatus values the crawl can log and ignore
//
// Authentication follows the daemon: null, password, or the hex-encoded
// control_auth_cookie. An embedded daemon is always started with cookie
// authentication, so its controller reads the cookie from the data dir.
package tor
