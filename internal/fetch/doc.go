// Package fetch retrieves pages with an escalating set of strategies.
//
// Strategies are ordered from cheapest to most evasive: a plain HTTP GET
// with browser-like headers, the same GET through Tor, a headless Chrome
// render, a headless render through Tor, and a stealth render that
// randomizes the viewport, hides automation markers, simulates a human
// reader and tries to clear bot challenges.
//
// The Escalator runs attempt a with strategy min(a, K-1) and sleeps an
// exponential, jittered, capped backoff between attempts, so sites that
// accept plain HTTP never pay for a browser.
package fetch
