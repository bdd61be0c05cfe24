// Package antibot recognizes bot-challenge pages and makes a best-effort
// attempt to get past them.
//
// Detection is a case-insensitive scan of the rendered text for a fixed
// vocabulary of challenge phrases. Mitigation waits for the challenge to
// settle, clicks checkbox-style widgets inside every frame, and waits again
// for the redirect. Nothing here confirms success; callers re-check the page
// themselves.
package antibot
