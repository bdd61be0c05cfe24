// Package log builds the slog loggers used by reaper.
//
// Every logger wraps its output handler in a SecureHandler, which masks
// credentials before they reach the log: Tor control passwords, cookies and
// authorization headers configured per site, and passwords embedded in
// proxy URLs.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("renewing circuit", "control_password", pw) // masked
//	slog.SetDefault(logger)
package log
