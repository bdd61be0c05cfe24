package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nao1215/reaper/internal/config"
	"github.com/nao1215/reaper/internal/tor"
	"github.com/spf13/cobra"
)

// errTorUnavailable is returned by circuit check when the proxy or the
// control port is not usable.
var errTorUnavailable = errors.New("tor is not usable")

// NewCircuitCmd creates the circuit command and its subcommands.
func NewCircuitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "circuit",
		Short: "Inspect and rotate Tor circuits",
		Long: `Circuit talks to the Tor instance a crawl would use.

Subcommands:
  check    verify the SOCKS5 proxy and the control port
  renew    request a new circuit and show the exit IP before and after
  monitor  renew repeatedly and count distinct exit IPs

Examples:
  reaper circuit check
  reaper circuit renew --control-password secret
  reaper circuit monitor -n 5 --interval 15s`,
	}

	pf := cmd.PersistentFlags()
	pf.StringP("config", "c", "", "Configuration file path (default: .reaper in current or home directory)")
	addTorFlags(pf)
	pf.Duration("timeout", config.DefaultHTTPTimeout, "Timeout for each Tor operation")

	cmd.AddCommand(newCircuitCheckCmd())
	cmd.AddCommand(newCircuitRenewCmd())
	cmd.AddCommand(newCircuitMonitorCmd())
	return cmd
}

func newCircuitCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the SOCKS5 proxy and the control port",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newCircuitSession(cmd)
			if err != nil {
				return err
			}
			return s.check(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newCircuitRenewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renew",
		Short: "Request a new Tor circuit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newCircuitSession(cmd)
			if err != nil {
				return err
			}
			res := s.controller.RenewCircuit(cmd.Context())
			printRenewResult(cmd.OutOrStdout(), res)
			if !res.Renewed() {
				return fmt.Errorf("circuit renewal failed: %s: %w", res.Status, res.Err)
			}
			return nil
		},
	}
}

func newCircuitMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Renew repeatedly and count distinct exit IPs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			count, err := cmd.Flags().GetInt("count")
			if err != nil {
				return err
			}
			interval, err := cmd.Flags().GetDuration("interval")
			if err != nil {
				return err
			}
			if count < 1 {
				return errors.New("--count must be at least 1")
			}
			s, err := newCircuitSession(cmd)
			if err != nil {
				return err
			}
			return s.monitor(cmd.Context(), cmd.OutOrStdout(), count, interval)
		},
	}
	cmd.Flags().IntP("count", "n", 3, "Number of renewals")
	cmd.Flags().Duration("interval", 10*time.Second, "Wait between renewals (Tor rate-limits NEWNYM)")
	return cmd
}

// circuitSession holds the Tor handles the circuit subcommands share.
type circuitSession struct {
	cfg        *config.Config
	client     *tor.Client
	controller *tor.Controller
	sleep      func(ctx context.Context, d time.Duration) error
}

func newCircuitSession(cmd *cobra.Command) (*circuitSession, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	fa := newFlagApplier(cmd)
	fa.tor(cfg)
	fa.dur("timeout", &cfg.HTTPTimeout)
	if err := fa.err(); err != nil {
		return nil, err
	}

	logger := newLogger(cmd)
	client, err := tor.NewClient(cfg.SocksAddress, cfg.HTTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tor client: %w", err)
	}
	opts := append(controllerAuth(cfg),
		tor.WithControllerLogger(logger),
		tor.WithControlTimeout(cfg.HTTPTimeout),
	)
	if cfg.VerifyRenewal {
		opts = append(opts, tor.WithIPLookup(tor.NewIPEcho(client.NewHTTPClient(), cfg.IPEchoURLs)))
	}
	return &circuitSession{
		cfg:        cfg,
		client:     client,
		controller: tor.NewController(cfg.ControlAddress, opts...),
		sleep:      tor.Sleep,
	}, nil
}

func (s *circuitSession) check(ctx context.Context, w io.Writer) error {
	ok := true

	status := s.client.CheckConnection(ctx)
	fmt.Fprintf(w, "SOCKS5 proxy  %-22s %s\n", s.cfg.SocksAddress, status)
	if status != tor.ProxyStatusOK {
		ok = false
	}

	reachable := s.controller.Reachable(ctx)
	fmt.Fprintf(w, "Control port  %-22s %s\n", s.controller.Address(), reachableText(reachable))
	if !reachable {
		ok = false
	}

	if status == tor.ProxyStatusOK {
		res, err := tor.CheckTor(ctx, s.client.NewHTTPClient(), s.cfg.TorCheckURL)
		switch {
		case err != nil:
			fmt.Fprintf(w, "Exit check    %-22s %v\n", "", err)
			ok = false
		case res.IsTor:
			fmt.Fprintf(w, "Exit check    %-22s exits through Tor\n", res.IP)
		default:
			fmt.Fprintf(w, "Exit check    %-22s NOT a Tor exit\n", res.IP)
			ok = false
		}
	}

	if !ok {
		return errTorUnavailable
	}
	return nil
}

func (s *circuitSession) monitor(ctx context.Context, w io.Writer, count int, interval time.Duration) error {
	seen := make(map[string]int)
	failed := 0
	for i := range count {
		if i > 0 {
			if err := s.sleep(ctx, interval); err != nil {
				return err
			}
		}
		res := s.controller.RenewCircuit(ctx)
		fmt.Fprintf(w, "[%d/%d] ", i+1, count)
		printRenewResult(w, res)
		if !res.Renewed() {
			failed++
			if res.Status == tor.RenewAuthRejected || res.Status == tor.RenewCanceled {
				return fmt.Errorf("circuit renewal failed: %s: %w", res.Status, res.Err)
			}
			continue
		}
		if res.NewIP != "" {
			seen[res.NewIP]++
		}
	}

	fmt.Fprintf(w, "\n%d renewal(s), %d failed, %d distinct exit IP(s)\n", count, failed, len(seen))
	return nil
}

func printRenewResult(w io.Writer, res tor.RenewResult) {
	switch {
	case !res.Renewed():
		fmt.Fprintf(w, "renewal %s after %d attempt(s)", res.Status, res.Attempts)
		if res.Err != nil {
			fmt.Fprintf(w, ": %v", res.Err)
		}
		fmt.Fprintln(w)
	case res.OldIP == "" || res.NewIP == "":
		fmt.Fprintln(w, "renewed (exit IP not verified)")
	case res.IPChanged():
		fmt.Fprintf(w, "renewed: %s -> %s\n", res.OldIP, res.NewIP)
	default:
		fmt.Fprintf(w, "renewed, exit IP unchanged: %s\n", res.NewIP)
	}
}

func reachableText(ok bool) string {
	if ok {
		return "OK"
	}
	return "unreachable"
}
