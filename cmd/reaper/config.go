package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/reaper/internal/config"
	"github.com/nao1215/reaper/internal/tor"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addConfigFlags registers the flags every data-touching command shares.
func addConfigFlags(f *pflag.FlagSet) {
	f.StringP("config", "c", "", "Configuration file path (default: .reaper in current or home directory)")
	f.String("data-dir", config.XDGDataDir(), "Directory for crawl state, match log and stored pages")
}

// addTorFlags registers the flags that locate a running Tor.
func addTorFlags(f *pflag.FlagSet) {
	f.String("socks", config.DefaultSocksAddress, "Tor SOCKS5 proxy address")
	f.String("control", config.DefaultControlAddress, "Tor control port address")
	f.String("control-password", "", "Tor control port password (default: empty authentication)")
	f.String("control-cookie", "", "Tor control_auth_cookie path for cookie authentication")
	f.Bool("no-verify-renewal", false, "Do not compare the exit IP before and after a circuit renewal")
}

// loadConfig returns the defaults overlaid with the config file.
// An explicit --config that does not exist is an error; a missing
// default file is not.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = isVerbose(cmd)

	configPath := ""
	if cmd.Flags().Lookup("config") != nil {
		var err error
		if configPath, err = cmd.Flags().GetString("config"); err != nil {
			return nil, err
		}
	}
	cfg.ConfigFilePath = configPath

	path := config.FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
		}
		return cfg, nil
	}
	file, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	file.ApplyTo(cfg)
	return cfg, nil
}

// flagApplier copies flags the user set explicitly onto a Config, so
// that defaults never override values from the config file.
type flagApplier struct {
	f    *pflag.FlagSet
	errs []error
}

func newFlagApplier(cmd *cobra.Command) *flagApplier {
	return &flagApplier{f: cmd.Flags()}
}

func (a *flagApplier) changed(name string) bool {
	return a.f.Lookup(name) != nil && a.f.Changed(name)
}

func (a *flagApplier) str(name string, dst *string) {
	if a.changed(name) {
		v, err := a.f.GetString(name)
		a.errs = append(a.errs, err)
		*dst = v
	}
}

func (a *flagApplier) num(name string, dst *int) {
	if a.changed(name) {
		v, err := a.f.GetInt(name)
		a.errs = append(a.errs, err)
		*dst = v
	}
}

func (a *flagApplier) float(name string, dst *float64) {
	if a.changed(name) {
		v, err := a.f.GetFloat64(name)
		a.errs = append(a.errs, err)
		*dst = v
	}
}

// flag stores the flag value, negated when invert is set.
func (a *flagApplier) flag(name string, dst *bool, invert bool) {
	if a.changed(name) {
		v, err := a.f.GetBool(name)
		a.errs = append(a.errs, err)
		*dst = v != invert
	}
}

func (a *flagApplier) dur(name string, dst *time.Duration) {
	if a.changed(name) {
		v, err := a.f.GetDuration(name)
		a.errs = append(a.errs, err)
		*dst = v
	}
}

// list appends the flag values to dst.
func (a *flagApplier) list(name string, dst *[]string) {
	if a.changed(name) {
		v, err := a.f.GetStringSlice(name)
		a.errs = append(a.errs, err)
		*dst = append(*dst, v...)
	}
}

func (a *flagApplier) tor(cfg *config.Config) {
	a.str("socks", &cfg.SocksAddress)
	a.str("control", &cfg.ControlAddress)
	a.str("control-password", &cfg.ControlPassword)
	a.str("control-cookie", &cfg.ControlCookie)
	a.flag("no-verify-renewal", &cfg.VerifyRenewal, true)
}

func (a *flagApplier) err() error {
	return errors.Join(a.errs...)
}

// controllerAuth returns the control port credentials from cfg.
func controllerAuth(cfg *config.Config) []tor.ControllerOption {
	switch {
	case cfg.ControlCookie != "":
		return []tor.ControllerOption{tor.WithCookie(cfg.ControlCookie)}
	case cfg.ControlPassword != "":
		return []tor.ControllerOption{tor.WithPassword(cfg.ControlPassword)}
	default:
		return nil
	}
}

// authMethod names the control port authentication in use.
func authMethod(cfg *config.Config) string {
	switch {
	case cfg.ControlCookie != "":
		return "cookie"
	case cfg.ControlPassword != "":
		return "password"
	default:
		return "null"
	}
}
