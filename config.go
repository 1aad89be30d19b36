package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	cacheLimit     int
	cols           int
	port           int
	prefix         string
	profile        bool
	rateLimit      int
	rateLimitBurst int
	rows           int
	sessionTTL     time.Duration
	tlsCert        string
	tlsKey         string
	uploadLimit    int64
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.rows < 1 || c.cols < 1 {
		return fmt.Errorf("invalid board size: %dx%d", c.rows, c.cols)
	}
	if c.cacheLimit < 1 {
		return fmt.Errorf("invalid cache limit: %d", c.cacheLimit)
	}
	if c.uploadLimit < 1 {
		return fmt.Errorf("invalid upload limit: %d", c.uploadLimit)
	}
	if c.rateLimit < 1 || c.rateLimitBurst < 1 {
		return fmt.Errorf("invalid rate limit settings: %d/%d", c.rateLimit, c.rateLimitBurst)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) numChars() int {
	return c.rows * c.cols
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GUESSWHO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "guesswho",
		Short:         "A two-player guess-who game played with your own image packs.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: GUESSWHO_BIND)")
	fs.IntVar(&cfg.cacheLimit, "cache-limit", 1<<30, "max aggregate bytes of live character images before uploads are refused (env: GUESSWHO_CACHE_LIMIT)")
	fs.IntVar(&cfg.cols, "cols", 6, "number of board columns (env: GUESSWHO_COLS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: GUESSWHO_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: GUESSWHO_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: GUESSWHO_PROFILE)")
	fs.IntVar(&cfg.rateLimit, "rate-limit", 5, "allowed new-game uploads per second per address (env: GUESSWHO_RATE_LIMIT)")
	fs.IntVar(&cfg.rateLimitBurst, "rate-limit-burst", 10, "burst size for the upload rate limit (env: GUESSWHO_RATE_LIMIT_BURST)")
	fs.IntVar(&cfg.rows, "rows", 4, "number of board rows (env: GUESSWHO_ROWS)")
	fs.DurationVar(&cfg.sessionTTL, "session-ttl", 4*time.Hour, "time before game sessions expire, idle or not (env: GUESSWHO_SESSION_TTL)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: GUESSWHO_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: GUESSWHO_TLS_KEY)")
	fs.Int64Var(&cfg.uploadLimit, "upload-limit", 128<<20, "max character pack upload size in bytes (env: GUESSWHO_UPLOAD_LIMIT)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: GUESSWHO_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: GUESSWHO_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("guesswho v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
