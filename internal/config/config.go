// Package config loads the application options from defaults, a config
// file, HASHLOADER_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/atinyakov/hashloader/internal/loader"
)

const envPrefix = "hashloader"

// Options holds the configuration values for the application.
type Options struct {
	// Format pins the format label. Empty means autodetect.
	Format          string   `mapstructure:"format"`
	FieldSeparator  string   `mapstructure:"field-separator"`
	InputEncoding   string   `mapstructure:"input-encoding"`
	MemSaving       int      `mapstructure:"mem-saving"`
	MinPPS          int      `mapstructure:"min-pps"`
	MaxPPS          int      `mapstructure:"max-pps"`
	MinCost         []int    `mapstructure:"min-cost"`
	MaxCost         []int    `mapstructure:"max-cost"`
	NoDupeCheck     bool     `mapstructure:"no-dupe-check"`
	RejectPrintable bool     `mapstructure:"reject-printable"`
	PristineGecos   bool     `mapstructure:"pristine-gecos"`
	Words           bool     `mapstructure:"words"`
	WarnAmbiguous   bool     `mapstructure:"warn-ambiguous"`
	Users           []string `mapstructure:"users"`
	Groups          []string `mapstructure:"groups"`
	Shells          []string `mapstructure:"shells"`
	DisabledFormats []string `mapstructure:"disabled-formats"`

	// PotFile is reconciled against the loaded hashes when set.
	PotFile string `mapstructure:"pot-file"`
	// DatabaseDSN enables the PostgreSQL pot and run records.
	DatabaseDSN string `mapstructure:"database-dsn"`
	// ShowLeft prints the records left after reconciliation.
	ShowLeft bool   `mapstructure:"show-left"`
	LogLevel string `mapstructure:"log-level"`
	// Listen is the inspector's ip:port.
	Listen        string        `mapstructure:"listen"`
	RunRetention  time.Duration `mapstructure:"run-retention"`
	CleanInterval time.Duration `mapstructure:"clean-interval"`
}

// Defaults returns the built-in option values.
func Defaults() map[string]any {
	return map[string]any{
		"field-separator": ":",
		"log-level":       "info",
		"listen":          "localhost:8080",
		"run-retention":   30 * 24 * time.Hour,
		"clean-interval":  time.Hour,
	}
}

// RegisterFlags defines one flag per option on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("format", "", "force the hash format label")
	fs.String("field-separator", ":", "field separator of password and pot files")
	fs.String("input-encoding", "", "encoding of password files (default UTF-8)")
	fs.Int("mem-saving", 0, "memory saving level 0-3")
	fs.Int("min-pps", 0, "drop salts with fewer hashes")
	fs.Int("max-pps", 0, "drop salts with more hashes (0 means no limit)")
	fs.IntSlice("min-cost", nil, "lower bound per tunable cost")
	fs.IntSlice("max-cost", nil, "upper bound per tunable cost (0 means no limit)")
	fs.Bool("no-dupe-check", false, "skip duplicate hash detection")
	fs.Bool("reject-printable", false, "reject hashes whose binary is printable")
	fs.Bool("pristine-gecos", false, "add the whole gecos field to the word list")
	fs.Bool("words", false, "derive candidate words from login and gecos")
	fs.Bool("warn-ambiguous", false, "warn when another format also matches")
	fs.StringSlice("users", nil, "load only these logins or uids ('-' prefix on the first one excludes)")
	fs.StringSlice("groups", nil, "load only these gids ('-' prefix on the first one excludes)")
	fs.StringSlice("shells", nil, "load only these shells ('-' prefix on the first one excludes)")
	fs.StringSlice("disabled-formats", nil, "format labels skipped while probing")
	fs.String("pot-file", "", "pot file with already cracked hashes")
	fs.String("database-dsn", "", "PostgreSQL DSN for pot entries and run records")
	fs.Bool("show-left", false, "print the hashes left after reconciliation")
	fs.String("log-level", "info", "log level")
	fs.String("listen", "localhost:8080", "inspector listen address (ip:port)")
	fs.Duration("run-retention", 30*24*time.Hour, "how long run records are kept")
	fs.Duration("clean-interval", time.Hour, "how often old run records are removed")
}

// Load reads the options for cmd. path names an explicit config file;
// without one hashloader.yaml is looked up in the working directory and
// the user config directory, and a missing file is not an error.
func Load(cmd *cobra.Command, path string) (Options, error) {
	var o Options
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return o, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("hashloader")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "hashloader"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return o, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return o, fmt.Errorf("bind flags: %w", err)
	}

	if err := v.Unmarshal(&o); err != nil {
		return o, fmt.Errorf("decode config: %w", err)
	}
	if len(o.FieldSeparator) != 1 {
		return o, fmt.Errorf("field separator must be a single byte, got %q", o.FieldSeparator)
	}
	return o, nil
}

// Loader converts the options into the loader's immutable configuration.
func (o Options) Loader() loader.Options {
	lo := loader.Options{
		Format:          o.Format,
		InputEncoding:   o.InputEncoding,
		MemSaving:       o.MemSaving,
		MinPPS:          o.MinPPS,
		MaxPPS:          o.MaxPPS,
		MinCost:         costs(o.MinCost),
		MaxCost:         costs(o.MaxCost),
		NoDupeCheck:     o.NoDupeCheck,
		RejectPrintable: o.RejectPrintable,
		PristineGecos:   o.PristineGecos,
		Words:           o.Words,
		Login:           true,
		WarnAmbiguous:   o.WarnAmbiguous,
		Users:           o.Users,
		Groups:          o.Groups,
		Shells:          o.Shells,
	}
	if o.FieldSeparator != "" {
		lo.FieldSep = o.FieldSeparator[0]
	}
	return lo
}

func costs(in []int) []uint32 {
	if len(in) == 0 {
		return nil
	}
	out := make([]uint32, len(in))
	for i, c := range in {
		out[i] = uint32(max(c, 0))
	}
	return out
}
