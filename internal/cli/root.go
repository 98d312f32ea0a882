// Package cli holds the adsgate command tree.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pysugar/ads-account-gateway/internal/config"
	"github.com/pysugar/ads-account-gateway/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd builds the command tree on its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	var cfgFile string
	root := &cobra.Command{
		Use:   "adsgate",
		Short: "Multi-tenant advertising account gateway",
		Long: `adsgate exposes advertising-account operations as policy-gated tools.

It connects users through OAuth consent, discovers the accounts each
credential can reach, resolves the manager account calls act through,
and keeps every mutation behind the validate-only switch when asked to.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfigFile(v, cfgFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./adsgate.yaml or $HOME/.adsgate/adsgate.yaml)")
	flags.String("database-url", "", "SQLite path or postgres:// URL")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("policy-file", "", "YAML access policy, reloaded on change")
	_ = v.BindPFlag("database.url", flags.Lookup("database-url"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("policy.file", flags.Lookup("policy-file"))

	root.AddCommand(
		newServeCmd(v),
		newTokenCmd(v),
		newAccountsCmd(v),
		newStatusCmd(v),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("adsgate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".adsgate"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// loadConfig resolves the configuration and applies the log level.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logging.SetLevel(cfg.LogLevel)
	return cfg, nil
}
