package cli

import (
	"fmt"
	"io"

	"github.com/pysugar/ads-account-gateway/internal/config"
	"github.com/pysugar/ads-account-gateway/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the resolved configuration without contacting any service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func printStatus(w io.Writer, cfg *config.Config) {
	driver := "sqlite"
	if cfg.IsPostgres() {
		driver = "postgres"
	}
	fmt.Fprintf(w, "Database:          %s (%s)\n", driver, redactURL(cfg))
	fmt.Fprintf(w, "Client ID:         %s\n", orUnset(cfg.ClientID))
	fmt.Fprintf(w, "Developer token:   %s\n", orUnset(masked(cfg.DeveloperToken)))
	fmt.Fprintf(w, "Single-user token: %s\n", orUnset(masked(cfg.RefreshToken)))
	fmt.Fprintf(w, "Login customer:    %s\n", orDefault(cfg.LoginCustomerID, "resolved per call"))
	fmt.Fprintf(w, "Fallback customer: %s\n", orUnset(cfg.FallbackCustomerID))
	fmt.Fprintf(w, "Merchant Center:   %s\n", orUnset(cfg.MerchantCenterID))
	fmt.Fprintf(w, "Validate only:     %t\n", cfg.ValidateOnly)
	fmt.Fprintf(w, "API:               %s/%s (%.0f qps)\n", cfg.APIBaseURL, cfg.APIVersion, cfg.QPS)
	fmt.Fprintf(w, "Policy file:       %s\n", orDefault(cfg.PolicyFile, "none (write role)"))
	fmt.Fprintf(w, "Cache:             %s\n", cacheSummary(cfg))
	fmt.Fprintf(w, "Listen:            %s\n", cfg.Addr())
	fmt.Fprintf(w, "API key:           %s\n", orDefault(masked(cfg.APIKey), "none (open)"))
}

func redactURL(cfg *config.Config) string {
	if cfg.IsPostgres() {
		return "postgres://…"
	}
	return cfg.DatabaseURL
}

func cacheSummary(cfg *config.Config) string {
	if cfg.RedisURL == "" {
		return "in-memory"
	}
	if cfg.CacheTTL > 0 {
		return "redis, ttl " + cfg.CacheTTL.String()
	}
	return "redis"
}

func masked(secret string) string {
	if secret == "" {
		return ""
	}
	return util.MaskSecret(secret)
}

func orUnset(s string) string {
	return orDefault(s, "(unset)")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
