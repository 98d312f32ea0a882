package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/pysugar/ads-account-gateway/internal/auth/google"
	"github.com/pysugar/ads-account-gateway/internal/auth/token"
	"github.com/pysugar/ads-account-gateway/internal/config"
	"github.com/pysugar/ads-account-gateway/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTokenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint or check refresh tokens",
	}
	cmd.AddCommand(newTokenMintCmd(v), newTokenCheckCmd(v))
	return cmd
}

func oauthConfig(v *viper.Viper) (*config.Config, *google.App, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.RequireOAuthClient(); err != nil {
		return nil, nil, err
	}
	return cfg, google.NewApp(cfg.ClientID, cfg.ClientSecret), nil
}

func newTokenMintCmd(v *viper.Viper) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Run a local consent flow and print the refresh token",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, oauthApp, err := oauthConfig(v)
			if err != nil {
				return err
			}
			srv, err := google.StartLocalCallbackServer(oauthApp, timeout)
			if err != nil {
				return err
			}
			defer srv.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Open this URL in your browser and grant access:\n\n%s\n\n", srv.AuthURL())
			fmt.Fprintf(out, "Waiting for the redirect on %s ...\n", srv.RedirectURL())

			select {
			case res := <-srv.Results:
				if res.Err != nil {
					return res.Err
				}
				if res.Email != "" {
					fmt.Fprintf(out, "✅ Authorized as %s\n", res.Email)
				}
				fmt.Fprintf(out, "GOOGLE_ADS_REFRESH_TOKEN=%s\n", res.RefreshToken)
				return nil
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", google.CallbackTimeout, "how long to wait for the consent redirect")
	return cmd
}

func newTokenCheckCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check [refresh-token]",
		Short: "Exchange a refresh token to confirm it is still valid",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, oauthApp, err := oauthConfig(v)
			if err != nil {
				return err
			}
			refreshToken := cfg.RefreshToken
			if len(args) == 1 {
				refreshToken = args[0]
			}
			if refreshToken == "" {
				return errors.New("no refresh token given and GOOGLE_ADS_REFRESH_TOKEN is not set")
			}

			tok, err := token.NewSources(oauthApp.Config("")).Check(cmd.Context(), refreshToken)
			if errors.Is(err, token.ErrRevoked) {
				return fmt.Errorf("refresh token %s was revoked or expired, run `adsgate token mint`", util.MaskSecret(refreshToken))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Refresh token %s is valid (access token expires %s)\n",
				util.MaskSecret(refreshToken), tok.Expiry.Format(time.RFC3339))
			return nil
		},
	}
}
