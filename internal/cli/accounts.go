package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/pysugar/ads-account-gateway/internal/db"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newAccountsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect connected users and their accounts",
	}
	cmd.AddCommand(newAccountsListCmd(v), newAccountsUsersCmd(v))
	return cmd
}

func newAccountsListCmd(v *viper.Viper) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the accounts reachable by a user, or by the single-user token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.service.ListAccessible(cmd.Context(), userID)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (default: single-user token)")
	return cmd
}

func newAccountsUsersCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List connected users with their linked and selected accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			database, err := db.InitDB(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if sqlDB, err := database.DB(); err == nil {
				defer sqlDB.Close()
			}

			ctx := cmd.Context()
			users, err := db.NewUserStore(database).List(ctx)
			if err != nil {
				return err
			}
			links := db.NewAccountStore(database)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "USER ID\tEMAIL\tLINKED\tSELECTED")
			for _, u := range users {
				accounts, err := links.List(ctx, u.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", u.ID, u.Email, len(accounts), selectedSummary(db.SelectedIDs(accounts)))
			}
			return w.Flush()
		},
	}
}

func selectedSummary(ids []string) string {
	switch len(ids) {
	case 0:
		return "all"
	case 1:
		return ids[0]
	default:
		return fmt.Sprintf("%s (+%d)", ids[0], len(ids)-1)
	}
}
