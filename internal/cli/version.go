package cli

import (
	"fmt"
	"runtime"

	"github.com/pysugar/ads-account-gateway/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the adsgate version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "adsgate %s\n", version.String())
			fmt.Fprintf(out, "Go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
