package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var binaryCmd = &cobra.Command{
	Use:   "binary",
	Short: "Inspect the picoclaw binary",
}

var binaryStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show binary path, version and health",
	Long: `Show where the picoclaw binary resolves to, whether it exists, the
version it reports and whether it satisfies binary.min_version.`,
	Args: cobra.NoArgs,
	RunE: withApp(runBinaryStatus),
}

func init() {
	binaryCmd.AddCommand(binaryStatusCmd)
	rootCmd.AddCommand(binaryCmd)
}

func runBinaryStatus(cmd *cobra.Command, args []string, a *app) error {
	st := a.binary.Status(cmd.Context())

	return render(cmd.OutOrStdout(), st, func(w io.Writer) {
		fmt.Fprintf(w, "Path: %s\n", st.Path)
		fmt.Fprintf(w, "Platform: %s\n", st.Platform)
		fmt.Fprintf(w, "Exists: %t\n", st.Exists)
		if st.Version != "" {
			fmt.Fprintf(w, "Version: %s\n", st.Version)
		}
		fmt.Fprintf(w, "Healthy: %t\n", st.Healthy)
		if st.Compatible != nil {
			fmt.Fprintf(w, "Compatible: %s\n", boolText(st.Compatible))
		}
	})
}
