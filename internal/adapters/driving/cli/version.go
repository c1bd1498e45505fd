package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the effortqa version",
	Long: `Print the effortqa version together with the Go toolchain, platform
and, for builds from a checkout, the VCS revision.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		if versionShort {
			cmd.Println(version)
			return
		}
		writeVersion(cmd.OutOrStdout(), readRevision())
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print the version only")
	rootCmd.AddCommand(versionCmd)
}

func writeVersion(w io.Writer, revision string) {
	fmt.Fprintf(w, "effortqa version %s\n", version)
	rows := [][2]string{
		{"go", runtime.Version()},
		{"platform", runtime.GOOS + "/" + runtime.GOARCH},
	}
	if revision != "" {
		rows = append(rows, [2]string{"revision", revision})
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-9s %s\n", r[0]+":", r[1])
	}
}

// readRevision returns the short VCS revision stamped by the Go toolchain,
// with "+dirty" for modified trees, or "".
func readRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev, dirty string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "+dirty"
			}
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev == "" {
		return ""
	}
	return rev + dirty
}
