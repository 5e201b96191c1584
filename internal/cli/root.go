// Package cli implements ukectl, the operator tool for uke databases and
// servers.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the root command and exits non-zero on failure.
func Execute(version, commit string) {
	if err := NewRootCmd(version, commit).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd(version, commit string) *cobra.Command {
	root := &cobra.Command{
		Use:   "ukectl",
		Short: "uke operator tool for inspecting ledgers and exercising servers",
		Long: `ukectl reads uke databases offline and talks to a running uke server
for signing and benchmarking.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringP("config", "c", "", "profile file path (default is $HOME/.ukectl.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newInspectCmd(),
		newThreadCmd(),
		newActiveCmd(),
		newUserCmd(),
		newSignCmd(),
		newBenchCmd(),
	)
	return root
}

// profileFrom loads the profile named by --config, or the default one.
func profileFrom(cmd *cobra.Command) (*Profile, error) {
	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if !explicit {
		path = DefaultProfilePath()
	}
	p, err := LoadProfile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return &Profile{}, nil
		}
		return nil, err
	}
	return p, nil
}
