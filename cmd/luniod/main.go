// Command luniod is the Lunio file-discovery daemon: it watches configured
// roots, maintains a crash-safe file index, runs the async job scheduler and
// thumbnail cache, and serves client connections over a local socket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "luniod",
	Short: "luniod is the Lunio file-discovery daemon",
	Long:  `luniod indexes a set of root directories, watches them for changes, and serves search, browse, job, and thumbnail requests over a local socket.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	rootCmd.AddCommand(serveCmd, versionCmd, indexCmd)
}
