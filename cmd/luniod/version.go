package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const daemonVersion = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the luniod version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("luniod %s (protocol %d)\n", daemonVersion, wireProtocolVersion())
	},
}
