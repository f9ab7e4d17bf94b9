package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(resumeCmd)
}

var resumeCmd = &cobra.Command{
	Use:   "resume <solution>",
	Short: "Submits the CAPTCHA solution for the pending verification.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resume(cmd, newClient(), args[0])
	},
}
