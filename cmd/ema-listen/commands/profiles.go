package commands

import (
	"fmt"

	"github.com/koscakluka/ema-realtime/core/prompts"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the available prompt profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, profile := range prompts.Profiles() {
			marker := " "
			if profile == prompts.DefaultProfile {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s\n", marker, profile)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
