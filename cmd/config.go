// qrun config
package cmd

import (
	"fmt"

	"github.com/qobs-build/qrun/internal/msg"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out, err := loadConfig().Marshal()
		if err != nil {
			msg.Fatal("%v", err)
		}
		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
