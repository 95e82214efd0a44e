package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"barvault/internal/backup"
)

var initOutput string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(initOutput); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite", initOutput)
		}
		if err := backup.WriteExampleConfig(initOutput); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", initOutput)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "barvault.yaml", "path to write the config file")
	rootCmd.AddCommand(initCmd)
}
