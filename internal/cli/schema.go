package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var initSchemaCmd = &cobra.Command{
	Use:   "init-schema",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dbClient.InitSchema(context.Background()); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
		fmt.Println("Schema initialized")
		return nil
	},
}

var wipeConfirm bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all data from the database (testing only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !wipeConfirm {
			return fmt.Errorf("refusing to wipe without --yes")
		}
		if err := dbClient.WipeData(context.Background()); err != nil {
			return fmt.Errorf("wipe data: %w", err)
		}
		fmt.Println("All data deleted")
		return nil
	},
}

func init() {
	wipeCmd.Flags().BoolVar(&wipeConfirm, "yes", false, "confirm deletion")
	rootCmd.AddCommand(initSchemaCmd)
	rootCmd.AddCommand(wipeCmd)
}
