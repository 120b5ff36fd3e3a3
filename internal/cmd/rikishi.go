package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var rikishiCmd = &cobra.Command{
	Use:   "rikishi",
	Short: "List rikishi or show one profile",
}

var rikishiListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rikishi",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		session, err := newAPISession(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer session.Close()

		list, err := session.client.ListRikishi(cmd.Context())
		if err != nil {
			return fmt.Errorf("list rikishi: %w", err)
		}
		return writeOutput(cmd, "rikishi", list)
	},
}

var rikishiShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one rikishi profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return fmt.Errorf("rikishi id must be a positive integer, got %q", args[0])
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		session, err := newAPISession(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer session.Close()

		rikishi, err := session.client.GetRikishi(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("fetch rikishi %d: %w", id, err)
		}
		return writeOutput(cmd, "rikishi-"+args[0], rikishi)
	},
}

func init() {
	rikishiCmd.AddCommand(rikishiListCmd)
	rikishiCmd.AddCommand(rikishiShowCmd)
	rootCmd.AddCommand(rikishiCmd)
}
