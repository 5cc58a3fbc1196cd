package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete USERNAME",
	Short: "Delete a user together with their listings and images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := adminService(cmd.Context())
		if err != nil {
			return err
		}
		if err := svc.DeleteUserByUsername(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted user %s\n", args[0])
		return nil
	},
}

func init() {
	userCmd.AddCommand(userDeleteCmd)
	rootCmd.AddCommand(userCmd)
}
