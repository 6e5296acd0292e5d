package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var (
	userListLimit  int
	userListOffset int
)

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := services.users.ListUsers(cmd.Context(), userListLimit, userListOffset)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(users)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tJOINED")
		for _, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var userDeleteYes bool

var userDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete an account with its posts, comments and follow edges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !userDeleteYes {
			return fmt.Errorf("refusing to delete %s without --yes", args[0])
		}
		if err := services.users.DeleteUser(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted user %s\n", args[0])
		return nil
	},
}

func init() {
	userListCmd.Flags().IntVar(&userListLimit, "limit", 50, "Maximum number of accounts")
	userListCmd.Flags().IntVar(&userListOffset, "offset", 0, "Accounts to skip")
	userDeleteCmd.Flags().BoolVar(&userDeleteYes, "yes", false, "Confirm the deletion")

	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userDeleteCmd)
}
