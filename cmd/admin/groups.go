package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"yatube/internal/service"

	"github.com/spf13/cobra"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage groups",
}

var groupDescription string

var groupCreateCmd = &cobra.Command{
	Use:   "create <slug> <title>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		group, err := services.groups.Create(cmd.Context(), service.CreateGroupInput{
			Slug:        args[0],
			Title:       args[1],
			Description: groupDescription,
		})
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(group)
		}
		fmt.Printf("Created group %q (id %d, slug %s)\n", group.Title, group.ID, group.Slug)
		return nil
	},
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, err := services.groups.List(cmd.Context())
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(groups)
		}
		if len(groups) == 0 {
			fmt.Println("No groups")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSLUG\tTITLE")
		for _, g := range groups {
			fmt.Fprintf(w, "%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
		}
		return w.Flush()
	},
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a group; its posts stay published without a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := services.groups.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted group %s\n", args[0])
		return nil
	},
}

func init() {
	groupCreateCmd.Flags().StringVar(&groupDescription, "description", "", "Group description")

	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupListCmd)
	groupCmd.AddCommand(groupDeleteCmd)
}
