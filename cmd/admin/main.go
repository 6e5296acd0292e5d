// Command admin manages groups and accounts from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/repository"
	"yatube/internal/service"

	"github.com/spf13/cobra"
)

var output = "text" // "text" or "json"

// services is filled in by the root command before any subcommand runs.
var services struct {
	groups *service.GroupService
	users  *service.UserService
}

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Yatube administration",
	Long: `Administrative commands for Yatube.
Groups can only be created and removed here; accounts can be deleted together with their content.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if output != "text" && output != "json" {
			return fmt.Errorf("unknown output format %q", output)
		}
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		middleware.ConfigureLogger(cfg.Env, "")

		db, err := database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		services.groups = service.NewGroupService(repository.NewGroupRepository(db))
		services.users = service.NewUserService(repository.NewUserRepository(db))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(userCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
