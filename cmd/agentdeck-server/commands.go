package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"agentdeck-server/internal/bootstrap"
)

type globalFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "agentdeck-server",
		Short:         "Dashboard backend for sessions, presence and agent activity",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config.yaml")

	root.AddCommand(newServeCmd(flags), newUserCmd(flags))
	return root
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var observe bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] [INFO] [Boot] starting agentdeck-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
			return bootstrap.Run(cmd.Context(), bootstrap.Options{
				ConfigPath:    flags.configPath,
				Observability: observe,
			})
		},
	}
	cmd.Flags().BoolVar(&observe, "observe", false, "log spans and metrics")
	return cmd
}

func newUserCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage dashboard users",
	}
	cmd.AddCommand(newUserAddCmd(flags), newUserRevokeCmd(flags))
	return cmd
}

// newUserRevokeCmd signs a user out of every device. It needs the same
// sqlite or redis session store the server uses to have any effect.
func newUserRevokeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <email>",
		Short: "Sign a user out everywhere",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := bootstrap.New(ctx, bootstrap.Options{ConfigPath: flags.configPath})
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.Accounts().Revoke(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked user %d (%s)\n", user.ID, user.Email)
			return nil
		},
	}
}

func newUserAddCmd(flags *globalFlags) *cobra.Command {
	var (
		name     string
		role     string
		password string
	)
	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = strings.TrimSpace(os.Getenv("AGENTDECK_USER_PASSWORD"))
			}
			if password == "" {
				return fmt.Errorf("password required: pass --password or set AGENTDECK_USER_PASSWORD")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := bootstrap.New(ctx, bootstrap.Options{ConfigPath: flags.configPath})
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.Accounts().CreateUser(ctx, args[0], name, role, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s, %s)\n", user.ID, user.Email, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", "user", "admin, user or viewer")
	cmd.Flags().StringVar(&password, "password", "", "initial password (or AGENTDECK_USER_PASSWORD)")
	return cmd
}
