package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"sweet_shop/internal/config"
	"sweet_shop/internal/model"
	"sweet_shop/internal/service"
	"sweet_shop/internal/utils"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long:  "List users and grant or revoke the admin role.",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE:  runUserList,
}

var userPromoteCmd = &cobra.Command{
	Use:   "promote [username]",
	Short: "Grant the admin role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetRole(cmd, args[0], model.RoleAdmin)
	},
}

var userDemoteCmd = &cobra.Command{
	Use:   "demote [username]",
	Short: "Revoke the admin role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetRole(cmd, args[0], model.RoleUser)
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userPromoteCmd)
	userCmd.AddCommand(userDemoteCmd)
}

func getAuthService(cmd *cobra.Command) (service.AuthService, func(), error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.Storage == config.StorageMemory {
		return nil, nil, fmt.Errorf("user commands need STORAGE=%s", config.StoragePostgres)
	}
	store, err := openStorage(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	jwtUtil := utils.NewJWTUtil(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	auth := service.NewAuthService(store.repos.Users, jwtUtil, service.AuthOptions{
		AdminUsernames: cfg.Auth.AdminUsernames,
		BcryptCost:     cfg.Auth.BcryptCost,
	}, logger)
	return auth, store.Close, nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	auth, cleanup, err := getAuthService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	users, err := auth.ListUsers(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Username, u.Email, u.Role, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runSetRole(cmd *cobra.Command, username, role string) error {
	auth, cleanup, err := getAuthService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := auth.SetRole(cmd.Context(), username, role); err != nil {
		return err
	}
	fmt.Printf("User %s now has role %s\n", username, role)
	return nil
}
