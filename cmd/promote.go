/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inkpress/apiserver/config"
	"github.com/inkpress/apiserver/internal/kv"
	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
	"github.com/spf13/cobra"
)

var promoteEmail string

// promoteCmd grants the admin role outside the API, for bootstrapping the
// first administrator.
var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Grant the admin role to the user with the given email",
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.TrimSpace(promoteEmail)
		if email == "" {
			return errors.New("--email is required")
		}

		cfg := config.LoadConfig()
		if cfg.KV.Backend == "" || cfg.KV.Backend == "memory" {
			return errors.New("promote needs a persistent KV_BACKEND (redis or postgres)")
		}

		kvStore, err := kv.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open kv store: %w", err)
		}
		defer kvStore.Close()

		users := store.NewUserRepository(kvStore)
		user, err := users.GetByEmail(cmd.Context(), email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no user with email %s", email)
			}
			return err
		}
		if user.IsAdmin() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is already an admin\n", user.Username, user.ID)
			return nil
		}

		user.Role = types.RoleAdmin
		if _, err := users.Update(cmd.Context(), user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "promoted %s (%s) to admin\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promoteCmd)
	promoteCmd.Flags().StringVar(&promoteEmail, "email", "", "email of the user to promote")
}
