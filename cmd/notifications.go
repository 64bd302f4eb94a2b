/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/socialnote/apiserver/internal/server"
	"github.com/socialnote/apiserver/internal/services"
	"github.com/spf13/cobra"
)

var purgeUserID string

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Maintain pending friend request notifications",
}

var notificationsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop friend requests from users that no longer exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := strings.TrimSpace(purgeUserID)
		if userID == "" {
			return errors.New("--user is required")
		}

		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() {
			_ = log.Sync()
		}()

		users, closeStore, err := server.OpenUserStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()

		social := services.NewSocialGraphService(users, nil, log)
		removed, err := social.PurgeDanglingNotifications(cmd.Context(), userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d dangling notification(s)\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsPurgeCmd)
	notificationsPurgeCmd.Flags().StringVar(&purgeUserID, "user", "", "id of the user whose notifications are purged")
}
