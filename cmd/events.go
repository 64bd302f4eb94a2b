/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/socialnote/apiserver/internal/events"
	"github.com/socialnote/apiserver/internal/mq"
	"github.com/socialnote/apiserver/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect social events published by the server",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log friend request events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() {
			_ = log.Sync()
		}()

		queue, err := server.OpenQueue(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("events are disabled; set EVENTS_BACKEND")
		}
		defer queue.Close()

		log.Info("tailing social events", zap.String("channel", cfg.Events.Channel))
		err = queue.Subscribe(cmd.Context(), cfg.Events.Channel, func(ctx context.Context, msg mq.Message) error {
			event, err := events.Decode(msg)
			if err != nil {
				// Undecodable payloads are dropped rather than redelivered forever.
				log.Warn("skipping malformed event", zap.String("message_id", msg.ID), zap.Error(err))
				return nil
			}
			log.Info("social event",
				zap.String("kind", string(event.Kind)),
				zap.String("requester_id", event.RequesterID),
				zap.String("target_id", event.TargetID),
				zap.Time("occurred_at", event.OccurredAt),
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("subscribe: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
