package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newCacheCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local lock cache",
		Long: "The cache remembers locks this machine has seen. It is never used to decide " +
			"what happens on chain, and removing entries is always safe.",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := env.lockCache(cmd.Context())
			if err != nil {
				return err
			}

			removed, err := cache.Clear(cmd.Context())
			if err != nil {
				return err
			}

			view := struct {
				Removed int `json:"removed"`
			}{removed}
			return env.printer(cmd).print(view, func(w io.Writer) {
				fmt.Fprintf(w, "Removed %d cached locks\n", removed)
			})
		},
	}

	var lock string
	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove one cached lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lockKey, err := parseKey("lock", lock)
			if err != nil {
				return err
			}

			cache, err := env.lockCache(cmd.Context())
			if err != nil {
				return err
			}

			if err := cache.Remove(cmd.Context(), lockKey); err != nil {
				return err
			}

			view := struct {
				Removed string `json:"removed"`
			}{lock}
			return env.printer(cmd).print(view, func(w io.Writer) {
				fmt.Fprintf(w, "Removed %s\n", lock)
			})
		},
	}
	removeCmd.Flags().StringVar(&lock, "lock", "", "lock address")
	_ = removeCmd.MarkFlagRequired("lock")

	cmd.AddCommand(clearCmd, removeCmd)
	return cmd
}
