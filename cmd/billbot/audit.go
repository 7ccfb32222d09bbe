package main

import (
	"encoding/json"
	"fmt"

	"billbot/internal/audit"
	"billbot/internal/config"

	"github.com/spf13/cobra"
)

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit [message-id]",
		Short: "Show audit entries recorded for a provider message id",
		Long: `Reads the append-only audit trail and prints every retrieval entry
recorded for the given provider message id. A reprocessed message shows one
entry per processing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store, err := audit.NewSQLiteStore(cfg.Audit.DBPath, logger)
			if err != nil {
				return fmt.Errorf("audit store: %w", err)
			}
			defer store.Close()

			entries, err := store.GetByMessageID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("read audit entries: %w", err)
			}
			if len(entries) == 0 {
				fmt.Printf("no audit entries for message id %s\n", args[0])
				return nil
			}

			data, _ := json.MarshalIndent(entries, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	}
}
