package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"jyra/internal/config"
)

const redacted = "***redacted***"

func newShowConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-config",
		Short: "Print the effective configuration as YAML, with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			redactSecrets(cfg)

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func redactSecrets(cfg *config.Config) {
	if cfg.TelegramBotToken != "" {
		cfg.TelegramBotToken = redacted
	}
	if cfg.GeminiAPIKey != "" {
		cfg.GeminiAPIKey = redacted
	}
	if cfg.OpenAIAPIKey != "" {
		cfg.OpenAIAPIKey = redacted
	}
	if cfg.AnthropicAPIKey != "" {
		cfg.AnthropicAPIKey = redacted
	}
}
