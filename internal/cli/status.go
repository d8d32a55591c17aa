package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/leadgrid/leadgrid/internal/config"
	"github.com/leadgrid/leadgrid/internal/llm"
	"github.com/leadgrid/leadgrid/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show LeadGrid status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("LeadGrid %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			// Load config
			cfg, err := config.Load(paths.Config)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("Config:  not found (using defaults)")
				} else {
					fmt.Printf("Config:  error loading: %v\n", err)
				}
				return nil
			}

			// Server config
			port := cfg.Server.Port
			if port == 0 {
				port = 18600
			}
			bind := cfg.Server.Bind
			if bind == "" {
				bind = "loopback"
			}
			fmt.Printf("Server:  port=%d bind=%s auth=%s\n",
				port, bind, cfg.Server.Auth.Mode)

			fmt.Printf("DB:      %s\n", paths.DatabasePath(&cfg))

			// AI providers
			registry := llm.NewRegistryFromConfig(cfg.Providers, log)
			providers := registry.List()
			if len(providers) > 0 {
				fmt.Printf("AI:      %s (primary=%s)\n",
					strings.Join(providers, ", "), cfg.Providers.Primary)
			} else {
				fmt.Println("AI:      (none configured)")
			}

			// Lead scraping
			if cfg.Apollo.APIKey != "" {
				fmt.Println("Apollo:  configured")
			} else {
				fmt.Println("Apollo:  (not configured)")
			}

			// Outreach
			if cfg.Mailer.Enabled {
				fmt.Printf("Mailer:  from=%s\n", cfg.Mailer.FromAddress)
			} else {
				fmt.Println("Mailer:  (disabled)")
			}
			if cfg.Inbox.Enabled {
				fmt.Printf("Inbox:   %s:%d mailbox=%s\n",
					cfg.Inbox.Host, cfg.Inbox.Port, cfg.Inbox.Mailbox)
			} else {
				fmt.Println("Inbox:   (disabled)")
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
