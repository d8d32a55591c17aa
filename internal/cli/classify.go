package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadgrid/leadgrid/internal/config"
	"github.com/leadgrid/leadgrid/internal/domain"
	"github.com/leadgrid/leadgrid/internal/llm"
	"github.com/leadgrid/leadgrid/internal/orchestrate"
	"github.com/leadgrid/leadgrid/internal/pipeline"
	"github.com/leadgrid/leadgrid/internal/store"
)

// cliUserEmail owns requirements created from the command line.
const cliUserEmail = "cli@leadgrid.local"

func newClassifyCmd() *cobra.Command {
	var freeText string

	cmd := &cobra.Command{
		Use:   "classify [requirement-id]",
		Short: "Classify a requirement into ranked decision-maker roles",
		Long:  "Runs the AI classification for an existing requirement, or for ad-hoc text given with --text.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && freeText == "" {
				return fmt.Errorf("either a requirement id or --text is required")
			}

			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			db, err := store.Open(paths.DatabasePath(&cfg), log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			requirements := store.NewRequirementStore(db)
			roles := store.NewRoleStore(db)

			registry := llm.NewRegistryFromConfig(cfg.Providers, log)
			primary, err := registry.Resolve(cfg.Providers.Primary)
			if err != nil {
				return fmt.Errorf("no AI provider configured: %w", err)
			}
			var secondary llm.Client
			if cfg.Providers.Secondary != "" {
				if c, err := registry.Resolve(cfg.Providers.Secondary); err == nil && c != primary {
					secondary = c
				}
			}

			orch := orchestrate.New(primary, secondary, retryPolicyFromConfig(cfg.Retry), log)
			classifier := pipeline.NewClassifier(orch, requirements, roles, nil, nil, log)

			requirementID := ""
			if len(args) == 1 {
				requirementID = args[0]
			} else {
				requirementID, err = createAdHocRequirement(db, requirements, freeText)
				if err != nil {
					return err
				}
			}

			result, err := classifier.Classify(cmd.Context(), requirementID)
			if err != nil {
				return err
			}

			fmt.Printf("Requirement %s classified by %s (%s) in %d attempt(s)\n\n",
				result.Requirement.ID, result.Provider, result.Model, result.Attempts)
			fmt.Printf("Industry: %s\n", result.Requirement.PrimaryIndustry)
			fmt.Println("Roles:")
			for _, r := range result.Roles {
				fmt.Printf("  %d. %s [%s]: %s\n", r.Priority, r.Role, r.Relevance, r.Reasoning)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&freeText, "text", "", "classify ad-hoc requirement text instead of a stored requirement")

	return cmd
}

// createAdHocRequirement stores --text under the shared CLI user.
func createAdHocRequirement(db *store.DB, requirements *store.RequirementStore, text string) (string, error) {
	users := store.NewUserStore(db)
	owner, err := users.GetByEmail(cliUserEmail)
	if err != nil {
		owner = &domain.User{Email: cliUserEmail, Name: "CLI"}
		if err := users.Create(owner); err != nil {
			return "", fmt.Errorf("creating cli user: %w", err)
		}
	}

	r := &domain.Requirement{UserID: owner.ID, FreeText: text}
	if err := requirements.Create(r); err != nil {
		return "", fmt.Errorf("creating requirement: %w", err)
	}
	return r.ID, nil
}
