package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leadgrid/leadgrid/internal/apollo"
	"github.com/leadgrid/leadgrid/internal/config"
	"github.com/leadgrid/leadgrid/internal/gateway"
	"github.com/leadgrid/leadgrid/internal/hooks"
	"github.com/leadgrid/leadgrid/internal/jobs"
	"github.com/leadgrid/leadgrid/internal/llm"
	"github.com/leadgrid/leadgrid/internal/notify"
	"github.com/leadgrid/leadgrid/internal/orchestrate"
	"github.com/leadgrid/leadgrid/internal/pipeline"
	"github.com/leadgrid/leadgrid/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the LeadGrid API server and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			db, err := store.Open(paths.DatabasePath(&cfg), log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			users := store.NewUserStore(db)
			requirements := store.NewRequirementStore(db)
			roles := store.NewRoleStore(db)
			leads := store.NewLeadStore(db)
			campaigns := store.NewCampaignStore(db)
			tickets := store.NewTicketStore(db)

			hookMgr := hooks.NewManager(log)
			queue := jobs.NewQueue(db)
			pool := jobs.NewPool(queue, cfg.Jobs, log)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// AI providers: classification is disabled without a primary.
			registry := llm.NewRegistryFromConfig(cfg.Providers, log)
			var classifier *pipeline.Classifier
			if primary, err := registry.Resolve(cfg.Providers.Primary); err == nil {
				var secondary llm.Client
				if cfg.Providers.Secondary != "" {
					if c, err := registry.Resolve(cfg.Providers.Secondary); err == nil && c != primary {
						secondary = c
					}
				}
				policy := retryPolicyFromConfig(cfg.Retry)
				orch := orchestrate.New(primary, secondary, policy, log)
				classifier = pipeline.NewClassifier(orch, requirements, roles, queue, hookMgr, log)
				log.Info().
					Str("primary", primary.Name()).
					Bool("fallback", secondary != nil).
					Msg("classification ready")
			} else {
				log.Warn().Msg("no AI provider configured — classification will be unavailable")
			}

			var searcher pipeline.PeopleSearcher
			if cfg.Apollo.APIKey != "" {
				searcher = apollo.New(cfg.Apollo.APIKey)
			} else {
				log.Warn().Msg("apollo api key missing — lead scraping will be unavailable")
			}

			var sender notify.Sender
			if cfg.Mailer.Enabled {
				gm, err := notify.NewGmailSender(ctx, cfg.Mailer, log)
				if err != nil {
					return fmt.Errorf("initializing mailer: %w", err)
				}
				sender = gm
			} else {
				log.Info().Msg("mailer disabled — campaigns will not send")
			}

			handlers := pipeline.NewJobs(searcher, sender, queue, requirements, roles, leads, campaigns, hookMgr, log)
			handlers.Register(pool)
			pool.Start(ctx)
			defer pool.Stop()

			if cfg.Inbox.Enabled {
				watcher := notify.NewWatcher(cfg.Inbox, campaigns, handlers.HandleReply, log)
				go watcher.Run(ctx)
			}

			srv := gateway.New(cfg, gateway.Deps{
				Users:        users,
				Requirements: requirements,
				Roles:        roles,
				Leads:        leads,
				Campaigns:    campaigns,
				Tickets:      tickets,
				Classifier:   classifier,
				Queue:        queue,
				Hooks:        hookMgr,
			}, log)

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}

// retryPolicyFromConfig overlays configured retry settings on the defaults.
func retryPolicyFromConfig(rc config.RetryConfig) orchestrate.RetryPolicy {
	policy := orchestrate.DefaultRetryPolicy()
	if rc.MaxAttempts > 0 {
		policy.MaxAttempts = rc.MaxAttempts
	}
	if rc.MaxAttemptsExtended > 0 {
		policy.MaxAttemptsExtended = rc.MaxAttemptsExtended
	}
	if rc.RequestTimeout > 0 {
		policy.RequestTimeout = rc.RequestTimeout
	}
	return policy
}
