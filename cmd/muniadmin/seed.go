package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/muniadmin/muniadmin/internal/app"
	"github.com/muniadmin/muniadmin/internal/platform/db"
	"github.com/muniadmin/muniadmin/internal/rbac"
	"github.com/muniadmin/muniadmin/internal/users"
	"github.com/muniadmin/muniadmin/jobs"
	"github.com/muniadmin/muniadmin/migrations"
)

const (
	defaultSeedTimeout = 60 * time.Second
	adminPasswordEnv   = "SEED_ADMIN_PASSWORD"
	minPasswordLength  = 8
)

type seedConfig struct {
	timeout    time.Duration
	clean      bool
	migrate    bool
	adminEmail string
	adminName  string
	dryRun     bool
	enqueue    bool
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the permission catalog and role matrix",
		Long: `Inserts every module:action permission and the role grants of the
static matrix. Existing rows are left untouched, so the command can be run
repeatedly. --clean wipes user overrides, role grants and permissions first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().BoolVar(&cfg.clean, "clean", false, "delete user overrides, role grants and permissions before seeding")
	cmd.Flags().BoolVar(&cfg.migrate, "migrate", false, "apply the embedded schema before seeding")
	cmd.Flags().StringVar(&cfg.adminEmail, "admin-email", "", "create a SUPER_ADMIN account with this email (password from "+adminPasswordEnv+")")
	cmd.Flags().BoolVar(&cfg.dryRun, "dry-run", false, "seed an in-memory store and print the report without touching the database")
	cmd.Flags().StringVar(&cfg.adminName, "admin-name", "Administrador", "display name of the bootstrap account")
	cmd.Flags().BoolVar(&cfg.enqueue, "enqueue", false, "hand the seed to the background worker instead of running it here")
	cmd.MarkFlagsMutuallyExclusive("enqueue", "dry-run")
	cmd.MarkFlagsMutuallyExclusive("enqueue", "clean")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	if cfg.dryRun {
		cmd.Println("Dry run: nothing is written to the database")
		return seedRBAC(cmd.Context(), cmd, rbac.NewMemoryStore(), app.NewLogger(os.Getenv("LOG_FORMAT")), rbac.SeedOptions{Clean: cfg.clean})
	}

	dbCfg, err := app.LoadDatabaseConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "load database config").Wrap(err)
	}
	if cfg.enqueue {
		return enqueueSeed(cmd, dbCfg, cfg.timeout)
	}
	adminPassword := os.Getenv(adminPasswordEnv)
	if cfg.adminEmail != "" && len(adminPassword) < minPasswordLength {
		return oops.Code("CONFIG_INVALID").
			With("admin_email", cfg.adminEmail).
			Errorf("%s must hold at least %d characters when --admin-email is set", adminPasswordEnv, minPasswordLength)
	}
	logger := app.NewLogger(dbCfg.LogFormat)

	ctx, cancel := seedContext(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := db.New(ctx, dbCfg.PGDSN)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	if cfg.migrate {
		cmd.Println("Applying schema...")
		if err := applySchema(ctx, pool); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "apply schema").Wrap(err)
		}
	}

	if err := seedRBAC(ctx, cmd, rbac.NewPostgresStore(pool), logger, rbac.SeedOptions{Clean: cfg.clean}); err != nil {
		return err
	}

	if cfg.adminEmail != "" {
		if err := seedAdmin(ctx, cmd, users.NewRepository(pool), cfg.adminEmail, cfg.adminName, adminPassword); err != nil {
			return err
		}
	}

	cmd.Println("Seed complete at", time.Now().Format(time.RFC3339))
	return nil
}

// seedContext bounds a seed run by timeout and cancels it on SIGINT/SIGTERM.
func seedContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	sigCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(sigCtx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// reseedEnqueuer is the jobs.Client subset used by --enqueue.
type reseedEnqueuer interface {
	EnqueueReseed(ctx context.Context, payload jobs.ReseedPayload) (*asynq.TaskInfo, error)
}

func enqueueSeed(cmd *cobra.Command, dbCfg *app.DatabaseConfig, timeout time.Duration) error {
	client := jobs.NewClient(redisOpts(*dbCfg))
	defer func() {
		_ = client.Close()
	}()
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	return submitReseed(ctx, cmd, client)
}

func submitReseed(ctx context.Context, cmd *cobra.Command, client reseedEnqueuer) error {
	info, err := client.EnqueueReseed(ctx, jobs.ReseedPayload{RequestedBy: "cli", RequestedAt: time.Now().UTC()})
	if errors.Is(err, asynq.ErrDuplicateTask) {
		cmd.Println("A reseed is already queued")
		return nil
	}
	if err != nil {
		return oops.Code("ENQUEUE_FAILED").With("operation", "enqueue reseed").Wrap(err)
	}
	cmd.Printf("Reseed queued: %s (queue %s)\n", info.ID, info.Queue)
	return nil
}

func applySchema(ctx context.Context, q db.Querier) error {
	files, err := migrations.Files()
	if err != nil {
		return err
	}
	return db.Migrate(ctx, q, files, migrations.Read)
}

func seedRBAC(ctx context.Context, cmd *cobra.Command, store rbac.Store, logger *slog.Logger, opts rbac.SeedOptions) error {
	if opts.Clean {
		cmd.Println("Cleaning permissions, role grants and user overrides...")
	}
	cmd.Println("Seeding permissions and role grants...")
	result, err := rbac.NewSeeder(store, logger).Run(ctx, opts)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "seed rbac").With("clean", opts.Clean).Wrap(err)
	}
	cmd.Printf("Permissions inserted: %d\n", result.PermissionsInserted)
	cmd.Printf("Role grants inserted: %d\n", result.GrantsInserted)
	for _, role := range rbac.Roles {
		cmd.Printf("  %-12s %d\n", role, result.GrantsByRole[role])
	}
	return nil
}

// accountStore is the users.Repository subset used for the bootstrap account.
type accountStore interface {
	EnsureUser(ctx context.Context, email, name, passwordHash string, role rbac.Role) (bool, error)
}

func seedAdmin(ctx context.Context, cmd *cobra.Command, store accountStore, email, name, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "hash admin password").Wrap(err)
	}
	created, err := store.EnsureUser(ctx, email, name, string(hash), rbac.RoleSuperAdmin)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "create admin").With("email", email).Wrap(err)
	}
	if created {
		cmd.Println("Created SUPER_ADMIN account:", email)
		return nil
	}
	cmd.Println("Account already exists, left unchanged:", email)
	return nil
}
