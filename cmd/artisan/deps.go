package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/skeleton/internal/logging"
	"github.com/dmitrijs2005/skeleton/internal/server/config"
	"github.com/dmitrijs2005/skeleton/internal/server/mail"
	"github.com/dmitrijs2005/skeleton/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/skeleton/internal/server/services"
	"github.com/samber/oops"
)

// Accounts is the part of services.UserService artisan uses.
type Accounts interface {
	Register(ctx context.Context, isAdmin bool, username, password, email string) (int64, error)
	DeleteUserByEmail(ctx context.Context, email string) error
}

// Deps contains injectable dependencies for the artisan commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// OpenAccounts connects to the database and returns the account
	// service with a function releasing it.
	// Default: openAccounts
	OpenAccounts func(ctx context.Context) (Accounts, func() error, error)

	// OpenMailer returns the mail sender and composer.
	// Default: openMailer
	OpenMailer func(ctx context.Context) (mail.Sender, *mail.Composer, error)

	// LoadConfig returns the configuration.
	// Default: config.LoadFileConfig
	LoadConfig func() *config.Config
}

func (d *Deps) setDefaults() {
	if d.LoadConfig == nil {
		d.LoadConfig = config.LoadFileConfig
	}
	if d.OpenAccounts == nil {
		d.OpenAccounts = d.openAccounts
	}
	if d.OpenMailer == nil {
		d.OpenMailer = d.openMailer
	}
}

func (d *Deps) openAccounts(ctx context.Context) (Accounts, func() error, error) {
	cfg := d.LoadConfig()
	logger := logging.NewJSON(os.Stderr, cfg.LogLevel)

	db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create repository manager").Wrap(err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	return services.NewUserService(db, rm, cfg, services.WithLogger(logger)), db.Close, nil
}

func (d *Deps) openMailer(_ context.Context) (mail.Sender, *mail.Composer, error) {
	cfg := d.LoadConfig()
	logger := logging.NewJSON(os.Stderr, cfg.LogLevel)

	sender, err := mail.NewSender(cfg.SMTPURL, cfg.SMTPCredential, cfg.SMTPPassword, logger)
	if err != nil {
		return nil, nil, oops.Code("MAIL_CONFIG_INVALID").With("smtp_url", cfg.SMTPURL).Wrap(err)
	}
	return sender, mail.NewComposer(cfg.PlatformName), nil
}
