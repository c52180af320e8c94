package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"wikihub/app/internal/app/bootstrap"
	domainwiki "wikihub/app/internal/domain/wiki"
	"wikihub/app/internal/platform/config"
	applog "wikihub/app/internal/platform/log"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	dbPath   string
	output   string
	logLevel string
}

// session is an opened database plus the services commands operate on.
type session struct {
	dbPath   string
	storage  bootstrap.Storage
	service  domainwiki.Service
	resolver *domainwiki.Resolver
	logger   *logrus.Logger
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "wikictl",
		Short: "Inspect and maintain wikihub wikis",
		Long: `wikictl works directly against the wikihub database.

Containers are addressed as <kind> <path>, where kind is "project" or
"group", for example: wikictl pages project acme/handbook`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case "table", "json", "yaml":
				return nil
			default:
				return eris.Errorf("unsupported output format %q (json, table, yaml)", opts.output)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default: DB_PATH)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format (json, table, yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")

	cmd.AddCommand(
		newMigrateCommand(opts),
		newPagesCommand(opts),
		newResolveCommand(opts),
		newShowCommand(opts),
		newVisibilityCommand(opts),
	)

	return cmd
}

// open loads configuration, applies migrations and wires the wiki service.
func (o *options) open(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, eris.Wrap(err, "loading configuration")
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}

	logger, err := applog.NewLoggerTo(cmd.ErrOrStderr(), o.logLevel)
	if err != nil {
		return nil, err
	}

	storage, err := bootstrap.OpenStorage(cmd.Context(), *cfg, logger)
	if err != nil {
		return nil, err
	}

	service, err := bootstrap.NewWikiService(*cfg, storage.Stores, logger, nil)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	resolver, err := domainwiki.NewResolver(storage.Stores, logger)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	return &session{dbPath: cfg.DBPath, storage: storage, service: service, resolver: resolver, logger: logger}, nil
}

func (o *options) run(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.storage.Close(); closeErr != nil {
			s.logger.WithError(closeErr).Error("closing database")
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, s)
}

func parseContainer(kind, path string) (domainwiki.Container, error) {
	container := domainwiki.Container{
		Kind: domainwiki.ContainerKind(strings.ToLower(strings.TrimSpace(kind))),
		Path: strings.Trim(strings.TrimSpace(path), "/"),
	}
	if !container.Valid() {
		return domainwiki.Container{}, eris.Wrapf(domainwiki.ErrInvalidContainer, "%s %s", kind, path)
	}
	return container, nil
}
