package main

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atinyakov/hashloader/internal/config"
	"github.com/atinyakov/hashloader/internal/db"
	"github.com/atinyakov/hashloader/internal/format"
	"github.com/atinyakov/hashloader/internal/formats"
	"github.com/atinyakov/hashloader/internal/loader"
	"github.com/atinyakov/hashloader/internal/logger"
	"github.com/atinyakov/hashloader/internal/models"
	"github.com/atinyakov/hashloader/internal/repository"
	"github.com/atinyakov/hashloader/internal/service"
)

type app struct {
	cfgFile string
	opts    config.Options
	log     *logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: logger.New()}

	root := &cobra.Command{
		Use:          "hashloader",
		Short:        "Load password hash files into a deduplicated, indexed database",
		Version:      fmt.Sprintf("%s (built %s)", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A")),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := config.Load(cmd, a.cfgFile)
			if err != nil {
				return err
			}
			a.opts = opts
			if err := a.log.Init(opts.LogLevel); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Log.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default ./hashloader.yaml)")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(a.loadCmd(), a.serveCmd(), a.potCmd(), a.runsCmd())
	return root
}

func (a *app) registry() *format.Registry {
	r := formats.NewRegistry()
	r.Disable(a.opts.DisabledFormats...)
	return r
}

// openStore connects to PostgreSQL when a DSN is configured. It returns a
// nil *sql.DB otherwise.
func (a *app) openStore() (*sql.DB, error) {
	if a.opts.DatabaseDSN == "" {
		return nil, nil
	}
	sqlDB, err := db.InitPostgres(a.opts.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("cannot init database: %w", err)
	}
	return sqlDB, nil
}

// session is a database loaded and reconciled but not yet finalized.
type session struct {
	db  *loader.Database
	svc *service.LoaderService
}

func (a *app) prepare(ctx context.Context, sqlDB *sql.DB, files []string) (*session, error) {
	log := a.log.Log

	database, err := loader.New(a.opts.Loader(), a.registry(), log)
	if err != nil {
		return nil, err
	}

	var (
		pots service.PotRepository
		runs service.RunRepository
	)
	if sqlDB != nil {
		pots = repository.NewPostgresPotRepository(sqlDB)
		runs = repository.NewPostgresRunRepository(sqlDB)
	}
	svc := service.NewLoaderService(database, pots, runs, log)

	st, err := svc.LoadFiles(ctx, files...)
	if err != nil {
		return nil, err
	}
	log.Info("load pass complete",
		zap.String("database", database.ID.String()),
		zap.Int("lines", st.Lines),
		zap.Int("loaded", st.Loaded),
		zap.Int("duplicates", st.Duplicates),
		zap.Int("rejected", st.Rejected),
		zap.Int("no_format", st.NoFormat),
	)

	if a.opts.PotFile != "" {
		ps, err := svc.ReconcilePotFile(ctx, a.opts.PotFile)
		if err != nil {
			return nil, err
		}
		log.Info("reconciled with pot file",
			zap.String("path", a.opts.PotFile), zap.Int("lines", ps.Lines), zap.Int("marked", ps.Marked))
	}
	if _, err := svc.ReconcileRepository(ctx); err != nil {
		return nil, err
	}
	return &session{db: database, svc: svc}, nil
}

// finalize completes the session, writing the records left to w when
// show-left is set.
func (a *app) finalize(ctx context.Context, s *session, w io.Writer) (loader.FinalizeStats, error) {
	var left loader.LeftFunc
	if a.opts.ShowLeft {
		f := s.db.Format()
		sep := a.opts.FieldSeparator
		left = func(p *loader.Password) {
			fmt.Fprintf(w, "%s%s%s\n", p.Login, sep, p.Source(f))
		}
	}
	return s.svc.Finalize(ctx, left)
}

func printSummary(w io.Writer, st models.Stats, fst loader.FinalizeStats) {
	if st.Format == "" || fst.Total == 0 {
		fmt.Fprintln(w, "No password hashes loaded")
		return
	}
	fmt.Fprintf(w, "Loaded %d password %s with %d different %s (%s)\n",
		fst.Total, plural(fst.Total, "hash", "hashes"),
		st.Salts, plural(st.Salts, "salt", "salts"), st.Format)
	if fst.Filtered > 0 {
		fmt.Fprintf(w, "Filtered out %d by salt population or cost\n", fst.Filtered)
	}
	if fst.Cracked > 0 {
		fmt.Fprintf(w, "Cracked %d, remaining %d\n", fst.Cracked, fst.Left)
	}
	if st.Passwords == 0 {
		fmt.Fprintln(w, "No password hashes left to crack")
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
