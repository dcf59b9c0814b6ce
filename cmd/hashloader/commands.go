package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atinyakov/hashloader/internal/db"
	"github.com/atinyakov/hashloader/internal/repository"
	handler "github.com/atinyakov/hashloader/internal/server/handler/http"
	"github.com/atinyakov/hashloader/internal/service"
)

const shutdownTimeout = 5 * time.Second

func (a *app) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load FILE...",
		Short: "Load password files, reconcile them with the pot and print a summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sqlDB, err := a.openStore()
			if err != nil {
				return err
			}
			if sqlDB != nil {
				defer sqlDB.Close()
			}

			s, err := a.prepare(ctx, sqlDB, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fst, err := a.finalize(ctx, s, out)
			if err != nil {
				return err
			}
			printSummary(out, s.svc.Stats(), fst)
			return nil
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve FILE...",
		Short: "Load password files and serve the finalized database over HTTP",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := a.log.Log

			sqlDB, err := a.openStore()
			if err != nil {
				return err
			}
			if sqlDB != nil {
				defer sqlDB.Close()
				db.StartRunCleaner(ctx, sqlDB, a.opts.CleanInterval, a.opts.RunRetention, log)
			}

			s, err := a.prepare(ctx, sqlDB, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fst, err := a.finalize(ctx, s, out)
			if err != nil {
				return err
			}
			printSummary(out, s.svc.Stats(), fst)

			var runs *handler.RunsHandler
			if sqlDB != nil {
				runs = &handler.RunsHandler{
					Service: service.NewRunService(repository.NewPostgresRunRepository(sqlDB)),
				}
			}
			server := &http.Server{
				Addr:              a.opts.Listen,
				Handler:           handler.NewRouter(&handler.InspectorHandler{Service: s.svc}, runs, log),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("starting HTTP server", zap.String("addr", a.opts.Listen))
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			log.Info("shutting down HTTP server")
			return server.Shutdown(shutdownCtx)
		},
	}
}

func (a *app) potCmd() *cobra.Command {
	pot := &cobra.Command{
		Use:   "pot",
		Short: "Manage the PostgreSQL pot",
	}
	pot.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Copy a pot file into the PostgreSQL pot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.opts.DatabaseDSN == "" {
				return errors.New("pot import needs --database-dsn")
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			sqlDB, err := a.openStore()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			svc := service.NewPotService(
				repository.NewPostgresPotRepository(sqlDB),
				a.registry(),
				a.opts.FieldSeparator[0],
				a.log.Log,
			)
			st, err := svc.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d new of %d entries, %d unrecognized\n",
				st.Stored, st.Lines, st.Unrecognized)
			return nil
		},
	})
	return pot
}

func (a *app) runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded load runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.opts.DatabaseDSN == "" {
				return errors.New("runs needs --database-dsn")
			}
			sqlDB, err := a.openStore()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			runs, err := service.NewRunService(repository.NewPostgresRunRepository(sqlDB)).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %s  %-12s loaded=%d cracked=%d left=%d files=%v\n",
					r.FinishedAt.Format(time.RFC3339), r.ID, r.Format, r.Loaded, r.Cracked, r.Left, r.Files)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of runs to list (default 20)")
	return cmd
}
