package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flightbook/internal/app"
	intconfig "flightbook/internal/config"
	"flightbook/internal/db"
	api "flightbook/internal/http"
	"flightbook/internal/metrics"
	"flightbook/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "flightbook",
		Short:         "Flight booking API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadEnv() (intconfig.Env, error) {
	env := intconfig.LoadEnv()
	if err := env.Validate(); err != nil {
		return env, err
	}
	return env, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background reconciler",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			if env.GinMode != "" {
				gin.SetMode(env.GinMode)
			}
			log := utils.NewLogger(env.LogLevel)
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := app.OpenStores(ctx, env, log)
			if err != nil {
				return err
			}
			defer st.Close()

			m := metrics.NewMetrics()
			gw := app.NewGateway(env, m, log)
			hd := app.NewHandler(env, st, gw, m, log, nil)
			r := api.NewRouter(env, hd, m, log)

			srv := &http.Server{
				Addr:              env.AppAddr,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       20 * time.Second,
				WriteTimeout:      20 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			go hd.Reconciler.Run(ctx, env.ReconcileInterval)

			errCh := make(chan error, 1)
			go func() {
				log.Info("server listening", "addr", env.AppAddr, "store", env.StoreDriver)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("listen: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			log.Info("server stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the MySQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			conn, err := intconfig.ConnectDB(cmd.Context(), env)
			if err != nil {
				return err
			}
			defer conn.Close()

			applied, err := db.Migrate(cmd.Context(), conn)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Println("schema up to date")
				return nil
			}
			for _, step := range applied {
				fmt.Println(step)
			}
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation sweep and print its report",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			log := utils.NewLogger(env.LogLevel)
			defer log.Sync()

			st, err := app.OpenStores(cmd.Context(), env, log)
			if err != nil {
				return err
			}
			defer st.Close()

			m := metrics.NewMetrics()
			hd := app.NewHandler(env, st, app.NewGateway(env, m, log), m, log, nil)
			report, err := hd.Reconciler.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
