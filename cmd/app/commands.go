package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"SectorScope/internal/di"
	"SectorScope/internal/domain/models"
	"SectorScope/internal/services/export"
	"SectorScope/internal/services/fetcher"
	"SectorScope/internal/usecase"
	"SectorScope/pkg/config"
	xhttp "SectorScope/pkg/http"
	applogger "SectorScope/pkg/logger"
	"SectorScope/pkg/server"
	"SectorScope/pkg/util"
)

const defaultConfigPath = "config/config.yaml"

// newRootCmd creates the sectorscope command tree.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "sectorscope",
		Short:         "Sector and ETF market analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "config file path (yaml or toml)")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		path := configPath
		if !cmd.Flags().Changed("config") {
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				path = ""
			}
		}
		cfg, err := config.LoadWithEnv(path)
		if err != nil {
			return nil, fmt.Errorf("config load failed: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(
		newServeCmd(load),
		newReturnsCmd(load),
		newBreadthCmd(load),
		newPerformanceCmd(load),
		newSeasonalityCmd(load),
		newHoldingsCmd(load),
	)
	return root
}

type loader func(cmd *cobra.Command) (*config.Config, error)

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			app, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}
}

func newReturnsCmd(load loader) *cobra.Command {
	req := &models.ReturnsRequest{}
	cmd := &cobra.Command{
		Use:   "returns",
		Short: "Write the multi-period returns table as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := xhttp.ValidateStruct(req); err != nil {
				return err
			}
			retry, err := fetcher.ParseRetryPolicy(req.MaxRetries, req.Backoff)
			if err != nil {
				return err
			}
			return oneShot(cmd, load, func(ctx context.Context, p *usecase.Pipeline, w io.Writer, l *applogger.Logger) error {
				rep, err := p.Returns(ctx, usecase.ReturnsInput{
					ETF:       req.ETF,
					Symbols:   util.ParseSymbols(req.Tickers),
					Benchmark: req.Benchmark,
					Retry:     retry,
				})
				if err != nil {
					return err
				}
				return writeReport(w, l, rep)
			})
		},
	}
	cmd.Flags().StringVar(&req.ETF, "etf", "", "ETF whose holdings form the universe")
	cmd.Flags().StringVar(&req.Tickers, "tickers", "", "comma separated symbols, overrides --etf")
	cmd.Flags().StringVar(&req.Benchmark, "benchmark", "", "benchmark symbol, defaults to the ETF")
	retryFlags(cmd, &req.MaxRetries, &req.Backoff)
	return cmd
}

func newBreadthCmd(load loader) *cobra.Command {
	req := &models.BreadthRequest{}
	cmd := &cobra.Command{
		Use:   "breadth",
		Short: "Write the percent-above-SMA breadth series as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := xhttp.ValidateStruct(req); err != nil {
				return err
			}
			retry, err := fetcher.ParseRetryPolicy(req.MaxRetries, req.Backoff)
			if err != nil {
				return err
			}
			return oneShot(cmd, load, func(ctx context.Context, p *usecase.Pipeline, w io.Writer, l *applogger.Logger) error {
				rep, err := p.Breadth(ctx, usecase.BreadthInput{
					ETF:     req.ETF,
					Symbols: util.ParseSymbols(req.Tickers),
					Start:   util.ParseTimeDefault(req.Start, time.Time{}),
					Retry:   retry,
				})
				if err != nil {
					return err
				}
				return writeReport(w, l, rep)
			})
		},
	}
	cmd.Flags().StringVar(&req.ETF, "etf", "", "ETF whose holdings form the universe")
	cmd.Flags().StringVar(&req.Tickers, "tickers", "", "comma separated symbols, overrides --etf")
	cmd.Flags().StringVar(&req.Start, "start", "", "first date of the series (YYYY-MM-DD)")
	retryFlags(cmd, &req.MaxRetries, &req.Backoff)
	return cmd
}

func newPerformanceCmd(load loader) *cobra.Command {
	req := &models.PerformanceRequest{}
	cmd := &cobra.Command{
		Use:   "performance",
		Short: "Write the year-to-date and last-day constituent performance as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := xhttp.ValidateStruct(req); err != nil {
				return err
			}
			retry, err := fetcher.ParseRetryPolicy(req.MaxRetries, req.Backoff)
			if err != nil {
				return err
			}
			return oneShot(cmd, load, func(ctx context.Context, p *usecase.Pipeline, w io.Writer, l *applogger.Logger) error {
				rep, err := p.Performance(ctx, usecase.PerformanceInput{
					ETF:     req.ETF,
					Symbols: util.ParseSymbols(req.Tickers),
					Retry:   retry,
				})
				if err != nil {
					return err
				}
				return writeReport(w, l, rep)
			})
		},
	}
	cmd.Flags().StringVar(&req.ETF, "etf", "", "ETF whose holdings are ranked")
	cmd.Flags().StringVar(&req.Tickers, "tickers", "", "comma separated symbols, overrides --etf")
	retryFlags(cmd, &req.MaxRetries, &req.Backoff)
	return cmd
}

func retryFlags(cmd *cobra.Command, maxRetries, backoff *string) {
	cmd.Flags().StringVar(maxRetries, "max-retries", "", "retries per batch (0-10), defaults to the config")
	cmd.Flags().StringVar(backoff, "backoff", "", "base retry backoff such as 2s, defaults to the config")
}

func newSeasonalityCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "seasonality TICKER",
		Short: "Write the average-year seasonality curve as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &models.SeasonalityRequest{Ticker: args[0]}
			if err := xhttp.ValidateStruct(req); err != nil {
				return err
			}
			return oneShot(cmd, load, func(ctx context.Context, p *usecase.Pipeline, w io.Writer, l *applogger.Logger) error {
				rep, err := p.Seasonality(ctx, usecase.SeasonalityInput{Symbol: req.Ticker})
				if err != nil {
					return err
				}
				return writeReport(w, l, rep)
			})
		},
	}
}

func newHoldingsCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings [ETF]",
		Short: "Write an ETF's holdings as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &models.HoldingsRequest{}
			if len(args) == 1 {
				req.ETF = args[0]
			}
			if err := xhttp.ValidateStruct(req); err != nil {
				return err
			}
			return oneShot(cmd, load, func(ctx context.Context, p *usecase.Pipeline, w io.Writer, l *applogger.Logger) error {
				rep, err := p.Holdings(ctx, req.ETF)
				if err != nil {
					return err
				}
				return writeReport(w, l, rep)
			})
		},
	}
}

// oneShot builds the application, runs fn against its pipeline and
// releases every client afterwards.
func oneShot(cmd *cobra.Command, load loader, fn func(context.Context, *usecase.Pipeline, io.Writer, *applogger.Logger) error) error {
	cfg, err := load(cmd)
	if err != nil {
		return err
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer shutdown(app)

	l, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, app.Pipeline(), cmd.OutOrStdout(), l)
}

func shutdown(app *server.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.Shutdown(ctx)
}

// writeReport prints the table as CSV and surfaces failures and warnings
// on the log.
func writeReport[T models.Tabular](w io.Writer, l *applogger.Logger, rep *models.Report[T]) error {
	if len(rep.Failed) > 0 {
		l.Warn("symbols failed to load", applogger.Strings("failed", rep.Failed))
	}
	for _, msg := range rep.Warnings {
		l.Warn(msg, applogger.String("view", rep.View))
	}
	return export.WriteCSV(w, rep.Data)
}
