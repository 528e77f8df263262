package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/labstack/echo/v4"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
	"SectorScope/internal/services/export"
	"SectorScope/internal/services/fetcher"
	"SectorScope/internal/usecase"
	xhttp "SectorScope/pkg/http"
	xlogger "SectorScope/pkg/logger"
	"SectorScope/pkg/util"
)

// ViewsEchoHandler serves every analytics view as JSON or CSV.
type ViewsEchoHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.Pipeline
}

func NewViewsEchoHandler(logger *xlogger.Logger, pipeline *usecase.Pipeline) *ViewsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ViewsEchoHandler{logger: logger, pipeline: pipeline}
}

func (h *ViewsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/holdings", h.Holdings)
	g.GET("/returns", h.Returns)
	g.GET("/breadth", h.Breadth)
	g.GET("/performance", h.Performance)
	g.GET("/seasonality", h.Seasonality)
	g.GET("/similarity", h.Similarity)
	g.GET("/factors", h.Factors)
	g.GET("/dominance", h.Dominance)
	g.GET("/complacency", h.Complacency)
	g.GET("/rotation", h.Rotation)
	g.GET("/moves", h.Moves)
	g.GET("/overlay", h.Overlay)
}

func (h *ViewsEchoHandler) Holdings(c echo.Context) error {
	req := &models.HoldingsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rep, err := h.pipeline.Holdings(c.Request().Context(), req.ETF)
	return respond(h, c, usecase.ViewHoldings, req.Format, rep, err)
}

func (h *ViewsEchoHandler) Returns(c echo.Context) error {
	req := &models.ReturnsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	retry, err := fetcher.ParseRetryPolicy(req.MaxRetries, req.Backoff)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	rep, err := h.pipeline.Returns(c.Request().Context(), usecase.ReturnsInput{
		ETF:       req.ETF,
		Symbols:   util.ParseSymbols(req.Tickers),
		Benchmark: req.Benchmark,
		Retry:     retry,
	})
	return respond(h, c, usecase.ViewReturns, req.Format, rep, err)
}

func (h *ViewsEchoHandler) Breadth(c echo.Context) error {
	req := &models.BreadthRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	retry, err := fetcher.ParseRetryPolicy(req.MaxRetries, req.Backoff)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	rep, err := h.pipeline.Breadth(c.Request().Context(), usecase.BreadthInput{
		ETF:     req.ETF,
		Symbols: util.ParseSymbols(req.Tickers),
		Start:   util.ParseTimeDefault(req.Start, time.Time{}),
		Retry:   retry,
	})
	return respond(h, c, usecase.ViewBreadth, req.Format, rep, err)
}

func (h *ViewsEchoHandler) Performance(c echo.Context) error {
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	retry, err := fetcher.ParseRetryPolicy(req.MaxRetries, req.Backoff)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	rep, err := h.pipeline.Performance(c.Request().Context(), usecase.PerformanceInput{
		ETF:     req.ETF,
		Symbols: util.ParseSymbols(req.Tickers),
		Retry:   retry,
	})
	return respond(h, c, usecase.ViewPerformance, req.Format, rep, err)
}

func (h *ViewsEchoHandler) Seasonality(c echo.Context) error {
	req := &models.SeasonalityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rep, err := h.pipeline.Seasonality(c.Request().Context(), usecase.SeasonalityInput{Symbol: req.Ticker})
	return respond(h, c, usecase.ViewSeasonality, req.Format, rep, err)
}

func (h *ViewsEchoHandler) Similarity(c echo.Context) error {
	req := &models.SimilarityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rep, err := h.pipeline.Similarity(c.Request().Context(), usecase.SimilarityInput{
		Target:   req.Target,
		Market:   req.Market,
		ETF:      req.ETF,
		Symbols:  util.ParseSymbols(req.Tickers),
		Window:   req.Window,
		Lookback: req.Lookback,
		Limit:    req.Limit,
	})
	return respond(h, c, usecase.ViewSimilarity, req.Format, rep, err)
}

func (h *ViewsEchoHandler) Factors(c echo.Context) error {
	req := &models.FactorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rep, err := h.pipeline.Factors(c.Request().Context(), usecase.FactorInput{
		Symbol:   req.Ticker,
		Factors:  util.ParseSymbols(req.Factors),
		Window:   req.Window,
		Lookback: req.Lookback,
	})
	return respond(h, c, usecase.ViewFactors, req.Format, rep, err)
}

func (h *ViewsEchoHandler) Dominance(c echo.Context) error {
	req := &models.DominanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rep, err := h.pipeline.Dominance(c.Request().Context(), usecase.DominanceInput{
		ETF:      req.ETF,
		Symbols:  util.ParseSymbols(req.Tickers),
		Lookback: req.Lookback,
		Top:      req.Top,
	})
	return respond(h, c, usecase.ViewDominance, req.Format, rep, err)
}

func (h *ViewsEchoHandler) Complacency(c echo.Context) error {
	req := &models.ComplacencyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rep, err := h.pipeline.Complacency(c.Request().Context(), usecase.ComplacencyInput{
		Start:      util.ParseTimeDefault(req.Start, time.Time{}),
		Window:     req.Window,
		Multiplier: req.Multiplier,
	})
	return respond(h, c, usecase.ViewComplacency, req.Format, rep, err)
}

func (h *ViewsEchoHandler) Rotation(c echo.Context) error {
	req := &models.RotationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rep, err := h.pipeline.Rotation(c.Request().Context(), usecase.RotationInput{
		MomentumDays: req.Momentum,
		StrengthDays: req.Strength,
		HistoryDays:  req.History,
	})
	return respond(h, c, usecase.ViewRotation, req.Format, rep, err)
}

func (h *ViewsEchoHandler) Moves(c echo.Context) error {
	req := &models.MovesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rep, err := h.pipeline.Moves(c.Request().Context(), usecase.MovesInput{
		Symbol: req.Ticker,
		N:      req.N,
		Losses: req.Losses,
		Start:  util.ParseTimeDefault(req.Start, time.Time{}),
	})
	return respond(h, c, usecase.ViewMoves, req.Format, rep, err)
}

func (h *ViewsEchoHandler) Overlay(c echo.Context) error {
	req := &models.OverlayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rep, err := h.pipeline.Overlay(c.Request().Context(), usecase.OverlayInput{
		Symbol:    req.Ticker,
		Window:    req.Window,
		Threshold: req.Threshold,
		Limit:     req.Limit,
	})
	return respond(h, c, usecase.ViewOverlay, req.Format, rep, err)
}

// respond renders rep as JSON, or as a CSV attachment of its table when
// format is csv.
func respond[T models.Tabular](h *ViewsEchoHandler, c echo.Context, view, format string, rep *models.Report[T], err error) error {
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status >= 500 {
			h.logger.Error("view usecase error", xlogger.String("view", view), xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	if format != "csv" {
		return xhttp.SuccessResponse(c, rep)
	}
	c.Response().Header().Set(xhttp.HeaderRunID, rep.RunID)
	filename := fmt.Sprintf("%s_%s.csv", view, rep.GeneratedAt.Format(util.DateLayout))
	return xhttp.CSVResponse(c, filename, func(w io.Writer) error {
		return export.WriteCSV(w, rep.Data)
	})
}

// toAppError maps pipeline errors onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, context.Canceled):
		return xhttp.ClientClosedError().WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.TimeoutError("view timed out").WithError(err)
	case domain.IsValidation(err):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case domain.IsStructural(err):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, domain.ErrNoData):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("failed to compute view").WithError(err)
	}
}
