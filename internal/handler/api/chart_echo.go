package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	models "FxChart/internal/domain/models"
	domrepo "FxChart/internal/domain/repository"
	"FxChart/internal/service/ratelimit"
	"FxChart/internal/services/granularity"
	"FxChart/internal/usecase"
	xhttp "FxChart/pkg/http"
	xlogger "FxChart/pkg/logger"
	"FxChart/pkg/util"

	"github.com/labstack/echo/v4"
)

// LiveServer attaches a websocket connection to an instrument feed.
type LiveServer interface {
	Serve(w http.ResponseWriter, r *http.Request, instrument string) error
}

// ChartEchoHandler exposes granularity and candle endpoints.
type ChartEchoHandler struct {
	logger  *xlogger.Logger
	chart   *usecase.ChartUseCase
	live    LiveServer
	limiter *ratelimit.Limiter
}

// NewChartEchoHandler creates the handler. live and limiter may be nil.
func NewChartEchoHandler(logger *xlogger.Logger, chart *usecase.ChartUseCase, live LiveServer, limiter *ratelimit.Limiter) *ChartEchoHandler {
	return &ChartEchoHandler{logger: logger, chart: chart, live: live, limiter: limiter}
}

func (h *ChartEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	if h.limiter != nil {
		g.Use(h.limiter.Middleware())
	}
	g.GET("/granularities", h.Granularities)
	g.GET("/granularity", h.Granularity)
	g.GET("/datapoints", h.DataPoints)
	g.GET("/candles", h.Candles)

	if h.live != nil {
		e.GET("/ws/candles", h.Live)
	}
}

func (h *ChartEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ChartEchoHandler) Granularities(c echo.Context) error {
	gs := h.chart.Granularities()
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = g.String()
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, out)
}

func (h *ChartEchoHandler) Granularity(c echo.Context) error {
	req := &models.GranularityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, appErr := parseRange(req.From, req.To)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	rr, err := h.chart.ResolveRange(from, to, targetParam(c, req.Target))
	if err != nil {
		return xhttp.AppErrorResponse(c, h.toAppError(err))
	}
	return xhttp.SuccessResponse(c, &models.GranularityResponse{
		Granularity: rr.Granularity.String(),
		Points:      rr.Points,
		From:        rr.From,
		To:          rr.To,
	})
}

func (h *ChartEchoHandler) DataPoints(c echo.Context) error {
	req := &models.DataPointsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, appErr := parseRange(req.From, req.To)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	g, n, err := h.chart.DataPoints(from, to, req.Granularity)
	if err != nil {
		return xhttp.AppErrorResponse(c, h.toAppError(err))
	}
	return xhttp.SuccessResponse(c, &models.DataPointsResponse{Granularity: g.String(), Points: n})
}

func (h *ChartEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, appErr := parseRange(req.From, req.To)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	series, err := h.chart.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Instrument:  req.Instrument,
		From:        from,
		To:          to,
		Granularity: req.Granularity,
		Target:      targetParam(c, req.Target),
		Price:       req.Price,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrUpstream) {
			h.logger.Error("candles usecase error",
				xlogger.String("instrument", req.Instrument),
				xlogger.Error(err),
			)
		}
		return xhttp.AppErrorResponse(c, h.toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, series)
}

func (h *ChartEchoHandler) Live(c echo.Context) error {
	req := &models.LiveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !usecase.ValidInstrument(req.Instrument) {
		return xhttp.AppErrorResponse(c, h.toAppError(fmt.Errorf("%w: %q", usecase.ErrInvalidInstrument, req.Instrument)))
	}
	if err := h.live.Serve(c.Response(), c.Request(), req.Instrument); err != nil {
		// the upgrader has already answered the client
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
	}
	return nil
}

// targetParam returns nil unless the query names a target, so target=0 is
// validated like any other value.
func targetParam(c echo.Context, v int) *int {
	if !c.QueryParams().Has("target") {
		return nil
	}
	return &v
}

func parseRange(rawFrom, rawTo string) (time.Time, time.Time, *xhttp.AppError) {
	from, ok := util.ParseTime(rawFrom)
	if !ok {
		return time.Time{}, time.Time{}, xhttp.BadRequestError("ERR_INVALID_TIME", "from", "from must be RFC3339 or unix seconds")
	}
	to, ok := util.ParseTime(rawTo)
	if !ok {
		return time.Time{}, time.Time{}, xhttp.BadRequestError("ERR_INVALID_TIME", "to", "to must be RFC3339 or unix seconds")
	}
	return from, to, nil
}

func (h *ChartEchoHandler) toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, granularity.ErrInvalidRange):
		return xhttp.BadRequestError("ERR_INVALID_RANGE", "to", "from must be before to").WithError(err)
	case errors.Is(err, granularity.ErrInvalidTarget):
		return xhttp.BadRequestError("ERR_INVALID_TARGET", "target",
			fmt.Sprintf("target must be between %d and %d", granularity.MinTargetPoints, granularity.MaxTargetPoints)).
			WithParam("min", granularity.MinTargetPoints).
			WithParam("max", granularity.MaxTargetPoints).
			WithError(err)
	case errors.Is(err, granularity.ErrUnknownGranularity):
		return xhttp.BadRequestError("ERR_UNKNOWN_GRANULARITY", "granularity",
			"granularity must be one of: "+joinGranularities(h.chart.Granularities())).
			WithError(err)
	case errors.Is(err, usecase.ErrInvalidInstrument):
		return xhttp.BadRequestError("ERR_INVALID_INSTRUMENT", "instrument", "instrument must look like EUR_USD").WithError(err)
	case errors.Is(err, usecase.ErrInvalidPrice):
		return xhttp.BadRequestError("ERR_INVALID_PRICE", "price", "price must be one of: M, B, A").WithError(err)
	case errors.Is(err, usecase.ErrUpstream):
		return xhttp.BadGatewayError("ERR_UPSTREAM", "market data provider unavailable").WithError(err)
	default:
		h.logger.Error("unexpected chart error", xlogger.Error(err))
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

func joinGranularities(gs []domrepo.Granularity) string {
	s := make([]string, len(gs))
	for i, g := range gs {
		s[i] = g.String()
	}
	return strings.Join(s, ", ")
}
