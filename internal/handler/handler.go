package handler

import (
	"net/http"
	"time"

	"github.com/JaePyJs/CLMS-sub014/internal/broadcast"
	"github.com/JaePyJs/CLMS-sub014/internal/errs"
	"github.com/JaePyJs/CLMS-sub014/internal/model"
	"github.com/JaePyJs/CLMS-sub014/pkg/validate"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Handler struct {
	circulationSvc CirculationService
	events         *broadcast.Broadcaster
	log            *zap.Logger
}

func New(circulationSvc CirculationService, events *broadcast.Broadcaster, log *zap.Logger) *Handler {
	return &Handler{
		circulationSvc: circulationSvc,
		events:         events,
		log:            log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", newRateLimiterMW(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(requestLoggerConfig(h.log)),
		middleware.RequestID(),
		newRateLimiterMW(apiRPS),
	)

	api.POST("/checkouts", h.Checkout)
	api.GET("/checkouts", h.ListByPatron)
	api.GET("/checkouts/overdue", h.ListOverdue)
	api.POST("/checkouts/:sessionUid/return", h.Return)
	api.POST("/checkouts/:sessionUid/cancel", h.Cancel)
	api.GET("/resources", h.ListResources)
	api.GET("/events/stream", h.Stream)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) Checkout(c echo.Context) error {
	var req model.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	rec, err := h.circulationSvc.Checkout(ctx, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Return(c echo.Context) error {
	sessionUID := c.Param("sessionUid")
	if sessionUID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionUid is empty")
	}
	var req model.ReturnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	returnTime := time.Now().UTC()
	if req.ReturnTime != nil {
		returnTime = req.ReturnTime.UTC()
	}

	ctx := c.Request().Context()
	rec, err := h.circulationSvc.Return(ctx, sessionUID, returnTime)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Cancel(c echo.Context) error {
	sessionUID := c.Param("sessionUid")
	if sessionUID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionUid is empty")
	}
	var req model.CancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	rec, err := h.circulationSvc.Cancel(ctx, sessionUID, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListOverdue(c echo.Context) error {
	ctx := c.Request().Context()
	recs, err := h.circulationSvc.ListOverdue(ctx)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) ListByPatron(c echo.Context) error {
	patronID := c.QueryParam("patronId")
	if patronID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patronId is empty")
	}
	ctx := c.Request().Context()
	recs, err := h.circulationSvc.ListByPatron(ctx, patronID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) ListResources(c echo.Context) error {
	ctx := c.Request().Context()
	res, err := h.circulationSvc.ListResources(ctx)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func httpError(err error) *echo.HTTPError {
	var pv *errs.PolicyViolationError
	switch {
	case errors.As(err, &pv):
		return echo.NewHTTPError(http.StatusForbidden, pv.Error())
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, errs.ErrNotFound.Error())
	case errors.Is(err, errs.ErrResourceUnavailable):
		return echo.NewHTTPError(http.StatusConflict, errs.ErrResourceUnavailable.Error())
	case errors.Is(err, errs.ErrAlreadyCheckedOut):
		return echo.NewHTTPError(http.StatusConflict, errs.ErrAlreadyCheckedOut.Error())
	case errors.Is(err, errs.ErrAlreadyClosed):
		return echo.NewHTTPError(http.StatusConflict, errs.ErrAlreadyClosed.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
