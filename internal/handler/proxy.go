package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"mcw-proxy/internal/interceptor"
	"mcw-proxy/internal/model"
	"mcw-proxy/internal/service"
)

// ProxyHandler forwards allowlisted requests upstream and hands the
// response to the interceptor.
type ProxyHandler struct {
	service     *service.ProxyService
	interceptor *interceptor.Interceptor
	logger      *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, ic *interceptor.Interceptor, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service:     svc,
		interceptor: ic,
		logger:      logger.With("component", "proxy_handler"),
	}
}

// Handle buffers the request body, forwards the request and writes exactly
// one response through the interceptor. It only returns an error when the
// inbound body cannot be read, before anything was sent upstream.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return fail(http.StatusBadRequest, "Failed to read request body", err)
	}

	in := &model.InboundRequest{
		Ctx:        req.Context(),
		Method:     req.Method,
		Path:       req.URL.Path,
		RawQuery:   req.URL.RawQuery,
		Header:     req.Header,
		Body:       body,
		ReceivedAt: time.Now(),
	}
	ex := interceptor.NewExchange()

	resp, err := h.service.Forward(in)
	if err != nil {
		h.interceptor.Fail(c.Response(), in, ex, err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	h.interceptor.Handle(c.Response(), in, resp, ex)
	return nil
}
