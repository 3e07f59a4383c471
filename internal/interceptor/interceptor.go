package interceptor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"mcw-proxy/internal/decode"
	"mcw-proxy/internal/metrics"
	"mcw-proxy/internal/model"
	"mcw-proxy/internal/transform"
)

// Outcome labels recorded for every terminal write.
const (
	OutcomeTransformed    = "transformed"
	OutcomePassthrough    = "passthrough"
	OutcomeDecodeFallback = "decode_fallback"
	OutcomeParseFallback  = "parse_fallback"
	OutcomeUpstreamError  = "upstream_error"
)

// maxLoggedBody caps the body text written to debug logs.
const maxLoggedBody = 4096

// Interceptor buffers, decodes and optionally rewrites upstream responses.
type Interceptor struct {
	rules   transform.Table
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates an Interceptor. The metrics parameter is optional.
func New(rules transform.Table, logger *slog.Logger, m *metrics.Metrics) *Interceptor {
	return &Interceptor{
		rules:   rules,
		logger:  logger.With("component", "interceptor"),
		metrics: m,
	}
}

// Handle consumes resp and writes the terminal response for req to w,
// unless ex has already been sealed by another path.
func (i *Interceptor) Handle(w http.ResponseWriter, req *model.InboundRequest, resp *model.ProxyResponse, ex *Exchange) {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		i.Fail(w, req, ex, fmt.Errorf("read upstream body: %w", err))
		return
	}
	if !ex.advance(Buffering, Decoding) {
		i.dropped(req, ex)
		return
	}

	encoding := strings.Join(resp.Header.Values("Content-Encoding"), ",")
	body, err := decode.DecodeHeader(raw, encoding)
	if err != nil {
		i.logger.Warn("decode upstream body, sending raw bytes",
			"err", err,
			"path", req.Path,
			"content_encoding", encoding,
		)
		i.send(w, req, ex, resp.StatusCode, resp.Header, raw, OutcomeDecodeFallback)
		return
	}

	i.logResponse(req, resp, body)

	rule, ok := i.rules.Lookup(req.Path)
	if !ok {
		i.send(w, req, ex, resp.StatusCode, resp.Header, raw, OutcomePassthrough)
		return
	}
	if !ex.advance(Decoding, Transforming) {
		i.dropped(req, ex)
		return
	}

	out, err := apply(rule, body)
	if err != nil {
		i.logger.Warn("transform skipped, sending decoded body",
			"err", err,
			"path", req.Path,
		)
		header := rewriteHeader(resp.Header, "", len(body))
		i.send(w, req, ex, resp.StatusCode, header, body, OutcomeParseFallback)
		return
	}

	header := rewriteHeader(resp.Header, "application/json", len(out))
	i.send(w, req, ex, resp.StatusCode, header, out, OutcomeTransformed)
}

// Fail reports an upstream transport error. The client receives a 500 only if
// nothing has been sent yet; otherwise the error is logged and dropped.
func (i *Interceptor) Fail(w http.ResponseWriter, req *model.InboundRequest, ex *Exchange, err error) {
	if !ex.Seal() {
		i.logger.Warn("upstream error after response was sent",
			"err", err,
			"path", req.Path,
		)
		return
	}

	i.logger.Error("proxy error",
		"err", err,
		"path", req.Path,
	)

	body, _ := json.Marshal(map[string]string{"error": upstreamErrorMessage(err)})
	header := w.Header()
	header.Set("Content-Type", "application/json")
	header.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusInternalServerError)
	if _, werr := w.Write(body); werr != nil {
		i.logger.Warn("write error response", "err", werr, "path", req.Path)
	}
	i.observe(OutcomeUpstreamError)
}

func apply(rule transform.Rule, body []byte) ([]byte, error) {
	v, err := transform.Parse(body)
	if err != nil {
		return nil, err
	}
	return rule(v).MarshalJSON()
}

func (i *Interceptor) send(w http.ResponseWriter, req *model.InboundRequest, ex *Exchange, status int, header http.Header, body []byte, outcome string) {
	if !ex.Seal() {
		i.dropped(req, ex)
		return
	}

	dst := w.Header()
	for k, vals := range header {
		dst[k] = append([]string(nil), vals...)
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		i.logger.Warn("write response", "err", err, "path", req.Path)
	}
	i.observe(outcome)
}

func (i *Interceptor) dropped(req *model.InboundRequest, ex *Exchange) {
	i.logger.Debug("response already claimed, skipping write",
		"path", req.Path,
		"state", ex.State().String(),
	)
}

func (i *Interceptor) observe(outcome string) {
	if i.metrics != nil {
		i.metrics.InterceptorOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (i *Interceptor) logResponse(req *model.InboundRequest, resp *model.ProxyResponse, body []byte) {
	i.logger.Info("upstream response",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"size", humanize.Bytes(uint64(len(body))),
	)
	if !i.logger.Enabled(req.Ctx, slog.LevelDebug) {
		return
	}
	i.logger.Debug("upstream response body",
		"path", req.Path,
		"content_type", resp.Header.Get("Content-Type"),
		"body", loggableBody(body),
	)
}

// rewriteHeader copies h for a body that no longer matches the upstream
// encoding. An empty contentType keeps the upstream value.
func rewriteHeader(h http.Header, contentType string, length int) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}
	out.Del("Content-Encoding")
	out.Set("Content-Length", strconv.Itoa(length))
	if contentType != "" {
		out.Set("Content-Type", contentType)
	}
	return out
}

func loggableBody(body []byte) string {
	if !json.Valid(body) {
		return fmt.Sprintf("<%s non-JSON>", humanize.Bytes(uint64(len(body))))
	}
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "...(truncated)"
	}
	return string(body)
}

func upstreamErrorMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "upstream request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "client disconnected"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "upstream host unreachable"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "upstream connection failed"
	}

	return "upstream request failed"
}
