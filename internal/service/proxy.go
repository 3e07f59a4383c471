// Package service implements the core proxy forwarding logic.
package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"

	"mcw-proxy/internal/client"
	"mcw-proxy/internal/config"
	"mcw-proxy/internal/model"
)

// Allowlist is the set of upstream API paths the proxy forwards. Membership
// is exact string equality.
var Allowlist = newPathSet(
	"/api/bd/v2_1/report/generateSettledBetsSummary",
	"/api/bd/v2_1/setting/getCustomerService",
	"/api/bd/v2_1/setting/getRegisterSetting",
	"/api/bd/v2_1/provider/getFavouriteGames",
	"/api/bd/v2_1/provider/setFavoriteByGameId",
	"/api/bd/v2_1/provider/getGameListByCategory",
	"/api/bd/v2_1/provider/getGameUrl",
	"/api/bd/v2_1/user/deleteInbox",
	"/api/bd/v2_1/user/getCaptchaCode",
	"/api/bd/v2_1/user/getInboxFromDC",
	"/api/bd/v2_1/user/getPlayerInfo",
	"/api/bd/v2_1/user/getProfile",
	"/api/bd/v2_1/user/forgotPassword",
	"/api/bd/v2_1/user/getVerifyCodeByContactType",
	"/api/bd/v2_1/user/login",
	"/api/bd/v2_1/user/register",
	"/api/bd/v2_1/user/readInbox",
	"/api/bd/v2_1/user/refreshToken",
	"/api/bd/v2_1/user/verifyContact",
	"/api/bd/v2_1/user/changePassword",
	"/api/bd/v2_1/provider/getCategoriesByGroup",
	"/api/bd/v2_1/provider/getVendors",
	"/api/bd/v2_1/user/getBalance",
	"/api/bd/v2_1/report/generateSettledBetsDetail",
	"/api/bd/v2_1/report/generateUnsettledBetsDetail",
	"/api/bd/v2_1/message/getMessageByTypes",
	"/api/bd/v2_1/message/getFeaturedGames",
)

// PathSet is an immutable set of exact request paths.
type PathSet map[string]struct{}

func newPathSet(paths ...string) PathSet {
	s := make(PathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Contains reports whether path is in the set.
func (s PathSet) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

// hopByHopHeaders are connection-scoped and never forwarded in either direction.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// maxLoggedBody caps how much of a request body is written to the log.
const maxLoggedBody = 4096

// ProxyService handles the forwarding logic for proxy requests.
type ProxyService struct {
	client  *client.UpstreamClient
	logger  *slog.Logger
	baseURL *url.URL
}

// NewProxyService creates a ProxyService for the configured upstream target.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	u, err := url.Parse(cfg.Upstream.Target)
	if err != nil {
		return nil, fmt.Errorf("parse upstream target: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("upstream target %q must be http or https", cfg.Upstream.Target)
	}

	return &ProxyService{
		client:  c,
		logger:  logger.With("component", "proxy_service"),
		baseURL: u,
	}, nil
}

// Forward replays a fully read inbound request against the upstream target
// and returns the response. The caller is responsible for closing the
// response body. Transport errors are returned unchanged for the caller to
// report.
func (s *ProxyService) Forward(in *model.InboundRequest) (*model.ProxyResponse, error) {
	upstreamURL := s.buildUpstreamURL(in.Path, in.RawQuery)
	header := filterRequestHeaders(in.Header)

	s.logRequest(in)

	resp, err := s.client.DoStream(in.Ctx, in.Method, upstreamURL, header, bytes.NewReader(in.Body))
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	resp.Header = filterResponseHeaders(resp.Header)
	return resp, nil
}

func (s *ProxyService) buildUpstreamURL(path, rawQuery string) string {
	u := *s.baseURL
	u.Path = strings.TrimSuffix(s.baseURL.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = rawQuery
	return u.String()
}

func (s *ProxyService) logRequest(in *model.InboundRequest) {
	s.logger.Info("forwarding request",
		"method", in.Method,
		"path", in.Path,
		"size", humanize.Bytes(uint64(len(in.Body))),
	)
	if !s.logger.Enabled(in.Ctx, slog.LevelDebug) {
		return
	}
	s.logger.Debug("request detail",
		"path", in.Path,
		"headers", redactHeaders(in.Header),
		"body", requestBody(in.Body),
	)
}

// requestBody renders a body for the log: compact JSON when it parses,
// otherwise the raw text.
func requestBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err == nil {
		body = buf.Bytes()
	}
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "...(truncated)"
	}
	return string(body)
}

// redactHeaders returns a copy of h safe for logs.
func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vals := range h {
		switch http.CanonicalHeaderKey(k) {
		case "Authorization", "Cookie", "Proxy-Authorization":
			out[k] = "[REDACTED]"
		default:
			out[k] = strings.Join(vals, ", ")
		}
	}
	return out
}

// filterRequestHeaders copies src without hop-by-hop headers and without
// Host, so the upstream sees its own host name.
func filterRequestHeaders(src http.Header) http.Header {
	dst := stripHopByHop(src)
	dst.Del("Host")
	return dst
}

func filterResponseHeaders(src http.Header) http.Header {
	return stripHopByHop(src)
}

func stripHopByHop(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	// Headers named in Connection are hop-by-hop too.
	for _, v := range src.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				dst.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		dst.Del(name)
	}
	return dst
}
