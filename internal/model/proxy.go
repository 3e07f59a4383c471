// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
	"time"
)

// InboundRequest is a client request whose body has been fully read.
// It is not modified after construction.
type InboundRequest struct {
	Ctx        context.Context
	Method     string
	Path       string
	RawQuery   string
	Header     http.Header
	Body       []byte
	ReceivedAt time.Time
}

// ProxyResponse represents the upstream response before interception.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
