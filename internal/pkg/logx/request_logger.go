/*
Package logx provides a structured logging wrapper based on zerolog.

This file contains the HTTP request logging middleware. Plain API requests are logged
on completion with their status and latency. Websocket upgrades stay open for the
whole chat session, so they are logged when the session ends with its duration.
Client addresses are anonymized before they reach the log.
*/
package logx

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

var (
	ipv4KeepMask = net.CIDRMask(24, 32)
	ipv6KeepMask = net.CIDRMask(64, 128)
)

// anonymizeIP zeros the last IPv4 octet or keeps only the /64 prefix of an IPv6 address.
func anonymizeIP(ipStr string) string {
	if host, _, err := net.SplitHostPort(ipStr); err == nil {
		ipStr = host
	}

	ip := net.ParseIP(ipStr)
	switch {
	case ip == nil:
		return "unknown_ip"
	case ip.IsLoopback():
		return "127.0.0.1"
	case ip.To4() != nil:
		return ip.To4().Mask(ipv4KeepMask).String()
	default:
		return ip.Mask(ipv6KeepMask).String()
	}
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// levelFor picks the event level for a finished request.
func levelFor(logger *zerolog.Logger, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return logger.Error()
	case status >= 400:
		return logger.Warn()
	default:
		return logger.Info()
	}
}

// RequestLogger returns an HTTP middleware that logs each request once it is done.
// The request-scoped logger is stored in the request context for handlers to reuse.
func RequestLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			logger := Logger().With().
				Str("component", "http").
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("remote_ip", anonymizeIP(r.RemoteAddr)).
				Str("request_method", r.Method).
				Str("request_uri", r.URL.Path).
				Logger()

			r = r.WithContext(logger.WithContext(r.Context()))

			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			if isWebSocketUpgrade(r) {
				logger.Info().
					Dur("session", elapsed).
					Msg("Websocket session ended")
				return
			}

			status := ww.Status()
			levelFor(&logger, status).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", elapsed).
				Msg("Request completed")
		})
	}
}
