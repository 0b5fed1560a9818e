package shared

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// Auditor records an audit event. *audit.Service satisfies it.
type Auditor interface {
	Record(ctx context.Context, tenantID, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

// RecordAudit writes an audit event and logs, rather than returns, a failure.
func RecordAudit(ctx context.Context, a Auditor, tenantID, actorID, action, entityType, entityID, requestID, ip string, before, after any) {
	if a == nil {
		return
	}
	if err := a.Record(ctx, tenantID, actorID, action, entityType, entityID, requestID, ip, before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}

// ClientIP prefers the first X-Forwarded-For hop over the socket address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
