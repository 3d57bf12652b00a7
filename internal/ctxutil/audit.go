package ctxutil

// AuditMeta carries the request metadata needed to build an AuditLogEntry.
// It lives in ctxutil so both server and mcp packages can populate it
// without circular imports.
type AuditMeta struct {
	RequestID  string
	Actor      string
	HTTPMethod string
	Endpoint   string
}
