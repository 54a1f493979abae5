package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared structured logger used across the service.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// Fields is a free-form set of structured log attributes.
type Fields map[string]any

// RequestContext carries the per-request attributes every log line should
// include: the session id, the caller's role, and the client address.
type RequestContext struct {
	SessionID string
	UserRole  string
	IPAddress string
}

// Log emits one JSON object per line with the request context merged in.
func Log(level, msg string, rc RequestContext, fields Fields) {
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": level,
		"msg":   msg,
	}
	if rc.SessionID != "" {
		entry["session_id"] = rc.SessionID
	}
	if rc.UserRole != "" {
		entry["user_role"] = rc.UserRole
	}
	if rc.IPAddress != "" {
		entry["ip_address"] = rc.IPAddress
	}
	for k, v := range fields {
		entry[k] = v
	}
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"ts":"error","level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}

// Info logs at info level.
func Info(msg string, rc RequestContext, fields Fields) { Log("info", msg, rc, fields) }

// Warn logs at warn level.
func Warn(msg string, rc RequestContext, fields Fields) { Log("warn", msg, rc, fields) }

// Error logs at error level.
func Error(msg string, rc RequestContext, fields Fields) { Log("error", msg, rc, fields) }
