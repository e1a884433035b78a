package analyses

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"prism-backend/internal/pipeline"
	"prism-backend/internal/shared/server/middleware"
	"prism-backend/internal/shared/telemetry"
)

// DefaultHeartbeat is the interval of the SSE keepalive comment.
const DefaultHeartbeat = 15 * time.Second

const msgTimedOut = "処理がタイムアウトしました。しばらくしてから再度お試しください。"

// streamEvents writes events as server-sent events until the channel closes.
// A stream that closes without a terminal event while the client is still
// connected gets a synthetic error event so the client never waits forever.
func streamEvents(c *gin.Context, events <-chan pipeline.Event, heartbeat time.Duration) {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	w := c.Writer
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	reqID := middleware.RequestIDFromContext(c)
	terminal := false
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if !terminal && c.Request.Context().Err() == nil {
					writeEvent(w, pipeline.ErrorEvent{Message: msgTimedOut}, reqID)
				}
				return
			}
			if r, ok := ev.(pipeline.ResultEvent); ok && r.RunID != "" {
				c.Set(middleware.RunIDKey, r.RunID)
			}
			terminal = terminal || ev.Terminal()
			writeEvent(w, ev, reqID)
		case <-ticker.C:
			io.WriteString(w, ": ping\n\n")
			w.Flush()
		}
	}
}

func writeEvent(w gin.ResponseWriter, ev pipeline.Event, reqID string) {
	data, err := json.Marshal(ev)
	if err != nil {
		telemetry.Error("sse.encode_failed", map[string]any{"request_id": reqID, "kind": string(ev.Kind()), "error": err})
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	w.Flush()
}
