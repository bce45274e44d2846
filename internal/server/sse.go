package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hyperjump/tayyib/internal/models"
)

// setSSEHeaders prepares w for an event stream. Proxies must not buffer it.
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// writeEvent writes a token or meta event in SSE framing.
func writeEvent(w io.Writer, ev models.StreamEvent) error {
	switch ev.Type {
	case models.EventToken:
		return writeSSE(w, string(models.EventToken), ev.Text)
	case models.EventMeta:
		data, err := json.Marshal(ev.Meta)
		if err != nil {
			return fmt.Errorf("failed to encode meta: %w", err)
		}
		return writeSSE(w, string(models.EventMeta), string(data))
	}
	return fmt.Errorf("unknown stream event type %q", ev.Type)
}

// writeSSE writes one event. Each line of data gets its own data: field so clients
// rejoin multi-line text with newlines.
func writeSSE(w io.Writer, event, data string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
