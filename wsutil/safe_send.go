package wsutil

import (
	"encoding/json"
	"log/slog"
)

// SafeSend sends data to a channel without panicking if the channel is closed.
// If the channel is full or closed, the send is skipped and SafeSend reports false.
func SafeSend(ch chan []byte, data []byte) (sent bool) {
	if ch == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("send on closed channel", "tag", "wsutil", "err", r)
			sent = false
		}
	}()
	select {
	case ch <- data:
		return true
	default:
		slog.Warn("send buffer full, dropping message", "tag", "wsutil")
		return false
	}
}

// SendJSON marshals v and sends it with SafeSend.
func SendJSON(ch chan []byte, v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshaling message", "tag", "wsutil", "err", err)
		return false
	}
	return SafeSend(ch, data)
}
