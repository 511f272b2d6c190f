package wsutil

import (
	"encoding/json"
	"testing"
)

func TestSafeSend(t *testing.T) {
	ch := make(chan []byte, 1)
	if !SafeSend(ch, []byte("a")) {
		t.Fatal("expected send to succeed")
	}
	if SafeSend(ch, []byte("b")) {
		t.Error("expected send to full channel to be skipped")
	}
	<-ch
	close(ch)
	if SafeSend(ch, []byte("c")) {
		t.Error("expected send to closed channel to be skipped")
	}
	if SafeSend(nil, []byte("d")) {
		t.Error("expected send to nil channel to be skipped")
	}
}

func TestSendJSON(t *testing.T) {
	ch := make(chan []byte, 1)
	if !SendJSON(ch, map[string]string{"type": "error"}) {
		t.Fatal("expected send to succeed")
	}
	var m map[string]string
	if err := json.Unmarshal(<-ch, &m); err != nil {
		t.Fatal(err)
	}
	if m["type"] != "error" {
		t.Errorf("unexpected payload %v", m)
	}
	if SendJSON(ch, func() {}) {
		t.Error("unmarshalable value should not be sent")
	}
}
