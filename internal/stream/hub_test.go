package stream

import (
	"encoding/json"
	"image"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"

	"empath/pkg/emotion"
)

func dialHub(t *testing.T, srv *httptest.Server) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitSubscribers(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for h.Subscribers() < n {
		select {
		case <-deadline:
			t.Fatalf("subscribers=%d want %d", h.Subscribers(), n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHubDeliversEvents(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()
	waitSubscribers(t, h, 1)

	sent := Event{
		Time: time.Now(),
		Fused: &Detection{
			Emotion:    emotion.Happy,
			Confidence: 0.8,
			Source:     "agreement",
		},
	}
	h.Publish(sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Fused == nil || got.Fused.Emotion != emotion.Happy || got.Fused.Source != "agreement" {
		t.Fatalf("event=%+v", got)
	}
	if got.Face != nil || got.Voice != nil {
		t.Fatalf("unexpected detections: %+v", got)
	}
}

func TestHubDropsClosedSubscriber(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialHub(t, srv)
	waitSubscribers(t, h, 1)
	conn.Close()

	deadline := time.After(2 * time.Second)
	for h.Subscribers() != 0 {
		select {
		case <-deadline:
			t.Fatalf("subscriber not dropped")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestFromPrediction(t *testing.T) {
	if FromPrediction(nil) != nil {
		t.Fatal("nil prediction should map to nil")
	}

	p := &emotion.Prediction{
		Label:      emotion.Surprise,
		Confidence: 0.7,
		Source:     "face",
		Model:      "cnn",
		Box:        image.Rect(10, 20, 110, 140),
	}
	d := FromPrediction(p)
	if d.Emotion != emotion.Surprise || d.X != 10 || d.Y != 20 || d.W != 100 || d.H != 120 {
		t.Fatalf("detection=%+v", d)
	}
}
