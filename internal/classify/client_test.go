package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"empath/pkg/emotion"
)

func serviceReply(dominant string, scores map[string]float64) Result {
	var r Result
	r.DominantEmotion = dominant
	for label, score := range scores {
		r.Emotions = append(r.Emotions, Score{Label: label, Score: score})
	}
	return r
}

func TestDetectText(t *testing.T) {
	var gotBody struct {
		Text string `json:"text"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(serviceReply("happy", map[string]float64{"happy": 0.81, "sad": 0.1}))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	res, err := c.DetectText(context.Background(), "what a great day")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if gotBody.Text != "what a great day" {
		t.Fatalf("sent text=%q", gotBody.Text)
	}
	if res.DominantEmotion != "happy" {
		t.Fatalf("dominant=%q", res.DominantEmotion)
	}

	p := res.Prediction("voice", "transcript")
	if p == nil || p.Label != emotion.Happy || p.Confidence != 0.81 {
		t.Fatalf("prediction=%+v", p)
	}
	if p.Source != "voice" || p.Model != "transcript" {
		t.Fatalf("prediction=%+v", p)
	}
}

func TestClassifyImageMultipart(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/classify" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("content-type=%s", r.Header.Get("Content-Type"))
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			buf := make([]byte, len(payload)+1)
			n, _ := file.Read(buf)
			if n != len(payload) {
				t.Errorf("file size=%d", n)
			}
			file.Close()
		}
		json.NewEncoder(w).Encode(serviceReply("surprise", map[string]float64{"surprise": 0.77}))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	res, err := c.ClassifyImage(context.Background(), payload)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.DominantEmotion != "surprise" {
		t.Fatalf("dominant=%q", res.DominantEmotion)
	}
}

func TestErrorStatusIsSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.DetectText(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	} else if !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("err=%v", err)
	}
}

func TestPredictionRejectsUnknownLabel(t *testing.T) {
	r := serviceReply("confused", map[string]float64{"confused": 0.9})
	if p := r.Prediction("voice", "transcript"); p != nil {
		t.Fatalf("expected nil, got %+v", p)
	}
}
