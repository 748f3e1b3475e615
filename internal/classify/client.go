// Package classify talks to an external emotion-classification service. The
// service is an opaque function: an image or a text snippet goes in, a label
// and confidence come out.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"empath/pkg/emotion"
)

type Score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Result struct {
	Emotions        []Score `json:"emotions"`
	DominantEmotion string  `json:"dominant_emotion"`
}

// Prediction converts a service result into the shared prediction shape.
// Returns nil when the result names no usable label.
func (r *Result) Prediction(source, model string) *emotion.Prediction {
	label := emotion.Label(r.DominantEmotion)
	conf := 0.0
	for _, e := range r.Emotions {
		if e.Label == r.DominantEmotion {
			conf = e.Score
		}
	}
	if !emotion.Valid(label) {
		return nil
	}
	return &emotion.Prediction{
		Label:      label,
		Confidence: conf,
		Source:     source,
		Model:      model,
	}
}

type Client struct {
	base string
	c    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		base: baseURL,
		c:    &http.Client{Timeout: 30 * time.Second},
	}
}

// DetectText posts a transcript to /detect and decodes the scored labels.
func (c *Client) DetectText(ctx context.Context, text string) (*Result, error) {
	body, _ := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "detect")
}

// ClassifyImage uploads an encoded face crop to /classify as a multipart
// form and decodes the scored labels.
func (c *Client) ClassifyImage(ctx context.Context, jpeg []byte) (*Result, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", "face.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(jpeg); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/classify", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.do(req, "classify")
}

func (c *Client) do(req *http.Request, op string) (*Result, error) {
	resp, err := c.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s %s: %s", op, resp.Status, string(body))
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s decode: %w", op, err)
	}
	return &out, nil
}
