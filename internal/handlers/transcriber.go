package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrTranscriberDisabled = errors.New("transcription service is not configured")

// Transcriber генерирует расшифровку видео по его URL
type Transcriber interface {
	Transcribe(ctx context.Context, videoURL string) (string, error)
}

// HTTPTranscriber ходит во внешний сервис: POST {base}/transcribe {"video_url"} -> {"transcript"}
type HTTPTranscriber struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPTranscriber(baseURL string) *HTTPTranscriber {
	return &HTTPTranscriber{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

type transcribeReq struct {
	VideoURL string `json:"video_url"`
}

type transcribeResp struct {
	Transcript string `json:"transcript"`
	Error      string `json:"error,omitempty"`
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, videoURL string) (string, error) {
	if t == nil || t.BaseURL == "" {
		return "", ErrTranscriberDisabled
	}

	b, err := json.Marshal(transcribeReq{VideoURL: videoURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/transcribe", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return "", fmt.Errorf("transcriber: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded transcribeResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != "" {
		return "", errors.New(decoded.Error)
	}
	return decoded.Transcript, nil
}
