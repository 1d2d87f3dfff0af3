package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const maxErrorBody = 1 << 10

type postmarkRequest struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HTMLBody      string `json:"HtmlBody"`
	TextBody      string `json:"TextBody"`
	MessageStream string `json:"MessageStream"`
}

type httpSender struct {
	client   *http.Client
	endpoint string
	from     string
	token    string
	stream   string
}

func newHTTPSender(client *http.Client, baseURL, from string, cfg HTTPConfig) (*httpSender, error) {
	endpoint, err := url.JoinPath(baseURL, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid email api url: %w", err)
	}
	return &httpSender{
		client:   client,
		endpoint: endpoint,
		from:     from,
		token:    cfg.Token,
		stream:   cfg.MessageStream,
	}, nil
}

func (s *httpSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(postmarkRequest{
		From:          s.from,
		To:            msg.To,
		Subject:       msg.Subject,
		HTMLBody:      msg.HTML,
		TextBody:      msg.Text,
		MessageStream: s.stream,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("email api responded %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
}
