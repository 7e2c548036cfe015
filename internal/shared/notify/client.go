package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// =============================================================================
// Client — 出站Webhook通知客户端
// 审批通过/驳回/排期时向站点群机器人推送消息，URL为空时静默跳过
// =============================================================================

// Client 通知客户端
type Client struct {
	webhookURL string
	httpClient *http.Client
}

// NewClient 创建通知客户端实例
func NewClient(webhookURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled 是否已配置webhook
func (c *Client) Enabled() bool {
	return c != nil && c.webhookURL != ""
}

// Message webhook消息体
type Message struct {
	Title   string            `json:"title"`
	Text    string            `json:"text"`
	Fields  map[string]string `json:"fields,omitempty"`
	EventAt time.Time         `json:"event_at"`
}

// Send 发送通知消息
func (c *Client) Send(ctx context.Context, msg Message) error {
	if !c.Enabled() {
		return nil
	}
	if msg.EventAt.IsZero() {
		msg.EventAt = time.Now()
	}

	bodyBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// RequestDecided 审批结果通知
func (c *Client) RequestDecided(ctx context.Context, code, reqType, decision, decidedBy string) error {
	return c.Send(ctx, Message{
		Title: "Request " + decision,
		Text:  fmt.Sprintf("%s (%s) has been %s", code, reqType, decision),
		Fields: map[string]string{
			"code":       code,
			"type":       reqType,
			"decision":   decision,
			"decided_by": decidedBy,
		},
	})
}
