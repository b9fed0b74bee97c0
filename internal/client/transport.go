// Package client 实现客户端副本的运行时：HTTP 传输、连通性监测与同步周期
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/haierkeys/lww-note-sync/internal/domain"
	"github.com/haierkeys/lww-note-sync/pkg/logger"
)

// Transport 与服务端副本通信
type Transport interface {
	// Health 连通性探测，非 2xx 同样视为网络错误
	Health(ctx context.Context) error
	// Sync 上传完整的本地笔记列表，返回服务端合并后的快照
	Sync(ctx context.Context, notes []domain.Note) (domain.Snapshot, error)
	// Delete 删除服务端笔记
	Delete(ctx context.Context, id string) error
}

// StatusError 服务端可达但返回了非 2xx 状态
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

type syncRequest struct {
	Notes []domain.Note `json:"notes"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// HTTPTransport 基于 HTTP/JSON 的 Transport
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPTransport 创建 HTTP 传输，httpClient 为 nil 时使用 timeout 构建
func NewHTTPTransport(baseURL string, httpClient *http.Client, timeout time.Duration, lg *zap.Logger) *HTTPTransport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		logger:  lg.With(zap.String(logger.FieldServerURL, baseURL)),
	}
}

// BaseURL 服务端地址
func (t *HTTPTransport) BaseURL() string {
	return t.baseURL
}

func (t *HTTPTransport) do(ctx context.Context, op, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return 0, nil, &domain.NetworkError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, &domain.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return resp.StatusCode, nil, &domain.NetworkError{Op: op, Err: err}
	}
	return resp.StatusCode, data, nil
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}

func (t *HTTPTransport) Health(ctx context.Context) error {
	status, data, err := t.do(ctx, "health", http.MethodGet, "/api/health", nil)
	if err != nil {
		return err
	}
	if !is2xx(status) {
		return &domain.NetworkError{Op: "health", Err: &StatusError{Op: "health", StatusCode: status, Body: string(data)}}
	}

	var hr healthResponse
	if err := sonic.Unmarshal(data, &hr); err != nil {
		return &domain.NetworkError{Op: "health", Err: err}
	}
	t.logger.Debug("health ok", zap.Int64("serverTime", hr.Timestamp))
	return nil
}

func (t *HTTPTransport) Sync(ctx context.Context, notes []domain.Note) (domain.Snapshot, error) {
	if notes == nil {
		notes = []domain.Note{}
	}
	body, err := sonic.Marshal(syncRequest{Notes: notes})
	if err != nil {
		return domain.Snapshot{}, err
	}

	status, data, err := t.do(ctx, "sync", http.MethodPost, "/api/notes/sync", body)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if !is2xx(status) {
		return domain.Snapshot{}, &StatusError{Op: "sync", StatusCode: status, Body: string(data)}
	}

	var snap domain.Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, &domain.NetworkError{Op: "sync", Err: err}
	}
	return snap, nil
}

func (t *HTTPTransport) Delete(ctx context.Context, id string) error {
	status, data, err := t.do(ctx, "delete", http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	if !is2xx(status) {
		return &StatusError{Op: "delete", StatusCode: status, Body: string(data)}
	}
	return nil
}
