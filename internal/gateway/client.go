package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/drinkscart/internal/metrics"
	"github.com/hitoshi/drinkscart/internal/model"
)

// Client はバックエンドのREST APIへの共有HTTPクライアント。
// 認証トークンの保持とレート制限を担い、各コレクション実装から利用される。
type Client struct {
	baseURL string
	anonKey string
	httpc   *http.Client
	limiter *rate.Limiter
	mc      metrics.Collector

	mu    sync.RWMutex
	token string
}

// ClientConfig はClientの生成パラメータ。
type ClientConfig struct {
	BaseURL        string
	AnonKey        string
	RequestTimeout time.Duration
	RatePerSec     float64
	Burst          int
	Metrics        metrics.Collector
}

// NewClient は新しいClientを生成する。
func NewClient(cfg ClientConfig) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 40
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		anonKey: cfg.AnonKey,
		httpc:   &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		mc:      cfg.Metrics,
	}
}

// SetToken はアクセストークンを設定する。以降のリクエストで使用される。
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearToken はアクセストークンを破棄する。
func (c *Client) ClearToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// HasToken はアクセストークンを保持しているかどうかを返す。
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token != "" {
		return c.token
	}
	return c.anonKey
}

// StatusError はバックエンドからの非2xx応答を表す。
// 各コレクション実装がドメインエラーへ変換する。
type StatusError struct {
	Status  int
	Code    string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("backend status %d [%s] %s", e.Status, e.Code, e.Message)
}

// errorBody はバックエンドのエラー応答の各形式を吸収するデコード先。
type errorBody struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorField       string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (b errorBody) code() string {
	if b.Code != "" {
		return b.Code
	}
	return b.ErrorField
}

func (b errorBody) message() string {
	for _, m := range []string{b.Message, b.Msg, b.ErrorDescription, b.ErrorField} {
		if m != "" {
			return m
		}
	}
	return "バックエンドからエラー応答を受信しました"
}

// request はバックエンドへの1リクエストの指定。
type request struct {
	method  string
	path    string
	query   url.Values
	headers map[string]string
	body    any    // JSONとして送信される
	raw     []byte // 非JSONボディ（ストレージアップロード用）
}

// do はリクエストを実行し、2xx応答のボディをoutへデコードする。
// outがnilの場合ボディは読み捨てる。非2xxは*StatusErrorを返す。
func (c *Client) do(ctx context.Context, req request, out any) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.NewRemoteError(model.ErrCodeRemoteUnavailable,
			fmt.Sprintf("応答のデコードに失敗しました: %v", err))
	}
	return nil
}

// count は行数のみを取得する。Content-Rangeヘッダーの合計値を読む。
func (c *Client) count(ctx context.Context, path string, query url.Values) (int, error) {
	req := request{
		method: http.MethodGet,
		path:   path,
		query:  query,
		headers: map[string]string{
			"Prefer": "count=exact",
			"Range":  "0-0",
		},
	}
	resp, err := c.send(ctx, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if err := c.checkStatus(resp); err != nil {
		return 0, err
	}

	// 形式は "0-0/57" または "*/57"
	cr := resp.Header.Get("Content-Range")
	idx := strings.LastIndex(cr, "/")
	if idx < 0 {
		return 0, model.NewRemoteError(model.ErrCodeRemoteUnavailable,
			fmt.Sprintf("Content-Rangeヘッダーを解釈できません: %q", cr))
	}
	n, err := strconv.Atoi(cr[idx+1:])
	if err != nil {
		return 0, model.NewRemoteError(model.ErrCodeRemoteUnavailable,
			fmt.Sprintf("Content-Rangeヘッダーを解釈できません: %q", cr))
	}
	return n, nil
}

func (c *Client) send(ctx context.Context, req request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, model.NewRemoteError(model.ErrCodeRemoteUnavailable,
			fmt.Sprintf("レート制限待機が中断されました: %v", err))
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.raw != nil:
		body = bytes.NewReader(req.raw)
	case req.body != nil:
		buf, err := json.Marshal(req.body)
		if err != nil {
			return nil, model.NewRemoteError(model.ErrCodeRemoteUnavailable,
				fmt.Sprintf("リクエストボディの生成に失敗しました: %v", err))
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, model.NewRemoteError(model.ErrCodeRemoteUnavailable,
			fmt.Sprintf("リクエストの生成に失敗しました: %v", err))
	}

	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Authorization", "Bearer "+c.bearer())
	httpReq.Header.Set("X-Request-Id", uuid.NewString())
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, model.NewRemoteError(model.ErrCodeRemoteUnavailable,
			fmt.Sprintf("バックエンドへの接続に失敗しました: %v", err))
	}

	c.mc.RecordGatewayStatus(resp.StatusCode)
	return resp, nil
}

func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var eb errorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	return &StatusError{
		Status:  resp.StatusCode,
		Code:    eb.code(),
		Message: eb.message(),
	}
}

// toRemoteError は*StatusErrorをドメインのRemoteErrorへ変換する。
// ドメインエラーはそのまま通す。制約違反（Postgresの23505）は専用コードになる。
func toRemoteError(err error) error {
	if err == nil {
		return nil
	}
	se, ok := err.(*StatusError)
	if !ok {
		return err
	}
	switch {
	case se.Code == "23505" || se.Status == http.StatusConflict:
		return model.NewRemoteError(model.ErrCodeConstraintViolated, se.Message)
	case se.Status == http.StatusUnauthorized:
		return model.NewSessionExpiredError()
	default:
		return model.NewRemoteError(model.ErrCodeRemoteUnavailable, se.Message)
	}
}
