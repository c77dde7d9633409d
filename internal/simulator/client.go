// Package simulator 模拟扫码端（条码 / RFID / 摄像头）和称重端，通过 HTTP 向服务端上报
package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	httpapi "github.com/Sarthak207/FlexiCart/internal/http"
	"github.com/Sarthak207/FlexiCart/internal/models"
)

// Client 服务端 HTTP 客户端
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建客户端；5xx 和网络错误自动重试
func NewClient(baseURL string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{httpClient: client, logger: logger}
}

// APIError 服务端返回的失败结果
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flexicart API error: %s (http %d)", e.Message, e.StatusCode)
}

func do[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var (
		result httpapi.Result[T]
		failed httpapi.Result[any]
		zero   T
	)
	req := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&failed)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return zero, fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return zero, &APIError{StatusCode: resp.StatusCode(), Message: failed.Message}
	}
	if result.Code != httpapi.ResultSuccess {
		return zero, &APIError{StatusCode: resp.StatusCode(), Message: result.Message}
	}
	return result.Result, nil
}

// Scan 上报一次扫码
func (c *Client) Scan(ctx context.Context, p models.ScanPayload) (httpapi.AddItemResult, error) {
	return do[httpapi.AddItemResult](ctx, c, resty.MethodPost, "/api/cart/add-item", p)
}

// SendWeight 上报一个称重读数
func (c *Client) SendWeight(ctx context.Context, p models.WeightPayload) (models.WeightState, error) {
	return do[models.WeightState](ctx, c, resty.MethodPost, "/api/weight/update", p)
}

// Tare 去皮
func (c *Client) Tare(ctx context.Context, deviceID string) (models.WeightState, error) {
	return do[models.WeightState](ctx, c, resty.MethodPost, "/api/weight/tare", map[string]string{"device_id": deviceID})
}

// GetCart 查询购物车
func (c *Client) GetCart(ctx context.Context, userID string) (models.Cart, error) {
	return do[models.Cart](ctx, c, resty.MethodGet, "/api/cart/"+userID, nil)
}
