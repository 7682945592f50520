// Package client sleepsense-data HTTP API 客户端
package client

import (
	"encoding/json"
	"fmt"
	"time"

	"sleepsense/internal/domain"
	"sleepsense/internal/tracker"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const resultSuccess = 2000

// envelope 服务端统一响应
type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// APIError 服务端返回 code != 2000
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sleepsense API error: %s (code: %d)", e.Message, e.Code)
}

// SleepSenseClient 调用 sleepsense-data 的客户端
type SleepSenseClient struct {
	httpClient *resty.Client
	user       string
	logger     *zap.Logger
}

// NewSleepSenseClient 创建客户端；user 作为 X-User-Email 发送
func NewSleepSenseClient(baseURL, user string, logger *zap.Logger) *SleepSenseClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second). // 大文件导入
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("X-User-Email", user)

	return &SleepSenseClient{
		httpClient: client,
		user:       user,
		logger:     logger,
	}
}

// Import 上传原始文件内容
// 导入被拒绝时返回 *APIError，同时返回服务端给出的导入结果
func (c *SleepSenseClient) Import(format string, content []byte) (*tracker.ImportResult, error) {
	contentType := "application/json"
	if format == "csv" {
		contentType = "text/csv"
	}

	c.logger.Info("Uploading sleep data",
		zap.String("user", c.user),
		zap.String("format", format),
		zap.Int("bytes", len(content)),
	)

	env, err := c.do(c.httpClient.R().
		SetHeader("Content-Type", contentType).
		SetQueryParam("format", format).
		SetBody(content), "POST", "/sleep/api/v1/import")
	if err != nil {
		return nil, err
	}

	var res tracker.ImportResult
	if len(env.Result) > 0 && string(env.Result) != "null" {
		if err := json.Unmarshal(env.Result, &res); err != nil {
			return nil, fmt.Errorf("failed to decode import result: %w", err)
		}
	}
	if env.Code != resultSuccess {
		return &res, &APIError{Code: env.Code, Message: env.Message}
	}
	return &res, nil
}

// GetCurrent 当前快照
func (c *SleepSenseClient) GetCurrent() (*domain.CurrentMetrics, error) {
	var cur domain.CurrentMetrics
	if err := c.get("/sleep/api/v1/current", &cur); err != nil {
		return nil, err
	}
	return &cur, nil
}

// GetCalculatedMetrics 最近 7 天滚动统计
func (c *SleepSenseClient) GetCalculatedMetrics() (*domain.AggregateMetrics, error) {
	var agg domain.AggregateMetrics
	if err := c.get("/sleep/api/v1/metrics/calculated", &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

// GenerateReport 生成并归档当天报告
func (c *SleepSenseClient) GenerateReport() (*domain.SleepReport, error) {
	env, err := c.do(c.httpClient.R(), "POST", "/sleep/api/v1/reports")
	if err != nil {
		return nil, err
	}
	if env.Code != resultSuccess {
		return nil, &APIError{Code: env.Code, Message: env.Message}
	}
	var rep domain.SleepReport
	if err := json.Unmarshal(env.Result, &rep); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &rep, nil
}

func (c *SleepSenseClient) get(path string, out interface{}) error {
	env, err := c.do(c.httpClient.R(), "GET", path)
	if err != nil {
		return err
	}
	if env.Code != resultSuccess {
		return &APIError{Code: env.Code, Message: env.Message}
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (c *SleepSenseClient) do(req *resty.Request, method, path string) (*envelope, error) {
	var env envelope
	resp, err := req.SetResult(&env).Execute(method, path)
	if err != nil {
		c.logger.Error("sleepsense API call failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to call sleepsense API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sleepsense API %s returned HTTP %d", path, resp.StatusCode())
	}
	return &env, nil
}
