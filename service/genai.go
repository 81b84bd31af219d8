// ...existing code...
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"GarmentStudio-server/config"
)

// 生成端错误分类。quota/transport 可在客户端内部降级重试，
// safety 绝不重试，malformed 表示模型输出无法按约定解析。
type GenErrorKind string

const (
	GenErrQuota     GenErrorKind = "quota_exceeded"
	GenErrSafety    GenErrorKind = "safety_blocked"
	GenErrMalformed GenErrorKind = "malformed_output"
	GenErrTransport GenErrorKind = "transport"
)

type GenError struct {
	Kind    GenErrorKind
	Model   string
	Message string
}

func (e *GenError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (model=%s)", e.Kind, e.Message, e.Model)
}

func newGenError(kind GenErrorKind, model, format string, args ...interface{}) *GenError {
	return &GenError{Kind: kind, Model: model, Message: fmt.Sprintf(format, args...)}
}

// IsRetryable quota/transport 允许降级到备用模型再试一次
func IsRetryable(err error) bool {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge.Kind == GenErrQuota || ge.Kind == GenErrTransport
	}
	return false
}

func IsSafetyBlocked(err error) bool {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge.Kind == GenErrSafety
	}
	return false
}

// SeoCopy 文案生成结果的约定结构
type SeoCopy struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GenerationClient 三类模型能力：视觉分析 / 文案生成 / 图像合成
type GenerationClient interface {
	Analyze(ctx context.Context, imageB64, instruction string) (string, error)
	GenerateText(ctx context.Context, prompt string) (*SeoCopy, error)
	SynthesizeImage(ctx context.Context, prompt string, conditioning []string) (string, error)
}

// UsageRecorder 每次模型调用后回调一次，用于累计用量
type UsageRecorder func(modelID string, cost float64)

// HTTPGenClient 通过 HTTP 访问生成端点
type HTTPGenClient struct {
	VisionAPI     string
	TextAPI       string
	ImageAPI      string
	APIKey        string
	PrimaryModel  string
	FallbackModel string
	RequestCost   float64
	Client        *http.Client
	Usage         UsageRecorder
}

// NewGenClientFromConfig 从全局配置构建客户端
func NewGenClientFromConfig(usage UsageRecorder) *HTTPGenClient {
	cfg := config.AppConfig.AI
	return &HTTPGenClient{
		VisionAPI:     cfg.VisionAPI,
		TextAPI:       cfg.TextAPI,
		ImageAPI:      cfg.ImageAPI,
		APIKey:        cfg.APIKey,
		PrimaryModel:  cfg.PrimaryModel,
		FallbackModel: cfg.FallbackModel,
		RequestCost:   cfg.RequestCost,
		Client:        &http.Client{Timeout: 120 * time.Second},
		Usage:         usage,
	}
}

// 生成端点的统一响应结构
type genResponse struct {
	Text  string  `json:"text"`
	Image string  `json:"image"`
	Cost  float64 `json:"cost"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HTTPGenClient) Analyze(ctx context.Context, imageB64, instruction string) (string, error) {
	var text string
	err := c.withFallback(func(model string) error {
		resp, err := c.doGenerate(ctx, c.VisionAPI, model, map[string]interface{}{
			"model":       model,
			"instruction": instruction,
			"images":      []string{imageB64},
		})
		if err != nil {
			return err
		}
		if resp.Text == "" {
			return newGenError(GenErrMalformed, model, "vision response missing text")
		}
		text = resp.Text
		return nil
	})
	return text, err
}

func (c *HTTPGenClient) GenerateText(ctx context.Context, prompt string) (*SeoCopy, error) {
	var copyResult *SeoCopy
	err := c.withFallback(func(model string) error {
		resp, err := c.doGenerate(ctx, c.TextAPI, model, map[string]interface{}{
			"model":  model,
			"prompt": prompt,
		})
		if err != nil {
			return err
		}
		// 严格按约定结构解析，解析不出来直接判 malformed，不做文本兜底抽取
		var sc SeoCopy
		if err := json.Unmarshal([]byte(resp.Text), &sc); err != nil {
			return newGenError(GenErrMalformed, model, "text output is not valid seo json: %v", err)
		}
		if sc.Title == "" || sc.Description == "" {
			return newGenError(GenErrMalformed, model, "seo json missing title or description")
		}
		copyResult = &sc
		return nil
	})
	return copyResult, err
}

func (c *HTTPGenClient) SynthesizeImage(ctx context.Context, prompt string, conditioning []string) (string, error) {
	var image string
	err := c.withFallback(func(model string) error {
		resp, err := c.doGenerate(ctx, c.ImageAPI, model, map[string]interface{}{
			"model":  model,
			"prompt": prompt,
			"images": conditioning,
		})
		if err != nil {
			return err
		}
		if resp.Image == "" {
			return newGenError(GenErrMalformed, model, "image response missing image data")
		}
		image = resp.Image
		return nil
	})
	return image, err
}

// withFallback 主模型失败且可重试时降级到备用模型再试一次。
// safety/malformed 原样返回，不降级。
func (c *HTTPGenClient) withFallback(call func(model string) error) error {
	err := call(c.PrimaryModel)
	if err == nil || !IsRetryable(err) {
		return err
	}
	if c.FallbackModel == "" || c.FallbackModel == c.PrimaryModel {
		return err
	}
	log.Printf("主模型 %s 调用失败，降级到 %s: %v", c.PrimaryModel, c.FallbackModel, err)
	return call(c.FallbackModel)
}

func (c *HTTPGenClient) doGenerate(ctx context.Context, endpoint, model string, payload map[string]interface{}) (*genResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, newGenError(GenErrTransport, model, "marshal request failed: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, newGenError(GenErrTransport, model, "create request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, newGenError(GenErrTransport, model, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if c.Usage != nil {
		c.Usage(model, c.RequestCost)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newGenError(GenErrTransport, model, "read response failed: %v", err)
	}

	var gr genResponse
	decodeErr := json.Unmarshal(bodyBytes, &gr)

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(resp.StatusCode, model, &gr, decodeErr)
	}
	if decodeErr != nil {
		return nil, newGenError(GenErrMalformed, model, "decode response failed: %v", decodeErr)
	}
	return &gr, nil
}

// classifyHTTPError HTTP 错误 -> 错误分类。429 一律按配额处理，
// 4xx 里带 safety 标记的按安全拦截处理，其余按传输错误处理。
func classifyHTTPError(status int, model string, gr *genResponse, decodeErr error) *GenError {
	code := ""
	message := fmt.Sprintf("status code %d", status)
	if decodeErr == nil && gr.Error.Code != "" {
		code = gr.Error.Code
		message = gr.Error.Message
	}

	switch {
	case status == http.StatusTooManyRequests || code == string(GenErrQuota):
		return newGenError(GenErrQuota, model, "%s", message)
	case code == string(GenErrSafety) || strings.Contains(code, "safety"):
		return newGenError(GenErrSafety, model, "%s", message)
	case code == string(GenErrMalformed):
		return newGenError(GenErrMalformed, model, "%s", message)
	default:
		return newGenError(GenErrTransport, model, "%s", message)
	}
}
