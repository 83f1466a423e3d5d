// Package genclient talks to the image generation endpoint.
//
// Generate sends one prompt plus one input image to a Gemini-compatible
// `models/{model}:generateContent` endpoint through the genai SDK and returns
// the first inline image of the response. Failures are classified into *Error
// values carrying a user-facing message and suggested action. Nothing is retried.
package genclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"genfill/core"
	"genfill/imaging"
	"genfill/logging"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Config holds generation parameters shared by every request.
type Config struct {
	// ModelName is the base model; a size tag is appended per request.
	ModelName string

	// APIVersion is the path segment before `models/`.
	APIVersion string

	Temperature     float32
	TopP            float32
	MaxOutputTokens int32
}

// DefaultConfig returns the parameters the plugin has always sent.
func DefaultConfig() Config {
	return Config{
		ModelName:       core.DefaultModelName,
		APIVersion:      "v1beta",
		Temperature:     0.8,
		TopP:            0.95,
		MaxOutputTokens: 8192,
	}
}

// Request is one generation call.
type Request struct {
	APIKey         string
	BaseURL        string
	Prompt         string
	InputImage     []byte // PNG bytes of the captured selection
	Size           core.ImageSize
	TimeoutSeconds int

	// Index is the 1-based position of the request within its fan-out. Logged only.
	Index int
}

// Client issues generation requests. It is stateless and safe for concurrent use.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *logging.Logger
}

// NewClient creates a generation client.
// httpClient supplies the transport (TLS settings); its Timeout is ignored in
// favor of the per-request timeout.
func NewClient(httpClient *http.Client, logger *logging.Logger, config Config) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("genclient: logger cannot be nil")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if config.ModelName == "" {
		config.ModelName = core.DefaultModelName
	}
	if config.APIVersion == "" {
		config.APIVersion = "v1beta"
	}
	return &Client{
		httpClient: httpClient,
		config:     config,
		logger:     logger.Named("genclient"),
	}, nil
}

// Generate performs one request and returns the generated image bytes.
// Exactly one HTTP request is made; on failure the returned error is an *Error.
func (c *Client) Generate(ctx context.Context, req Request) ([]byte, error) {
	apiKey := strings.TrimSpace(req.APIKey)
	baseURL := core.NormalizeBaseURL(req.BaseURL)
	if apiKey == "" {
		return nil, core.ErrAPIKeyEmpty()
	}
	if baseURL == "" {
		return nil, core.ErrBaseURLEmpty()
	}
	if len(req.InputImage) == 0 {
		return nil, fmt.Errorf("genclient: input image is empty")
	}

	timeoutSeconds := req.TimeoutSeconds
	if timeoutSeconds < core.MinTimeoutSeconds {
		timeoutSeconds = core.MinTimeoutSeconds
	}
	model := ModelName(c.config.ModelName, req.Size)

	log := c.logger.With(
		zap.String("model", model),
		zap.String("size", string(req.Size)),
		zap.Int("timeout_seconds", timeoutSeconds),
		zap.Int("index", req.Index),
	)

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	transport := newKeyTransport(apiKey, c.httpClient.Transport)
	client, err := genai.NewClient(reqCtx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Transport: transport},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    baseURL + "/",
			APIVersion: c.config.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("genclient: failed to create client: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.Prompt),
			genai.NewPartFromBytes(req.InputImage, imaging.PNGMimeType),
		}, genai.RoleUser),
	}

	start := time.Now()
	log.Debug("sending generation request", zap.Int("input_bytes", len(req.InputImage)))

	resp, err := client.Models.GenerateContent(reqCtx, model, contents, c.generationConfig(req.Size))
	if err != nil {
		classified := classifyError(ctx, reqCtx, err, timeoutSeconds, transport.status())
		log.Warn("generation request failed",
			zap.String("kind", string(classified.Kind)),
			zap.Int("status", classified.Status),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, classified
	}

	data, err := extractImage(resp)
	if err != nil {
		log.Warn("generation response had no image", zap.Error(err))
		return nil, err
	}

	log.Info("generation request succeeded",
		zap.Int("output_bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))
	return data, nil
}

func (c *Client) generationConfig(size core.ImageSize) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.config.Temperature),
		TopP:            genai.Ptr(c.config.TopP),
		MaxOutputTokens: c.config.MaxOutputTokens,
	}
	if size != core.ImageSizeAuto && size.Valid() {
		cfg.ImageConfig = &genai.ImageConfig{ImageSize: string(size)}
	}
	return cfg
}

// extractImage returns the first inline image of the first candidate.
func extractImage(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, NewNoImageError()
	}

	parts := resp.Candidates[0].Content.Parts
	for _, part := range parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	for _, part := range parts {
		if part != nil && strings.TrimSpace(part.Text) != "" {
			return nil, NewContentFilteredError(part.Text)
		}
	}
	return nil, NewNoImageError()
}

// classifyError maps SDK and transport errors onto *Error.
// parent is the caller's context, reqCtx the one carrying the request timeout.
func classifyError(parent, reqCtx context.Context, err error, timeoutSeconds, lastStatus int) *Error {
	if parent.Err() != nil {
		return &Error{Kind: KindCanceled, Message: "Request canceled", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return NewTimeoutError(timeoutSeconds, err)
	}

	if status, ok := apiErrorStatus(err); ok {
		if status == 0 {
			status = lastStatus
		}
		return NewHTTPError(status, err)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return NewNetworkError(err)
	}

	return &Error{Kind: KindBadResponse, Message: "Unexpected response from API", Action: "Retry later", Err: err}
}

func apiErrorStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}
