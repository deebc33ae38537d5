package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/fx"

	"subskit/config"
	"subskit/domain/apierror"
	"subskit/domain/service"
	"subskit/internal/signing"
)

// API is the transport surface the use cases talk to. Every response is the
// decoded envelope object; every failure is an apierror value.
type API interface {
	// SendSigned attaches the timestamp, signs the parameters and posts them
	// to the endpoint.
	SendSigned(ctx context.Context, endpoint Endpoint, params map[string]any) (map[string]any, error)

	// Send posts the parameters to the URL without signing.
	Send(ctx context.Context, url string, params map[string]any) (map[string]any, error)

	// CompareServerTime checks local clock skew against the time authority.
	// A skew beyond tolerance fails with KindInvalidTimestamps.
	CompareServerTime(ctx context.Context) error
}

type client struct {
	httpClient   *http.Client
	baseURL      string
	timeURL      string
	toleranceMs  int64
	signer       *signing.Signer
	reachability service.Reachability
	logger       *slog.Logger
	now          func() time.Time
}

// ClientParams holds dependencies for the transport client, injected by Fx.
type ClientParams struct {
	fx.In

	Config       *config.Config
	Reachability service.Reachability
	Logger       *slog.Logger
}

// NewClient creates the signed transport client.
func NewClient(params ClientParams) API {
	salt := byte(config.DefaultSigningSalt[0])
	if params.Config.API.SigningSalt != "" {
		salt = params.Config.API.SigningSalt[0]
	}

	return &client{
		httpClient:   &http.Client{Timeout: params.Config.API.RequestTimeout},
		baseURL:      params.Config.API.BaseURL,
		timeURL:      params.Config.API.TimeAuthorityURL,
		toleranceMs:  params.Config.API.SkewToleranceMs,
		signer:       signing.NewSigner(salt),
		reachability: params.Reachability,
		logger:       params.Logger,
		now:          time.Now,
	}
}

// NowMs returns the current time in milliseconds since epoch, the unit every
// signed timestamp uses.
func NowMs(now time.Time) int64 {
	return now.UnixMilli()
}

func (c *client) SendSigned(ctx context.Context, endpoint Endpoint, params map[string]any) (map[string]any, error) {
	fullParams := make(map[string]any, len(params)+1)
	for k, v := range params {
		fullParams[k] = v
	}
	fullParams["timestamp"] = NowMs(c.now())

	hash, err := c.signer.Hash(fullParams)
	if err != nil {
		c.logger.Error("request signing failed", slog.String("endpoint", endpoint.String()), slog.Any("error", err))

		return nil, apierror.Wrap(apierror.KindBadParameters, err)
	}
	c.logger.Debug("request", slog.String("endpoint", endpoint.String()))

	return c.Send(ctx, c.baseURL+endpoint.String()+signatureQuery+hash, fullParams)
}

func (c *client) Send(ctx context.Context, url string, params map[string]any) (map[string]any, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindBadParameters, err)
	}

	if !c.reachability.IsReachable() {
		return nil, apierror.New(apierror.KindNoConnection)
	}

	return c.send(ctx, url, body, false)
}

// send posts once and retries exactly once when the server answers 500.
func (c *client) send(ctx context.Context, url string, body []byte, isRepeat bool) (map[string]any, error) {
	payload, status, err := c.post(ctx, url, body)
	if status == http.StatusInternalServerError {
		if isRepeat {
			c.logger.Error("server error after retry", slog.String("url", url))

			return nil, apierror.New(apierror.KindServerError500)
		}

		return c.send(ctx, url, body, true)
	}
	if err != nil {
		c.logger.Error("request failed", slog.String("url", url), slog.Any("error", err))

		return nil, apierror.Wrap(apierror.KindResponseError, err)
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		c.logger.Error("response decode failed", slog.String("url", url), slog.Any("error", err))

		return nil, apierror.Wrap(apierror.KindResponseError, err)
	}

	envelope, ok := decoded.(map[string]any)
	if !ok {
		return nil, apierror.New(apierror.KindOther)
	}

	if kind := apierror.ClassifyValue(envelope["code"]); kind != apierror.KindNone {
		return nil, apierror.New(kind)
	}

	return envelope, nil
}

// post performs one HTTP round trip with cache disabled. The status code is
// reported even when the body was unusable so the caller can apply the 500
// retry rule.
func (c *client) post(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return payload, resp.StatusCode, nil
}

func (c *client) CompareServerTime(ctx context.Context) error {
	localMs := NowMs(c.now())

	payload, status, err := c.post(ctx, c.timeURL, []byte{})
	if err != nil {
		return apierror.Wrap(apierror.KindResponseError, err)
	}
	if status == http.StatusInternalServerError {
		return apierror.New(apierror.KindResponseError)
	}

	var envelope map[string]any
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return apierror.Wrap(apierror.KindBadResult, err)
	}

	serverRaw, ok := envelope["time_ms"].(string)
	if !ok {
		return apierror.New(apierror.KindBadResult)
	}
	serverMs, err := strconv.ParseInt(serverRaw, 10, 64)
	if err != nil {
		return apierror.Wrap(apierror.KindBadResult, err)
	}

	toleranceMs := c.toleranceMs
	if raw, ok := envelope["HMAC_TIME_DIFF_TOLERANCE_MS"].(float64); ok {
		toleranceMs = int64(raw)
	}

	if int64(math.Abs(float64(serverMs-localMs))) > toleranceMs {
		c.logger.Warn("clock skew beyond tolerance",
			slog.Int64("server_ms", serverMs),
			slog.Int64("local_ms", localMs),
			slog.Int64("tolerance_ms", toleranceMs))

		return apierror.New(apierror.KindInvalidTimestamps)
	}

	return nil
}
