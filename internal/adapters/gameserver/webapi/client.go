package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/steam-gs-unlock/internal/domain"
)

const (
	DefaultBaseURL        = "https://partner.steam-api.com"
	schemaPath            = "/ISteamUserStats/GetSchemaForGame/v2/"
	userStatsPath         = "/ISteamUserStats/GetUserStatsForGame/v2/"
	setUserStatsPath      = "/ISteamUserStats/SetUserStatsForGame/v1/"
	maxResponseBytes      = 1 << 20
	defaultRequestTimeout = 30 * time.Second
)

type API struct {
	BaseURL string
	Key     string
}

type schemaResponse struct {
	Game struct {
		GameName           string `json:"gameName"`
		AvailableGameStats struct {
			Achievements []struct {
				Name        string `json:"name"`
				DisplayName string `json:"displayName"`
			} `json:"achievements"`
		} `json:"availableGameStats"`
	} `json:"game"`
}

type userStatsResponse struct {
	PlayerStats struct {
		SteamID      string `json:"steamID"`
		GameName     string `json:"gameName"`
		Achievements []struct {
			Name     string `json:"name"`
			Achieved int    `json:"achieved"`
		} `json:"achievements"`
	} `json:"playerstats"`
}

type setUserStatsResponse struct {
	Result struct {
		Result int `json:"result"`
	} `json:"result"`
}

// callError carries the platform result a failed request maps to. IO is
// set when no response was received at all.
type callError struct {
	Result domain.Result
	IO     bool
	Err    error
}

func (e *callError) Error() string {
	if e.IO {
		return fmt.Sprintf("i/o failure: %v", e.Err)
	}
	return fmt.Sprintf("result %s: %v", e.Result, e.Err)
}

func (e *callError) Unwrap() error {
	return e.Err
}

type client struct {
	api            API
	httpClient     *http.Client
	requestTimeout time.Duration
}

func (c client) fetchSchema(ctx context.Context, appID uint32) ([]string, error) {
	values := url.Values{}
	values.Set("appid", fmt.Sprint(appID))

	var payload schemaResponse
	if err := c.get(ctx, schemaPath, values, &payload); err != nil {
		return nil, fmt.Errorf("fetch schema for app %d: %w", appID, err)
	}

	names := make([]string, 0, len(payload.Game.AvailableGameStats.Achievements))
	for _, achievement := range payload.Game.AvailableGameStats.Achievements {
		if achievement.Name != "" {
			names = append(names, achievement.Name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("fetch schema for app %d: %w", appID, &callError{Result: domain.ResultFail, Err: errors.New("app defines no achievements")})
	}

	return names, nil
}

func (c client) fetchUserStats(ctx context.Context, appID uint32, id domain.SteamID) ([]string, error) {
	values := url.Values{}
	values.Set("appid", fmt.Sprint(appID))
	values.Set("steamid", id.String())

	var payload userStatsResponse
	if err := c.get(ctx, userStatsPath, values, &payload); err != nil {
		return nil, fmt.Errorf("fetch stats for %s: %w", id, err)
	}

	var unlocked []string
	for _, achievement := range payload.PlayerStats.Achievements {
		if achievement.Achieved != 0 {
			unlocked = append(unlocked, achievement.Name)
		}
	}

	return unlocked, nil
}

func (c client) storeAchievements(ctx context.Context, appID uint32, id domain.SteamID, names []string) error {
	values := url.Values{}
	values.Set("appid", fmt.Sprint(appID))
	values.Set("steamid", id.String())
	values.Set("count", fmt.Sprint(len(names)))
	for i, name := range names {
		values.Set(fmt.Sprintf("name[%d]", i), name)
		values.Set(fmt.Sprintf("value[%d]", i), "1")
	}

	var payload setUserStatsResponse
	if err := c.postForm(ctx, setUserStatsPath, values, &payload); err != nil {
		return fmt.Errorf("store stats for %s: %w", id, err)
	}

	if result := domain.Result(payload.Result.Result); result != domain.ResultOK {
		return fmt.Errorf("store stats for %s: %w", id, &callError{Result: result, Err: errors.New("rejected by platform")})
	}

	return nil
}

func (c client) get(ctx context.Context, path string, values url.Values, out any) error {
	endpoint, err := buildAPIURL(c.api.BaseURL, path)
	if err != nil {
		return err
	}
	values.Set("key", c.api.Key)

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, out)
}

func (c client) postForm(ctx context.Context, path string, values url.Values, out any) error {
	endpoint, err := buildAPIURL(c.api.BaseURL, path)
	if err != nil {
		return err
	}
	values.Set("key", c.api.Key)

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return c.do(req, out)
}

func (c client) do(req *http.Request, out any) error {
	resp, err := c.client().Do(req)
	if err != nil {
		return &callError{IO: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &callError{Result: resultForStatus(resp.StatusCode), Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return &callError{Result: domain.ResultFail, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

func (c client) client() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return http.DefaultClient
}

func (c client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.requestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func resultForStatus(status int) domain.Result {
	switch {
	case status == http.StatusBadRequest:
		return domain.ResultInvalidParam
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ResultAccessDenied
	case status == http.StatusTooManyRequests:
		return domain.ResultLimitExceeded
	case status == http.StatusServiceUnavailable:
		return domain.ResultServiceUnavailable
	case status >= http.StatusInternalServerError:
		return domain.ResultBusy
	default:
		return domain.ResultFail
	}
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api base url is required")
	}
	if path == "" {
		return "", errors.New("api path is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	return endpoint.String(), nil
}
