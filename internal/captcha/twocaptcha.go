package captcha

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultTwoCaptchaURL = "https://2captcha.com"

// TwoCaptchaSolver sends the image to the 2captcha human solving service and
// polls until a worker has typed the code.
type TwoCaptchaSolver struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	MaxPolls     int

	client *http.Client
}

func NewTwoCaptchaSolver(apiKey, baseURL string) *TwoCaptchaSolver {
	if baseURL == "" {
		baseURL = DefaultTwoCaptchaURL
	}
	return &TwoCaptchaSolver{
		APIKey:       apiKey,
		BaseURL:      strings.TrimRight(baseURL, "/"),
		PollInterval: 5 * time.Second,
		MaxPolls:     24,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

type twoCaptchaResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

func (s *TwoCaptchaSolver) Solve(ctx context.Context, image []byte) (string, error) {
	form := url.Values{
		"key":     {s.APIKey},
		"method":  {"base64"},
		"body":    {base64.StdEncoding.EncodeToString(image)},
		"numeric": {"1"},
		"min_len": {fmt.Sprint(CodeLength)},
		"max_len": {fmt.Sprint(CodeLength)},
		"json":    {"1"},
	}
	submit, err := s.call(ctx, http.MethodPost, s.BaseURL+"/in.php", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("2captcha: submit: %w", err)
	}
	if submit.Status != 1 {
		return "", fmt.Errorf("2captcha: submit failed: %s", submit.Request)
	}

	pollURL := fmt.Sprintf("%s/res.php?key=%s&action=get&id=%s&json=1",
		s.BaseURL, url.QueryEscape(s.APIKey), url.QueryEscape(submit.Request))

	for i := 0; i < s.MaxPolls; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.PollInterval):
		}

		res, err := s.call(ctx, http.MethodGet, pollURL, nil)
		if err != nil {
			return "", fmt.Errorf("2captcha: poll: %w", err)
		}
		switch {
		case res.Status == 1:
			code, ok := ExtractCode(res.Request)
			if !ok {
				return "", fmt.Errorf("%w: 2captcha answered %q", ErrUnsolved, res.Request)
			}
			return code, nil
		case res.Request == "CAPCHA_NOT_READY":
			continue
		case res.Request == "ERROR_CAPTCHA_UNSOLVABLE":
			return "", fmt.Errorf("%w: 2captcha marked the image unsolvable", ErrUnsolved)
		default:
			return "", fmt.Errorf("2captcha: solve failed: %s", res.Request)
		}
	}
	return "", fmt.Errorf("%w: 2captcha timed out after %d polls", ErrUnsolved, s.MaxPolls)
}

func (s *TwoCaptchaSolver) call(ctx context.Context, method, u string, body io.Reader) (*twoCaptchaResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var out twoCaptchaResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &out, nil
}
