package hcaptcha

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/getyoursite/getyoursite/internal/pkg/env"
)

const DefaultEndpoint = "https://hcaptcha.com/siteverify"

// FormField is the name of the token field posted by the hCaptcha widget.
const FormField = "h-captcha-response"

var (
	ErrEmptyToken = errors.New("hCaptcha token is empty")
	ErrRejected   = errors.New("hCaptcha validation failed")
)

type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier checks widget tokens against the siteverify endpoint.
type Verifier struct {
	Secret   string
	SiteKey  string
	Endpoint string
	Client   *http.Client
}

// FromEnv returns nil when HCAPTCHA_SECRET is unset, which disables the check.
func FromEnv() *Verifier {
	secret := strings.TrimSpace(env.GetEnv("HCAPTCHA_SECRET", ""))
	if secret == "" {
		return nil
	}
	return &Verifier{
		Secret:   secret,
		SiteKey:  env.GetEnv("HCAPTCHA_SITEKEY", ""),
		Endpoint: DefaultEndpoint,
		Client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return ErrEmptyToken
	}

	formData := url.Values{
		"secret":   {v.Secret},
		"response": {token},
	}
	if remoteIP != "" {
		formData.Set("remoteip", remoteIP)
	}

	endpoint := v.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(formData.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to hCaptcha API: %w", err)
	}
	defer resp.Body.Close()

	var response Response
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode hCaptcha API response: %w", err)
	}

	if !response.Success {
		if len(response.ErrorCodes) > 0 {
			return fmt.Errorf("%w: %s", ErrRejected, strings.Join(response.ErrorCodes, ", "))
		}
		return ErrRejected
	}
	return nil
}
