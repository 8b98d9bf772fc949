package relayer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/openpredict/tradegate/internal/signing"
	"github.com/openpredict/tradegate/pkg/types"
)

// Client talks to the relay HTTP service that sponsors gas for
// user-signed intents. Submissions carry builder-attribution headers
// so the relay operator can bill the integrating application.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	attribution signing.AttributionSigner // nil means unattributed requests
	logger      *zap.Logger
}

// Config holds relay client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Attribution signing.AttributionSigner
	Logger      *zap.Logger
}

// New creates a new relay client.
func New(cfg *Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		attribution: cfg.Attribution,
		logger:      cfg.Logger,
	}, nil
}

// Deployed asks the relay whether a proxy wallet exists for the owner
// address, returning the proxy address too when the relay reports one.
func (c *Client) Deployed(ctx context.Context, address string) (bool, string, error) {
	raw, err := c.getJSON(ctx, "/deployed?address="+url.QueryEscape(address))
	if err != nil {
		return false, "", err
	}

	deployed, ok := resolveBool(raw, deployedAlias)
	if !ok {
		return false, "", &types.RelayUnavailableError{
			Cause: errors.New("deployment status missing from relay response"),
		}
	}

	return deployed, resolveString(raw, proxyAliases), nil
}

// Nonce fetches the relay nonce for an owner and signer type.
func (c *Client) Nonce(ctx context.Context, address, signerType string) (string, error) {
	path := "/nonce?address=" + url.QueryEscape(address) + "&signerType=" + url.QueryEscape(signerType)

	raw, err := c.getJSON(ctx, path)
	if err != nil {
		return "", err
	}

	return resolveString(raw, nonceAliases), nil
}

// Submit posts an action to the relay and returns the transaction id
// it assigned. Failure to reach the relay is transient
// (RelayUnavailableError); an application-level non-2xx answer is
// terminal (RelayerRejectedError).
func (c *Client) Submit(ctx context.Context, action Action, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	path := "/" + string(action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.attribution != nil {
		headers, signErr := c.attribution.SignRequest(ctx, &signing.AttributionRequest{
			Method: http.MethodPost,
			Path:   path,
			Body:   string(body),
		})
		if signErr != nil {
			return "", fmt.Errorf("sign attribution headers: %w", signErr)
		}

		for name, value := range headers {
			req.Header.Set(name, value)
		}
	}

	raw, err := c.do(req)
	if err != nil {
		submissionsTotal.WithLabelValues(string(action), "error").Inc()
		return "", err
	}

	txID := resolveString(raw, idAliases)
	if txID == "" {
		submissionsTotal.WithLabelValues(string(action), "error").Inc()
		return "", &types.RelayUnavailableError{
			Cause: errors.New("transaction id missing from relay response"),
		}
	}

	submissionsTotal.WithLabelValues(string(action), "ok").Inc()
	c.logger.Info("relay-action-submitted",
		zap.String("action", string(action)),
		zap.String("transaction-id", txID))

	return txID, nil
}

// GetTransaction fetches the current state of a relay transaction.
func (c *Client) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	raw, err := c.getJSON(ctx, "/transaction?id="+url.QueryEscape(id))
	if err != nil {
		return nil, err
	}

	tx := transactionFromRaw(raw)
	if tx.ID == "" {
		tx.ID = id
	}

	return tx, nil
}

// PollUntilTerminal fetches the transaction at a fixed interval until
// its state is in successStates, equals failureState, or maxAttempts
// is exhausted. Exhaustion means the outcome is unknown: it surfaces
// as RelayTimeoutError, which is distinct from an explicit on-chain
// rejection and must never be treated as confirmed failure.
func (c *Client) PollUntilTerminal(
	ctx context.Context,
	id string,
	successStates []State,
	failureState State,
	maxAttempts int,
	interval time.Duration,
) (*Transaction, error) {
	if maxAttempts <= 0 {
		return nil, errors.New("maxAttempts must be positive")
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		pollAttemptsTotal.Inc()

		tx, err := c.GetTransaction(ctx, id)
		if err != nil {
			var unavailable *types.RelayUnavailableError
			if errors.As(err, &unavailable) {
				// Transient fetch failure still consumes an attempt;
				// the budget bounds wall-clock time, not successes.
				c.logger.Warn("relay-poll-fetch-failed",
					zap.String("transaction-id", id),
					zap.Int("attempt", attempt),
					zap.Error(err))
			} else {
				return nil, err
			}
		} else {
			for _, s := range successStates {
				if tx.State == s {
					pollOutcomesTotal.WithLabelValues("success").Inc()
					return tx, nil
				}
			}

			if tx.State == failureState {
				pollOutcomesTotal.WithLabelValues("failed").Inc()
				return tx, nil
			}
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	pollOutcomesTotal.WithLabelValues("timeout").Inc()

	return nil, &types.RelayTimeoutError{TransactionID: id, Attempts: maxAttempts}
}

// Wait is a best-effort shortcut: one immediate fetch in case the
// relay already confirmed, then the regular bounded poll. Callers can
// always fall back to PollUntilTerminal alone.
func (c *Client) Wait(
	ctx context.Context,
	id string,
	successStates []State,
	failureState State,
	maxAttempts int,
	interval time.Duration,
) (*Transaction, error) {
	tx, err := c.GetTransaction(ctx, id)
	if err == nil {
		for _, s := range successStates {
			if tx.State == s {
				return tx, nil
			}
		}

		if tx.State == failureState {
			return tx, nil
		}
	}

	return c.PollUntilTerminal(ctx, id, successStates, failureState, maxAttempts, interval)
}

func (c *Client) getJSON(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

// do executes a request and decodes the JSON body. A body that is not
// JSON (an edge-proxy block page, a captive portal) is surfaced as
// RelayUnavailableError instead of a parse error.
func (c *Client) do(req *http.Request) (map[string]json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &types.RelayUnavailableError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.RelayUnavailableError{Cause: err}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return nil, &types.RelayUnavailableError{
			Cause: fmt.Errorf("unexpected content type %q (status %d)", contentType, resp.StatusCode),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.RelayerRejectedError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &types.RelayUnavailableError{
			Cause: fmt.Errorf("undecodable relay response: %w", err),
		}
	}

	return raw, nil
}
