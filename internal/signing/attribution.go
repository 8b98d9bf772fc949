package signing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/openpredict/tradegate/pkg/types"
)

// Builder-attribution header names. The relay operator uses these to
// attribute gas sponsorship to the integrating application's billing
// account.
const (
	AttrAddressHeader    = "POLY_ADDRESS"
	AttrAPIKeyHeader     = "POLY_API_KEY"
	AttrSignatureHeader  = "POLY_SIGNATURE"
	AttrTimestampHeader  = "POLY_TIMESTAMP"
	AttrPassphraseHeader = "POLY_PASSPHRASE"
)

// AttributionRequest is the tuple bound to the API key by the HMAC.
// An empty Timestamp means "now"; when set, both signer modes produce
// bit-identical headers for identical inputs.
type AttributionRequest struct {
	Method    string `json:"method"`
	Path      string `json:"path"`
	Body      string `json:"body,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// AttributionSigner binds a request tuple to a registered API key.
// Two implementations exist: LocalAttributionSigner holds the HMAC
// secret in-process, RemoteAttributionSigner forwards the tuple to a
// separate signing service over HTTP.
type AttributionSigner interface {
	SignRequest(ctx context.Context, req *AttributionRequest) (map[string]string, error)
}

// LocalAttributionSigner computes the HMAC locally.
type LocalAttributionSigner struct {
	address    string
	apiKey     string
	secret     []byte // decoded urlsafe-base64 secret
	passphrase string
}

// NewLocalAttributionSigner validates and decodes the symmetric key
// triple. Missing or undecodable material is a ConfigurationError.
func NewLocalAttributionSigner(address, apiKey, secret, passphrase string) (*LocalAttributionSigner, error) {
	if apiKey == "" || secret == "" || passphrase == "" {
		return nil, newConfigError("attribution", "api key / secret / passphrase triple is incomplete")
	}

	// The secret is urlsafe base64, matching the venue's key export.
	secretBytes, err := base64.URLEncoding.DecodeString(secret)
	if err != nil {
		return nil, newConfigError("attribution", "secret is not valid urlsafe base64")
	}

	return &LocalAttributionSigner{
		address:    address,
		apiKey:     apiKey,
		secret:     secretBytes,
		passphrase: passphrase,
	}, nil
}

// SignRequest computes HMAC-SHA256 over timestamp+method+path+body and
// returns the full attribution header set.
func (s *LocalAttributionSigner) SignRequest(_ context.Context, req *AttributionRequest) (map[string]string, error) {
	if req.Method == "" || req.Path == "" {
		return nil, newSignatureError("method and path are required")
	}

	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = strconv.FormatInt(time.Now().Unix(), 10)
	}

	message := timestamp + req.Method + req.Path + req.Body

	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(message))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	attributionSignaturesTotal.WithLabelValues("local").Inc()

	headers := map[string]string{
		AttrAPIKeyHeader:     s.apiKey,
		AttrSignatureHeader:  signature,
		AttrTimestampHeader:  timestamp,
		AttrPassphraseHeader: s.passphrase,
	}
	if s.address != "" {
		headers[AttrAddressHeader] = s.address
	}

	return headers, nil
}

// RemoteAttributionSigner forwards the request tuple to a signing
// service that holds the secret, and returns whatever header set the
// service computed.
type RemoteAttributionSigner struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteAttributionSigner builds the HTTP-client mode of the
// attribution signer.
func NewRemoteAttributionSigner(baseURL string, timeout time.Duration) (*RemoteAttributionSigner, error) {
	if baseURL == "" {
		return nil, newConfigError("attribution", "signing service URL is empty")
	}

	return &RemoteAttributionSigner{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type remoteSignResponse struct {
	Headers   map[string]string `json:"headers"`
	Timestamp string            `json:"timestamp"`
}

// SignRequest posts the four-field tuple to the remote /sign endpoint.
func (s *RemoteAttributionSigner) SignRequest(ctx context.Context, req *AttributionRequest) (map[string]string, error) {
	if req.Method == "" || req.Path == "" {
		return nil, newSignatureError("method and path are required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal sign request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sign", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call signing service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		// The service has no secret loaded. Same failure class as a
		// locally missing secret.
		return nil, &types.ConfigurationError{Venue: "attribution", Missing: "signing service has no secret material"}
	case http.StatusBadRequest:
		return nil, newSignatureError("signing service rejected request: " + string(body))
	default:
		return nil, fmt.Errorf("signing service error (status %d): %s", resp.StatusCode, string(body))
	}

	var signResp remoteSignResponse
	if err := json.Unmarshal(body, &signResp); err != nil {
		return nil, fmt.Errorf("parse signing service response: %w", err)
	}

	attributionSignaturesTotal.WithLabelValues("remote").Inc()

	return signResp.Headers, nil
}
