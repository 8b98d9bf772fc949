package httpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openpredict/tradegate/internal/signing"
	"github.com/openpredict/tradegate/pkg/healthprobe"
)

func testServer(t *testing.T, signer signing.AttributionSigner) *Server {
	t.Helper()

	hc := healthprobe.New()
	hc.SetReady("signer", true)

	return New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: hc,
		Signer:        signer,
	})
}

func testLocalSigner(t *testing.T) *signing.LocalAttributionSigner {
	t.Helper()

	secret := base64.URLEncoding.EncodeToString([]byte("secret"))
	signer, err := signing.NewLocalAttributionSigner("0xabc", "api-key", secret, "pass")
	require.NoError(t, err)
	return signer
}

func postSign(t *testing.T, srv *Server, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/sign", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReadyRoutes(t *testing.T) {
	srv := testServer(t, testLocalSigner(t))

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestSignEndpoint(t *testing.T) {
	srv := testServer(t, testLocalSigner(t))

	rec := postSign(t, srv, signing.AttributionRequest{
		Method:    http.MethodPost,
		Path:      "/order",
		Body:      `{"order":{}}`,
		Timestamp: "1700000000",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp signResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "1700000000", resp.Timestamp)
	assert.Equal(t, "api-key", resp.Headers[signing.AttrAPIKeyHeader])
	assert.Equal(t, "1700000000", resp.Headers[signing.AttrTimestampHeader])
	assert.NotEmpty(t, resp.Headers[signing.AttrSignatureHeader])
}

func TestSignEndpointEchoesGeneratedTimestamp(t *testing.T) {
	srv := testServer(t, testLocalSigner(t))

	rec := postSign(t, srv, signing.AttributionRequest{
		Method: http.MethodPost,
		Path:   "/order",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp signResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Timestamp)
	assert.Equal(t, resp.Timestamp, resp.Headers[signing.AttrTimestampHeader],
		"signed timestamp must match the echoed one")
}

func TestSignEndpointValidation(t *testing.T) {
	tests := []struct {
		name     string
		payload  signing.AttributionRequest
		wantCode int
	}{
		{
			name:     "missing_method",
			payload:  signing.AttributionRequest{Path: "/order"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing_path",
			payload:  signing.AttributionRequest{Method: http.MethodGet},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, testLocalSigner(t))
			rec := postSign(t, srv, tt.payload)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestSignEndpointWithoutSecret(t *testing.T) {
	srv := testServer(t, nil)

	rec := postSign(t, srv, signing.AttributionRequest{
		Method: http.MethodPost,
		Path:   "/order",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRemoteSignerAgainstServer(t *testing.T) {
	// The served endpoint and the local signer must produce identical
	// headers for a fixed timestamp.
	local := testLocalSigner(t)
	srv := testServer(t, local)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	remote, err := signing.NewRemoteAttributionSigner(ts.URL, 0)
	require.NoError(t, err)

	req := &signing.AttributionRequest{
		Method:    http.MethodPost,
		Path:      "/order",
		Body:      `{"order":{"salt":1}}`,
		Timestamp: "1700000000",
	}

	remoteHeaders, err := remote.SignRequest(context.Background(), req)
	require.NoError(t, err)

	localHeaders, err := local.SignRequest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, localHeaders, remoteHeaders)
}
