package classifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/firegrid/internal/domain"
	"github.com/couchcryptid/firegrid/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(url string) *Client {
	return NewClient(url, 5*time.Second, testMetrics(), discardLogger())
}

var sampleFeatures = domain.Features{VegetationIndex: 0.3, SurfaceTempC: 30, BurnProbability: 0.4}

func TestClient_Classify_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, contentTypeJSON, r.Header.Get(headerContentType))

		var got domain.Features
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, sampleFeatures, got)

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"probability":0.72}`))
	}))
	defer srv.Close()

	p, err := testClient(srv.URL).Classify(context.Background(), sampleFeatures)
	require.NoError(t, err)
	assert.InDelta(t, 0.72, p, 1e-12)
}

func TestClient_Classify_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("model loading"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Classify(context.Background(), sampleFeatures)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrClassifierUnavailable)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_Classify_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Classify(context.Background(), sampleFeatures)
	assert.ErrorIs(t, err, domain.ErrClassifierUnavailable)
}

func TestClient_Classify_RejectsBadProbability(t *testing.T) {
	for name, body := range map[string]string{
		"missing":  `{}`,
		"negative": `{"probability":-0.1}`,
		"too big":  `{"probability":1.5}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).Classify(context.Background(), sampleFeatures)
			assert.ErrorIs(t, err, domain.ErrClassifierUnavailable)
		})
	}
}

func TestClient_Classify_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := testClient(url).Classify(context.Background(), sampleFeatures)
	assert.ErrorIs(t, err, domain.ErrClassifierUnavailable)
}

func TestClient_FallsBackThroughScoreRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := domain.EnvironmentalRecord{VegetationIndex: 0.3, SurfaceTempC: 30, BurnProbability: 0.4}
	p, src := domain.ScoreRecord(context.Background(), rec, testClient(srv.URL), discardLogger())
	assert.Equal(t, domain.SourceFallback, src)
	assert.InDelta(t, 0.365, p, 1e-9)
}
