package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-geocode-keys/internal/indexing"
	"github.com/gcbaptista/go-geocode-keys/internal/jobs"
	testutil "github.com/gcbaptista/go-geocode-keys/internal/testing"
	"github.com/gcbaptista/go-geocode-keys/model"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return setupTestRouterWithDataDir(t, t.TempDir())
}

func setupTestRouterWithDataDir(t *testing.T, dataDir string) *gin.Engine {
	t.Helper()
	router, _, _ := setupTestAPI(t, dataDir)
	return router
}

func setupTestAPI(t *testing.T, dataDir string) (*gin.Engine, *indexing.Service, *jobs.Manager) {
	t.Helper()
	svc := testutil.CreateTestService(t, 1)
	jobManager := testutil.CreateTestJobManager(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware(), CORSMiddleware(), RequestSizeLimitMiddleware(1<<20))
	SetupRoutes(router, svc, jobManager, dataDir)
	return router, svc, jobManager
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestHealthCheckHandler(t *testing.T) {
	router := setupTestRouter(t)
	w, body := do(t, router, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestTokenizeHandler(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantTokens []interface{}
		wantLonLat []interface{}
	}{
		{"cyrillic", TokenizeRequest{Text: "Москва"}, http.StatusOK, []interface{}{"moskva"}, nil},
		{"synonyms", TokenizeRequest{Text: "Main St, Main Street"}, http.StatusOK, []interface{}{"main", "st", "main", "street"}, nil},
		{"coordinates", TokenizeRequest{Text: "-73.98,40.75", CoerceNumeric: true}, http.StatusOK, []interface{}{}, []interface{}{-73.98, 40.75}},
		{"invalid JSON", "not json", http.StatusBadRequest, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, router, "POST", "/tokenize", tt.body)
			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, string(ErrorCodeInvalidJSON), body["code"])
				return
			}
			assert.Equal(t, tt.wantTokens, body["tokens"])
			if tt.wantLonLat != nil {
				assert.Equal(t, tt.wantLonLat, body["lonlat"])
			}
		})
	}
}

func TestTermsHandler(t *testing.T) {
	router := setupTestRouter(t)

	w, body := do(t, router, "POST", "/terms", TermsRequest{Tokens: []string{"foo", "bar"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{2851307216.0, 1991736592.0}, body["terms"])
	assert.Equal(t, map[string]interface{}{"2851307216": "foo", "1991736592": "bar"}, body["map"])

	w, body = do(t, router, "POST", "/terms", TermsRequest{Text: "Foo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{2851307216.0}, body["terms"])
}

func TestDegensHandler(t *testing.T) {
	router := setupTestRouter(t)

	w, body := do(t, router, "GET", "/degens/foobarbaz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	degens, ok := body["degens"].([]interface{})
	require.True(t, ok)
	require.Len(t, degens, 8)
	assert.Equal(t, map[string]interface{}{
		"prefix": "foobarbaz", "key": 1617781328.0, "value": 1617781328.0, "distance": 0.0,
	}, degens[0])
	assert.Equal(t, map[string]interface{}{
		"prefix": "foo", "key": 2851307216.0, "value": 1617781334.0, "distance": 6.0,
	}, degens[6])

	w, body = do(t, router, "GET", "/degens/a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, body["degens"])

	w, body = do(t, router, "GET", "/degens/foo%20bar", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(ErrorCodeValidationFailed), body["code"])
}

func TestPhraseHandler(t *testing.T) {
	router := setupTestRouter(t)

	w, body := do(t, router, "POST", "/phrase", PhraseRequest{Text: "Foo Street"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2850635264.0, body["phrase"])
	assert.Equal(t, 1359.0, body["cluster"])

	w, body = do(t, router, "POST", "/phrase", PhraseRequest{Terms: []uint32{2851307216}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2850633776.0, body["phrase"])

	w, _ = do(t, router, "POST", "/phrase", PhraseRequest{Text: "  ,  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestZXYHandler(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   ErrorCode
		wantTileID float64
	}{
		{"tile path", "/zxy?id=1&zxy=14/3/2", http.StatusOK, "", 3<<39 + 2<<25 + 1},
		{"non-numeric segments", "/zxy?id=5&zxy=14/a/b", http.StatusOK, "", 5},
		{"missing y", "/zxy?id=1&zxy=14/3", http.StatusBadRequest, ErrorCodeValidationFailed, 0},
		{"local id too wide", "/zxy?id=33554432&zxy=14/3/2", http.StatusBadRequest, ErrorCodeTileRange, 0},
		{"negative id", "/zxy?id=-1&zxy=14/3/2", http.StatusBadRequest, ErrorCodeValidationFailed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, router, "GET", tt.path, nil)
			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, string(tt.wantCode), body["code"])
				return
			}
			assert.Equal(t, tt.wantTileID, body["tile_id"])
		})
	}
}

func TestCodeHandler(t *testing.T) {
	router := setupTestRouter(t)

	w, body := do(t, router, "GET", "/codes/126", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 92.0, body["key"])

	w, _ = do(t, router, "GET", "/codes/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssembleFeatureHandler(t *testing.T) {
	router := setupTestRouter(t)

	ctx := `{"relevance": 0.5, "records": [
		{"_extid": "place.1", "_text": "Chamonix-Mont-Blanc,Chamonix", "_center": [6.8694, 45.9237]},
		{"_extid": "country.1", "_text": "France"}
	]}`
	w, body := do(t, router, "POST", "/features/assemble", ctx)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Chamonix-Mont-Blanc, France", body["place_name"])
	assert.Equal(t, "Feature", body["type"])

	w, body = do(t, router, "POST", "/features/assemble", `{"records": [{"_text": "Foo"}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(ErrorCodeValidationFailed), body["code"])
	details := body["details"].([]interface{})
	assert.Equal(t, "center", details[0].(map[string]interface{})["field"])
}

func TestRecordRoutes(t *testing.T) {
	router := setupTestRouter(t)

	w, body := do(t, router, "PUT", "/records", `[
		{"_extid": "place.1", "_text": "Foo Street,Foo St", "_center": [6.8694, 45.9237]},
		{"_extid": "country.1", "_text": "Fooland", "_center": [6, 45]}
	]`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2.0, body["indexed"])

	w, body = do(t, router, "PUT", "/records", `{"_extid": "place.2", "_text": "Bar", "_center": [0, 0]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["indexed"])

	t.Run("invalid records", func(t *testing.T) {
		w, body := do(t, router, "PUT", "/records", `[{"_text": "Nowhere"}]`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Len(t, body["details"], 2)

		w, _ = do(t, router, "PUT", "/records", `[]`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w, body = do(t, router, "PUT", "/records", `"text"`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(ErrorCodeInvalidJSON), body["code"])
	})

	t.Run("postings", func(t *testing.T) {
		w, body := do(t, router, "GET", "/postings/term/2851307216", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, body["postings"], 2)

		w, body = do(t, router, "GET", "/postings/phrase/2850635264", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, body["postings"], 2)

		w, body = do(t, router, "GET", "/postings/grid/1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []interface{}{}, body["postings"])

		w, body = do(t, router, "GET", "/postings/bogus/1", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(ErrorCodeUnknownKind), body["code"])

		w, _ = do(t, router, "GET", "/postings/term/x", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("vocabulary", func(t *testing.T) {
		w, body := do(t, router, "GET", "/vocabulary?prefix=Foo", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "foo", body["prefix"])
		assert.Equal(t, 2.0, body["total"])

		w, body = do(t, router, "GET", "/vocabulary", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 5.0, body["total"])
	})

	t.Run("features", func(t *testing.T) {
		w, body := do(t, router, "POST", "/features", FeatureRequest{IDs: []string{"place.1", "country.1"}, Relevance: 1})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Foo Street, Fooland", body["place_name"])

		w, body = do(t, router, "POST", "/features", FeatureRequest{IDs: []string{"place.404"}})
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, string(ErrorCodeRecordNotFound), body["code"])

		w, _ = do(t, router, "POST", "/features", FeatureRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMiddleware(t *testing.T) {
	router := setupTestRouter(t)

	t.Run("request id is echoed into errors", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/codes/abc", nil)
		req.Header.Set("X-Request-ID", "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var body APIError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "req-123", body.RequestID)
		assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	})

	t.Run("CORS preflight", func(t *testing.T) {
		req, _ := http.NewRequest("OPTIONS", "/records", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

// waitForJob polls GET /jobs/:jobId until the job reaches a final status.
func waitForJob(t *testing.T, router *gin.Engine, jobID string) map[string]interface{} {
	t.Helper()
	var job map[string]interface{}
	require.Eventually(t, func() bool {
		w, body := do(t, router, "GET", "/jobs/"+jobID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		job = body
		switch body["status"] {
		case "completed", "failed", "cancelled":
			return true
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestJobRoutes(t *testing.T) {
	dataDir := t.TempDir()
	router := setupTestRouterWithDataDir(t, dataDir)

	t.Run("async indexing", func(t *testing.T) {
		w, body := do(t, router, "PUT", "/records?async=true", `[
			{"_extid": "place.1", "_text": "Chamonix", "_center": [6.87, 45.92]}
		]`)
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		jobID, _ := body["job_id"].(string)
		require.NotEmpty(t, jobID)

		job := waitForJob(t, router, jobID)
		assert.Equal(t, "completed", job["status"])
		assert.Equal(t, "index_records", job["type"])

		w, body = do(t, router, "GET", "/vocabulary?prefix=cham", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1.0, body["total"])
	})

	t.Run("async validation happens before submission", func(t *testing.T) {
		w, _ := do(t, router, "PUT", "/records?async=true", `[{"_text": "Nowhere"}]`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("persist", func(t *testing.T) {
		w, body := do(t, router, "POST", "/persist", nil)
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

		job := waitForJob(t, router, body["job_id"].(string))
		assert.Equal(t, "completed", job["status"])
		_, err := os.Stat(filepath.Join(dataDir, "manifest.msgpack"))
		assert.NoError(t, err)
	})

	t.Run("list and metrics", func(t *testing.T) {
		w, body := do(t, router, "GET", "/jobs", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2.0, body["total"])

		w, body = do(t, router, "GET", "/jobs?status=failed", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0.0, body["total"])

		w, _ = do(t, router, "GET", "/jobs?status=bogus", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w, body = do(t, router, "GET", "/jobs/metrics", nil)
		require.Equal(t, http.StatusOK, w.Code)
		metrics := body["metrics"].(map[string]interface{})
		assert.Equal(t, 2.0, metrics["jobs_created"])
	})

	t.Run("unknown job", func(t *testing.T) {
		w, body := do(t, router, "GET", "/jobs/nope", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, string(ErrorCodeJobNotFound), body["code"])
	})
}

func TestPersistWithoutDataDir(t *testing.T) {
	router := setupTestRouterWithDataDir(t, "")
	w, body := do(t, router, "POST", "/persist", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(ErrorCodePersistenceFailed), body["code"])
}

func TestPersistJobOverFixtures(t *testing.T) {
	dataDir := t.TempDir()
	router, svc, jobManager := setupTestAPI(t, dataDir)
	testutil.AddTestRecords(t, svc)

	w, body := do(t, router, "POST", "/features", FeatureRequest{IDs: []string{"address.1", "place.1", "region.1", "country.1"}, Relevance: 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "12 Rue du Lyret, Chamonix, Haute-Savoie, France", body["place_name"])

	w, body = do(t, router, "POST", "/persist", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	job := testutil.WaitForJobCompletion(t, jobManager, body["job_id"].(string), testutil.DefaultJobPollingOptions())
	testutil.AssertJobCompleted(t, job, model.JobTypePersist)

	restored := testutil.CreateTestService(t, 1)
	require.NoError(t, restored.Restore(dataDir))
	assert.Equal(t, svc.Stats(), restored.Stats())
}
