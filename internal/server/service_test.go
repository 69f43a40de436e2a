package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/async"
	"github.com/joseph-ayodele/kk-extractor/internal/extract"
	"github.com/joseph-ayodele/kk-extractor/internal/ingest"
	"github.com/joseph-ayodele/kk-extractor/internal/llm"
	"github.com/joseph-ayodele/kk-extractor/internal/pipeline"
)

const oneRecord = `[{"Nama":"SITI AMINAH","NIK":"3201234567890001","Tanggal Lahir":"01-02-2015","Nama Ayah":"BUDI","Nama Ibu":"SRI","No. KK":"3201987654321000","Alamat Lengkap":"KP. SUKA RT 001/RW 002"}]`

func init() {
	gin.SetMode(gin.TestMode)
}

type upload struct {
	name, mimeType string
	content        []byte
}

func multipartBody(t *testing.T, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.mimeType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newTestServer(t *testing.T, gen llm.GeneratorFunc) (*Server, *gin.Engine) {
	t.Helper()
	policy := llm.DefaultRetryPolicy()
	policy.Sleep = func(context.Context, time.Duration) error { return nil }
	ex, err := extract.NewExtractor(nil, gen, policy, nil)
	require.NoError(t, err)
	svc := pipeline.NewService(nil, ingest.NewExpander(nil), pipeline.NewScheduler(nil, ex, 5), nil, 1024*1024)

	srv := NewServer(Config{Pipeline: svc, MaxUploadBytes: 1024 * 1024}, nil)
	q := async.NewRunQueue(srv.ProcessJob, nil, async.WithWorkers(1))
	srv.UseQueue(q)
	t.Cleanup(func() { q.Shutdown(context.Background()) })
	return srv, srv.Router()
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func submit(t *testing.T, r http.Handler, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, files...)
	req := httptest.NewRequest(http.MethodPost, "/v1/extractions", body)
	req.Header.Set("Content-Type", ct)
	return do(r, req)
}

func waitForStatus(t *testing.T, r http.Handler, id string, status constants.RunStatus) runView {
	t.Helper()
	var view runView
	require.Eventually(t, func() bool {
		w := do(r, httptest.NewRequest(http.MethodGet, "/v1/extractions/"+id, nil))
		if w.Code != http.StatusOK {
			return false
		}
		view = runView{}
		if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
			return false
		}
		return view.Status == status
	}, 5*time.Second, 10*time.Millisecond)
	return view
}

func TestServer_CreateExtraction(t *testing.T) {
	t.Run("Error case - wrong type is rejected with every violation", func(t *testing.T) {
		_, r := newTestServer(t, func(context.Context, llm.GenerateRequest) (string, error) { return "[]", nil })

		w := submit(t, r,
			upload{"photo.png", "image/png", []byte("png")},
			upload{"notes.txt", "text/plain", []byte("txt")},
			upload{"kk.pdf", constants.MIMETypePDF, []byte("%PDF")},
		)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Violations, 2)
		assert.Contains(t, resp.Violations[0], "photo.png")
		assert.Contains(t, resp.Violations[1], "notes.txt")
	})

	t.Run("Error case - no files", func(t *testing.T) {
		_, r := newTestServer(t, func(context.Context, llm.GenerateRequest) (string, error) { return "[]", nil })
		w := submit(t, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error case - oversized file", func(t *testing.T) {
		_, r := newTestServer(t, func(context.Context, llm.GenerateRequest) (string, error) { return "[]", nil })
		w := submit(t, r, upload{"big.pdf", constants.MIMETypePDF, bytes.Repeat([]byte("x"), 1024*1024+1)})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "file size exceeds 1MB")
	})

	t.Run("Success case - run completes and exports", func(t *testing.T) {
		_, r := newTestServer(t, func(context.Context, llm.GenerateRequest) (string, error) { return oneRecord, nil })

		w := submit(t, r, upload{"KK Budi.pdf", constants.MIMETypePDF, []byte("%PDF-1.4")})
		require.Equal(t, http.StatusAccepted, w.Code)
		var created createResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		require.NotEqual(t, uuid.Nil, created.ID)

		view := waitForStatus(t, r, created.ID.String(), constants.RunStatusCompleted)
		assert.True(t, view.Progress.Done)
		assert.Equal(t, 1, view.Progress.Processed)
		require.NotNil(t, view.Summary)
		require.Len(t, view.Summary.Successful, 1)
		assert.Equal(t, "KK Budi", view.Summary.Successful[0].SourceName)
		assert.Empty(t, view.Summary.Failed)

		w = do(r, httptest.NewRequest(http.MethodGet, "/v1/extractions/"+created.ID.String()+"/export", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, constants.MIMETypeXLSX, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), constants.DefaultExportFileName)

		f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		assert.Equal(t, []string{"KK Budi"}, f.GetSheetList())
	})

	t.Run("Success case - failures are listed by name and reason", func(t *testing.T) {
		_, r := newTestServer(t, func(context.Context, llm.GenerateRequest) (string, error) {
			return "", &llm.StatusError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}
		})

		w := submit(t, r, upload{"kk-1.pdf", constants.MIMETypePDF, []byte("%PDF")})
		require.Equal(t, http.StatusAccepted, w.Code)
		var created createResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

		view := waitForStatus(t, r, created.ID.String(), constants.RunStatusCompleted)
		require.NotNil(t, view.Summary)
		require.Len(t, view.Summary.Failed, 1)
		assert.Equal(t, failureView{Name: "kk-1", Reason: constants.ReasonRateLimited}, view.Summary.Failed[0])

		w = do(r, httptest.NewRequest(http.MethodGet, "/v1/extractions/"+created.ID.String()+"/export", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestServer_ExportWhileRunning(t *testing.T) {
	release := make(chan struct{})
	_, r := newTestServer(t, func(ctx context.Context, _ llm.GenerateRequest) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return oneRecord, nil
	})

	w := submit(t, r, upload{"kk.pdf", constants.MIMETypePDF, []byte("%PDF")})
	require.Equal(t, http.StatusAccepted, w.Code)
	var created createResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	waitForStatus(t, r, created.ID.String(), constants.RunStatusRunning)
	w = do(r, httptest.NewRequest(http.MethodGet, "/v1/extractions/"+created.ID.String()+"/export", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	waitForStatus(t, r, created.ID.String(), constants.RunStatusCompleted)
}

func TestServer_Events(t *testing.T) {
	_, r := newTestServer(t, func(context.Context, llm.GenerateRequest) (string, error) { return oneRecord, nil })

	w := submit(t, r, upload{"kk.pdf", constants.MIMETypePDF, []byte("%PDF")})
	require.Equal(t, http.StatusAccepted, w.Code)
	var created createResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	waitForStatus(t, r, created.ID.String(), constants.RunStatusCompleted)

	w = do(r, httptest.NewRequest(http.MethodGet, "/v1/extractions/"+created.ID.String()+"/events", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "event:progress")
	assert.Contains(t, body, "event:done")
	assert.Less(t, strings.Index(body, "event:progress"), strings.Index(body, "event:done"))
}

func TestServer_Lookups(t *testing.T) {
	_, r := newTestServer(t, func(context.Context, llm.GenerateRequest) (string, error) { return "[]", nil })

	tests := []struct {
		name string
		path string
		code int
	}{
		{"unknown run", "/v1/extractions/" + uuid.NewString(), http.StatusNotFound},
		{"bad id", "/v1/extractions/not-a-uuid", http.StatusBadRequest},
		{"unknown export", "/v1/extractions/" + uuid.NewString() + "/export", http.StatusNotFound},
		{"unknown events", "/v1/extractions/" + uuid.NewString() + "/events", http.StatusNotFound},
		{"health", "/healthz", http.StatusOK},
		{"runs without history", "/v1/runs", http.StatusOK},
		{"runs bad limit", "/v1/runs?limit=x", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}
