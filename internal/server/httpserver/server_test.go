package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qrshare/qrshare/internal/logging"
	"github.com/qrshare/qrshare/internal/server/artifacts"
	"github.com/qrshare/qrshare/internal/server/blobs"
	"github.com/qrshare/qrshare/internal/server/custody"
	"github.com/qrshare/qrshare/internal/server/links"
	"github.com/qrshare/qrshare/internal/server/metrics"
	artifactrepo "github.com/qrshare/qrshare/internal/server/repositories/artifacts"
	"github.com/qrshare/qrshare/internal/server/repositories/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

const baseURL = "https://share.example.com"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	srv    *Server
	svc    *artifacts.Service
	signer *links.Signer
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	dir := t.TempDir()

	metaDB, err := bbolt.Open(filepath.Join(dir, "metadata.db"), 0o600, nil)
	require.NoError(t, err)
	keysDB, err := bbolt.Open(filepath.Join(dir, "keys.db"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = metaDB.Close()
		_ = keysDB.Close()
	})

	repo, err := artifactrepo.NewBoltRepository(metaDB)
	require.NoError(t, err)
	keyRepo, err := keys.NewBoltRepository(keysDB)
	require.NoError(t, err)
	store, err := blobs.NewFileStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	kc, err := custody.New(keyRepo, []byte("master"))
	require.NoError(t, err)

	svc := artifacts.NewService(repo, kc, store, artifacts.WithTTL(15*time.Minute))
	signer, err := links.NewSigner([]byte("link-secret"))
	require.NoError(t, err)

	srv := New(Options{BaseURL: baseURL + "/", MaxUploadBytes: maxUpload}, svc, signer, logging.Nop{}, metrics.Noop{})
	return &testServer{srv: srv, svc: svc, signer: signer}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, name string, data []byte, password string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	if password != "" {
		require.NoError(t, w.WriteField("password", password))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (ts *testServer) upload(t *testing.T, name string, data []byte, password string) uploadResponse {
	t.Helper()
	rec := ts.do(uploadRequest(t, name, data, password))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func tokenOf(link string) string {
	return link[strings.LastIndex(link, "/")+1:]
}

func TestUploadAndDownload_Public(t *testing.T) {
	ts := newTestServer(t, 0)
	resp := ts.upload(t, "hello.txt", []byte("hello world"), "")

	assert.NotEmpty(t, resp.ID)
	assert.True(t, strings.HasPrefix(resp.Link, baseURL+"/d/"), resp.Link)
	assert.Equal(t, baseURL+"/qr/"+resp.ID, resp.QR)
	assert.NotEmpty(t, resp.Key)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/d/"+tokenOf(resp.Link), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", rec.Body.String())
	assert.Equal(t, `attachment; filename=hello.txt`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", rec.Header().Get("X-Download-Count"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
}

func TestDownload_PasswordProtected(t *testing.T) {
	ts := newTestServer(t, 0)
	resp := ts.upload(t, "secret.bin", []byte("classified"), "pw")
	assert.Empty(t, resp.Key)
	path := "/d/" + tokenOf(resp.Link)

	rec := ts.do(httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "wrong password")

	form := func(pw string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("password="+pw))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req
	}

	rec = ts.do(form("nope"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(form("pw"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "classified", rec.Body.String())
}

func TestDownload_BadAndExpiredTokens(t *testing.T) {
	ts := newTestServer(t, 0)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/d/garbage", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "file not found")

	expired, err := ts.signer.Token("whatever", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/d/"+expired, nil))
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Contains(t, rec.Body.String(), "link expired")

	valid, err := ts.signer.Token("never-uploaded", time.Now().Add(time.Minute))
	require.NoError(t, err)
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/d/"+valid, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQRAndStats(t *testing.T) {
	ts := newTestServer(t, 0)
	resp := ts.upload(t, "a.txt", []byte("a"), "")

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/qr/"+resp.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	for i := 0; i < 3; i++ {
		ts.do(httptest.NewRequest(http.MethodGet, "/d/"+tokenOf(resp.Link), nil))
	}

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/stats/"+resp.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, statsResponse{ID: resp.ID, DownloadCount: 3}, stats)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/stats/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRevoke(t *testing.T) {
	ts := newTestServer(t, 0)
	a := ts.upload(t, "a.txt", []byte("a"), "")
	b := ts.upload(t, "b.txt", []byte("b"), "")

	// another artifact's token does not authorise
	req := httptest.NewRequest(http.MethodDelete, "/artifacts/"+a.ID, nil)
	req.Header.Set("Authorization", "Bearer "+tokenOf(b.Link))
	assert.Equal(t, http.StatusForbidden, ts.do(req).Code)

	req = httptest.NewRequest(http.MethodDelete, "/artifacts/"+a.ID+"?token="+tokenOf(a.Link), nil)
	assert.Equal(t, http.StatusNoContent, ts.do(req).Code)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/d/"+tokenOf(a.Link), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/qr/"+a.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload_Validation(t *testing.T) {
	ts := newTestServer(t, 16)

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(uploadRequest(t, "big.bin", bytes.Repeat([]byte("x"), 1024), ""))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, 0)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	ts := newTestServer(t, 0)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ts.srv.opts.Addr = l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.srv.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ts.srv.opts.Addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
