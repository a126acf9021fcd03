package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docmanager-backend/internal/bootstrap"
	"docmanager-backend/internal/inspect/inspecttest"
	"docmanager-backend/internal/shared/config"
)

type testEnv struct {
	app    *bootstrap.App
	router *gin.Engine
}

func newTestEnv(t *testing.T, publicLinks bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	app, err := bootstrap.Build(config.Config{
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		SecretKey:       "test-secret",
		Algorithm:       "HS256",
		AccessTokenTTL:  time.Minute,
		BcryptCost:      4,
		StorageBackend:  "local",
		LocalStoreDir:   t.TempDir(),
		PublicFileLinks: publicLinks,
	})
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return &testEnv{app: app, router: app.Router}
}

func (e *testEnv) user(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := e.app.UsersService.Register(ctx, email, email, "pw"); err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	tok, _, err := e.app.UsersService.Login(ctx, email, "pw")
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return tok.Value
}

func (e *testEnv) admin(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()
	if _, _, err := e.app.UsersService.EnsureAdmin(ctx, email, "Admin", "pw"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	tok, _, err := e.app.UsersService.Login(ctx, email, "pw")
	if err != nil {
		t.Fatalf("login admin: %v", err)
	}
	return tok.Value
}

func (e *testEnv) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func uploadRequest(t *testing.T, filename string, content []byte, metadata string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.WriteField("document", metadata); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func meta(filename, owner string) string {
	return fmt.Sprintf(`{"filename":%q,"document_type":"report","email":%q}`, filename, owner)
}

type uploaded struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	DocumentType string `json:"document_type"`
	Email        string `json:"email"`
	UploadedBy   string `json:"uploaded_by"`
}

func (e *testEnv) upload(t *testing.T, token, filename string, content []byte, owner string) uploaded {
	t.Helper()
	resp := e.do(uploadRequest(t, filename, content, meta(filename, owner)), token)
	if resp.Code != http.StatusOK {
		t.Fatalf("upload %s: expected 200, got %d: %s", filename, resp.Code, resp.Body.String())
	}
	var out uploaded
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	return out
}

func TestUploadFlow(t *testing.T) {
	env := newTestEnv(t, false)
	alice := env.user(t, "a@x.com")
	root := env.admin(t, "root@x.com")

	doc := env.upload(t, root, "report.pdf", inspecttest.PDF(), "a@x.com")
	if doc.ID == "" || doc.Filename != "report.pdf" || doc.Email != "a@x.com" || doc.UploadedBy != "root@x.com" {
		t.Fatalf("unexpected upload response: %+v", doc)
	}

	dup := env.do(uploadRequest(t, "report.pdf", inspecttest.PDF(), meta("report.pdf", "a@x.com")), alice)
	if dup.Code != http.StatusBadRequest {
		t.Fatalf("duplicate: expected 400, got %d", dup.Code)
	}

	cases := []struct {
		name     string
		filename string
		content  []byte
		metadata string
		token    string
		want     int
	}{
		{"no token", "a.txt", []byte("hi"), meta("a.txt", "a@x.com"), "", http.StatusUnauthorized},
		{"bad extension", "a.exe", []byte("MZ"), meta("a.exe", "a@x.com"), alice, http.StatusBadRequest},
		{"unknown owner", "a.txt", []byte("hi"), meta("a.txt", "ghost@x.com"), alice, http.StatusBadRequest},
		{"bad envelope", "a.txt", []byte("hi"), `{not json`, alice, http.StatusBadRequest},
		{"content mismatch", "a.docx", []byte("plain text"), meta("a.docx", "a@x.com"), alice, http.StatusBadRequest},
		{"corrupt pdf", "broken.pdf", inspecttest.CorruptPDF(), meta("broken.pdf", "a@x.com"), alice, http.StatusBadRequest},
		{"too large", "big.txt", bytes.Repeat([]byte("a"), 10<<20+1), meta("big.txt", "a@x.com"), alice, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		resp := env.do(uploadRequest(t, tc.filename, tc.content, tc.metadata), tc.token)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.want, resp.Code, resp.Body.String())
		}
	}

	docx := env.upload(t, alice, "notes.docx", inspecttest.DOCX("meeting notes"), "a@x.com")
	if docx.Filename != "notes.docx" {
		t.Fatalf("unexpected docx upload: %+v", docx)
	}
}

func TestDeleteRequiresOwnerOrAdmin(t *testing.T) {
	env := newTestEnv(t, false)
	alice := env.user(t, "a@x.com")
	bob := env.user(t, "b@x.com")

	doc := env.upload(t, alice, "notes.txt", []byte("hello"), "a@x.com")

	resp := env.do(httptest.NewRequest(http.MethodDelete, "/api/documents/delete/"+doc.ID, nil), bob)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("non-owner delete: expected 403, got %d", resp.Code)
	}

	resp = env.do(httptest.NewRequest(http.MethodDelete, "/api/documents/delete/"+doc.ID, nil), alice)
	if resp.Code != http.StatusOK {
		t.Fatalf("owner delete: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var out struct {
		Message           string `json:"message"`
		DriveFilesDeleted int    `json:"drive_files_deleted"`
		Filename          string `json:"filename"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode delete: %v", err)
	}
	if out.Message != "File deleted successfully" || out.DriveFilesDeleted != 1 || out.Filename != "notes.txt" {
		t.Fatalf("unexpected delete response: %+v", out)
	}

	resp = env.do(httptest.NewRequest(http.MethodDelete, "/api/documents/delete/"+doc.ID, nil), alice)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", resp.Code)
	}
}

func TestDeleteMalformedIDReturns404(t *testing.T) {
	env := newTestEnv(t, false)
	alice := env.user(t, "a@x.com")

	resp := env.do(httptest.NewRequest(http.MethodDelete, "/api/documents/delete/abc", nil), alice)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("malformed id: expected 404, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestListDocumentsPaginates(t *testing.T) {
	env := newTestEnv(t, false)
	alice := env.user(t, "a@x.com")
	bob := env.user(t, "b@x.com")
	for i := 0; i < 7; i++ {
		env.upload(t, alice, fmt.Sprintf("doc-%d.txt", i), []byte("hello"), "a@x.com")
	}

	resp := env.do(httptest.NewRequest(http.MethodGet, "/api/documents/documents/a@x.com?page=2&per_page=5", nil), alice)
	if resp.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var page struct {
		Documents []struct {
			Email string `json:"email"`
		} `json:"documents"`
		Total      int `json:"total"`
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
		TotalPages int `json:"total_pages"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if page.Total != 7 || page.TotalPages != 2 || page.Page != 2 || page.PerPage != 5 || len(page.Documents) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Documents[0].Email != "a@x.com" {
		t.Fatalf("expected owner email in listing, got %q", page.Documents[0].Email)
	}

	resp = env.do(httptest.NewRequest(http.MethodGet, "/api/documents/documents/a@x.com", nil), bob)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("foreign list: expected 403, got %d", resp.Code)
	}
}

func TestDownloadAndPreview(t *testing.T) {
	env := newTestEnv(t, false)
	alice := env.user(t, "a@x.com")
	bob := env.user(t, "b@x.com")
	env.upload(t, alice, "notes.txt", []byte("hello world"), "a@x.com")

	resp := env.do(httptest.NewRequest(http.MethodGet, "/api/documents/download/a@x.com/notes.txt", nil), alice)
	if resp.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Content-Disposition"); got != `attachment; filename="notes.txt"` {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	if got := resp.Header().Get("Content-Length"); got != "11" {
		t.Fatalf("unexpected Content-Length %q", got)
	}
	if got := resp.Header().Get("Content-Type"); got != "text/plain" {
		t.Fatalf("unexpected Content-Type %q", got)
	}
	if resp.Body.String() != "hello world" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}

	if resp := env.do(httptest.NewRequest(http.MethodGet, "/api/documents/download/a@x.com/notes.txt", nil), ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous download: expected 401, got %d", resp.Code)
	}
	if resp := env.do(httptest.NewRequest(http.MethodGet, "/api/documents/download/a@x.com/notes.txt", nil), bob); resp.Code != http.StatusForbidden {
		t.Fatalf("foreign download: expected 403, got %d", resp.Code)
	}
	if resp := env.do(httptest.NewRequest(http.MethodGet, "/api/documents/download/a@x.com/missing.txt", nil), alice); resp.Code != http.StatusNotFound {
		t.Fatalf("missing download: expected 404, got %d", resp.Code)
	}

	resp = env.do(httptest.NewRequest(http.MethodGet, "/api/documents/preview/a@x.com/notes.txt", nil), alice)
	if resp.Code != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d", resp.Code)
	}
	var preview struct {
		PreviewURL string `json:"preview_url"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &preview); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if preview.PreviewURL == "" {
		t.Fatalf("expected preview url")
	}
}

func TestPublicFileLinksSkipAuth(t *testing.T) {
	env := newTestEnv(t, true)
	alice := env.user(t, "a@x.com")
	env.upload(t, alice, "notes.txt", []byte("hello"), "a@x.com")

	if resp := env.do(httptest.NewRequest(http.MethodGet, "/api/documents/download/a@x.com/notes.txt", nil), ""); resp.Code != http.StatusOK {
		t.Fatalf("public download: expected 200, got %d", resp.Code)
	}
	if resp := env.do(httptest.NewRequest(http.MethodGet, "/api/documents/preview/a@x.com/notes.txt", nil), ""); resp.Code != http.StatusOK {
		t.Fatalf("public preview: expected 200, got %d", resp.Code)
	}
}

func TestRecentUploads(t *testing.T) {
	env := newTestEnv(t, false)
	alice := env.user(t, "a@x.com")
	for i := 0; i < 3; i++ {
		env.upload(t, alice, fmt.Sprintf("doc-%d.txt", i), []byte("hello"), "a@x.com")
	}

	resp := env.do(httptest.NewRequest(http.MethodGet, "/api/documents/recent-uploads?limit=2", nil), alice)
	if resp.Code != http.StatusOK {
		t.Fatalf("recent: expected 200, got %d", resp.Code)
	}
	var items []struct {
		Filename string `json:"filename"`
		User     struct {
			Email    string `json:"email"`
			FullName string `json:"fullname"`
		} `json:"user"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode recent: %v", err)
	}
	if len(items) != 2 || items[0].User.Email != "a@x.com" {
		t.Fatalf("unexpected recent uploads: %+v", items)
	}
}
