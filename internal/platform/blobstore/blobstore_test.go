package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/seniorcare/seniorcare/internal/platform/auth"
)

const pdfContent = "%PDF-1.4 test document"

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func seedBlob(t *testing.T, store BlobStore, ownerID, category, fileName, contentType, content string) *BlobMetadata {
	t.Helper()
	meta := BlobMetadata{
		FileName:    fileName,
		ContentType: contentType,
		OwnerID:     ownerID,
		Category:    category,
		CreatedBy:   "test-user",
	}
	result, err := store.Upload(context.Background(), meta, strings.NewReader(content))
	if err != nil {
		t.Fatalf("seedBlob: %v", err)
	}
	return result
}

// ---------------------------------------------------------------------------
// Store tests
// ---------------------------------------------------------------------------

func TestInMemoryBlobStore_Upload(t *testing.T) {
	store := NewInMemoryBlobStore()

	result, err := store.Upload(context.Background(), BlobMetadata{
		FileName:    "senior-id.png",
		ContentType: "image/png",
		OwnerID:     "owner-1",
		Category:    CategoryIDCard,
	}, strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ID == "" {
		t.Fatal("expected non-empty ID")
	}
	if result.Size != int64(len("png-bytes")) {
		t.Errorf("expected Size=%d, got %d", len("png-bytes"), result.Size)
	}
	if result.CreatedAt.IsZero() {
		t.Fatal("expected non-zero CreatedAt")
	}
	if result.OwnerID != "owner-1" {
		t.Errorf("expected OwnerID=owner-1, got %s", result.OwnerID)
	}
}

func TestInMemoryBlobStore_UploadDefaultsCategory(t *testing.T) {
	store := NewInMemoryBlobStore()
	result := seedBlob(t, store, "o1", "", "doc.pdf", "application/pdf", pdfContent)
	if result.Category != CategoryOther {
		t.Errorf("expected category %q, got %q", CategoryOther, result.Category)
	}
}

func TestInMemoryBlobStore_UploadValidation(t *testing.T) {
	store := NewInMemoryBlobStore()
	tests := []struct {
		name string
		meta BlobMetadata
		want error
	}{
		{"missing file name", BlobMetadata{OwnerID: "o", ContentType: "image/png"}, ErrMissingFileName},
		{"missing owner", BlobMetadata{FileName: "a.png", ContentType: "image/png"}, ErrMissingOwner},
		{"bad category", BlobMetadata{FileName: "a.png", OwnerID: "o", ContentType: "image/png", Category: "x-ray"}, ErrInvalidCategory},
		{"bad content type", BlobMetadata{FileName: "a.txt", OwnerID: "o", ContentType: "text/plain"}, ErrInvalidContentType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Upload(context.Background(), tt.meta, strings.NewReader("x"))
			if err != tt.want {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestInMemoryBlobStore_Upload_FileTooLarge(t *testing.T) {
	store := NewInMemoryBlobStore()
	big := bytes.NewReader(make([]byte, MaxFileSize+1))
	_, err := store.Upload(context.Background(), BlobMetadata{
		FileName: "big.pdf", ContentType: "application/pdf", OwnerID: "o",
	}, big)
	if err != ErrFileTooLarge {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestInMemoryBlobStore_SHA256Hash(t *testing.T) {
	store := NewInMemoryBlobStore()
	result := seedBlob(t, store, "o1", CategoryHealthDocument, "lab.pdf", "application/pdf", pdfContent)
	expected := fmt.Sprintf("%x", sha256.Sum256([]byte(pdfContent)))
	if result.Hash != expected {
		t.Errorf("expected hash %s, got %s", expected, result.Hash)
	}
}

func TestInMemoryBlobStore_DownloadAndDelete(t *testing.T) {
	store := NewInMemoryBlobStore()
	uploaded := seedBlob(t, store, "o1", CategoryBenefitDocument, "claim.pdf", "application/pdf", pdfContent)

	rc, meta, err := store.Download(context.Background(), uploaded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != pdfContent {
		t.Errorf("expected content %q, got %q", pdfContent, data)
	}
	if meta.FileName != "claim.pdf" {
		t.Errorf("expected FileName=claim.pdf, got %s", meta.FileName)
	}

	if err := store.Delete(context.Background(), uploaded.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := store.Download(context.Background(), uploaded.ID); err != ErrBlobNotFound {
		t.Errorf("expected ErrBlobNotFound after delete, got %v", err)
	}
	if err := store.Delete(context.Background(), uploaded.ID); err != ErrBlobNotFound {
		t.Errorf("expected ErrBlobNotFound on second delete, got %v", err)
	}
}

func TestInMemoryBlobStore_ListByOwner(t *testing.T) {
	store := NewInMemoryBlobStore()
	seedBlob(t, store, "owner-A", CategoryHealthDocument, "a1.pdf", "application/pdf", "a1")
	seedBlob(t, store, "owner-A", CategoryProfilePhoto, "a2.png", "image/png", "a2")
	seedBlob(t, store, "owner-A", CategoryHealthDocument, "a3.pdf", "application/pdf", "a3")
	seedBlob(t, store, "owner-B", CategoryOther, "b1.pdf", "application/pdf", "b1")

	results, total, err := store.ListByOwner(context.Background(), "owner-A", "", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(results) != 3 {
		t.Errorf("expected 3 results, got total=%d len=%d", total, len(results))
	}

	results, total, _ = store.ListByOwner(context.Background(), "owner-A", CategoryHealthDocument, 1, 0)
	if total != 2 {
		t.Errorf("expected total=2, got %d", total)
	}
	if len(results) != 1 {
		t.Errorf("expected page of 1, got %d", len(results))
	}

	results, _, _ = store.ListByOwner(context.Background(), "owner-A", "", 10, 50)
	if len(results) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(results))
	}
}

func TestInMemoryBlobStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryBlobStore()
	const goroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			store.Upload(context.Background(), BlobMetadata{
				FileName:    fmt.Sprintf("f%d.pdf", n),
				ContentType: "application/pdf",
				OwnerID:     "shared",
			}, strings.NewReader("x"))
		}(i)
	}
	wg.Wait()

	_, total, _ := store.ListByOwner(context.Background(), "shared", "", 100, 0)
	if total != goroutines {
		t.Errorf("expected %d blobs, got %d", goroutines, total)
	}
}

// ---------------------------------------------------------------------------
// Handler tests
// ---------------------------------------------------------------------------

func newTestServer(store BlobStore, userID string, roles ...string) *echo.Echo {
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), userID, roles)))
			return next(c)
		}
	})
	NewBlobHandler(store).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func multipartUpload(t *testing.T, fields map[string]string, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte(content))
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestBlobHandler_UploadSniffsContentType(t *testing.T) {
	store := NewInMemoryBlobStore()
	userID := uuid.New().String()
	e := newTestServer(store, userID, auth.RoleSenior)

	body, ct := multipartUpload(t, map[string]string{"category": CategoryHealthDocument}, "lab-results.pdf", pdfContent)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var result BlobMetadata
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("error unmarshaling response: %v", err)
	}
	if result.ContentType != "application/pdf" {
		t.Errorf("expected sniffed application/pdf, got %s", result.ContentType)
	}
	if result.OwnerID != userID {
		t.Errorf("expected owner to default to caller, got %s", result.OwnerID)
	}
}

func TestBlobHandler_UploadRejectsUnsupportedType(t *testing.T) {
	e := newTestServer(NewInMemoryBlobStore(), uuid.New().String(), auth.RoleSenior)

	body, ct := multipartUpload(t, nil, "notes.txt", "just some plain text")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBlobHandler_UploadForOtherUserForbidden(t *testing.T) {
	e := newTestServer(NewInMemoryBlobStore(), uuid.New().String(), auth.RoleCaregiver)

	body, ct := multipartUpload(t, map[string]string{"owner_id": uuid.New().String()}, "a.pdf", pdfContent)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestBlobHandler_DownloadAndMetadata(t *testing.T) {
	store := NewInMemoryBlobStore()
	ownerID := uuid.New().String()
	uploaded := seedBlob(t, store, ownerID, CategoryHealthDocument, "report.pdf", "application/pdf", pdfContent)

	// Caregivers may read any senior's files.
	e := newTestServer(store, uuid.New().String(), auth.RoleCaregiver)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files/"+uploaded.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != pdfContent {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "report.pdf") {
		t.Errorf("expected filename in Content-Disposition, got %q", rec.Header().Get("Content-Disposition"))
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files/"+uploaded.ID+"/metadata", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestBlobHandler_Delete(t *testing.T) {
	store := NewInMemoryBlobStore()
	ownerID := uuid.New().String()
	uploaded := seedBlob(t, store, ownerID, CategoryOther, "x.pdf", "application/pdf", pdfContent)

	rec := httptest.NewRecorder()
	newTestServer(store, uuid.New().String(), auth.RoleCaregiver).
		ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/files/"+uploaded.ID, nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected caregiver delete to be forbidden, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	newTestServer(store, ownerID, auth.RoleSenior).
		ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/files/"+uploaded.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestBlobHandler_ListByOwner(t *testing.T) {
	store := NewInMemoryBlobStore()
	ownerID := uuid.New().String()
	seedBlob(t, store, ownerID, CategoryProfilePhoto, "me.png", "image/png", "p")
	seedBlob(t, store, ownerID, CategoryIDCard, "id.png", "image/png", "i")

	rec := httptest.NewRecorder()
	newTestServer(store, ownerID, auth.RoleSenior).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/"+ownerID+"/files?category=id-card", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Data  []BlobMetadata `json:"data"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Data) != 1 || resp.Data[0].FileName != "id.png" {
		t.Errorf("unexpected response: %+v", resp)
	}
}
