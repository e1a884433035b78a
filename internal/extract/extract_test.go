package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>口コミ調査</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">割って飲む </w:t></w:r><w:r><w:t>派が多い</w:t></w:r></w:p>
  </w:body>
</w:document>`

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestTextFromBytesDOCX(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": documentXML})

	for _, mime := range []string{mimeDOCX, "application/zip", ""} {
		text, err := TextFromBytes(context.Background(), data, mime, "research.docx")
		if err != nil {
			t.Fatalf("mime %q: %v", mime, err)
		}
		if text != "口コミ調査\n割って飲む 派が多い" {
			t.Fatalf("mime %q: unexpected text %q", mime, text)
		}
	}
}

func TestTextFromBytesDetectsDOCXBySignature(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": documentXML})
	if _, err := TextFromBytes(context.Background(), data, "application/octet-stream", "blob"); err != nil {
		t.Fatalf("expected docx detection from content, got %v", err)
	}
}

func TestTextFromBytesSniffsUntypedText(t *testing.T) {
	text, err := TextFromBytes(context.Background(), []byte("Xでの口コミ: 冷やすと最高"), "application/octet-stream", "pasted")
	if err != nil {
		t.Fatalf("TextFromBytes: %v", err)
	}
	if text != "Xでの口コミ: 冷やすと最高" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextFromBytesPlainText(t *testing.T) {
	text, err := TextFromBytes(context.Background(), []byte("\xef\xbb\xbf  レビュー一覧\n"), "text/plain; charset=utf-8", "notes.txt")
	if err != nil {
		t.Fatalf("TextFromBytes: %v", err)
	}
	if text != "レビュー一覧" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextFromBytesRejects(t *testing.T) {
	zipped := buildZip(t, map[string]string{"notes.txt": "hello"})
	if _, err := TextFromBytes(context.Background(), zipped, "application/zip", "notes.zip"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for plain zip, got %v", err)
	}
	if _, err := TextFromBytes(context.Background(), []byte{0xff, 0xfe, 0x00}, "text/plain", "bad.txt"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for invalid utf-8, got %v", err)
	}
	if _, err := TextFromBytes(context.Background(), []byte("   \n"), "text/plain", "blank.txt"); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := TextFromBytes(ctx, []byte("x"), "text/plain", "x.txt"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTextFromBytesBrokenPDF(t *testing.T) {
	_, err := TextFromBytes(context.Background(), []byte("%PDF-1.4 not really"), "", "scan.pdf")
	if err == nil || errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected a pdf parse error, got %v", err)
	}
}

func multipartRequest(t *testing.T, fileName, contentType string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(body); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/research/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestUploadReturnsText(t *testing.T) {
	resp := httptest.NewRecorder()
	newRouter().ServeHTTP(resp, multipartRequest(t, "voices.txt", "text/plain", []byte("すぐ抜ける")))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Text     string `json:"text"`
		FileName string `json:"fileName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Text != "すぐ抜ける" || body.FileName != "voices.txt" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestUploadErrors(t *testing.T) {
	r := newRouter()

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/research/extract", strings.NewReader(""))
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, multipartRequest(t, "photo.png", "image/png", []byte{0x89, 'P', 'N', 'G'}))
	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, multipartRequest(t, "blank.txt", "text/plain", []byte("  ")))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
}
