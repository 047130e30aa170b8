package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/docsage/docsage/internal/source"
)

type mockFetcher struct {
	exportText   string
	exportErr    error
	exportMime   string
	downloadText string
	downloadErr  error

	exportCalls   int
	downloadCalls int
}

func (m *mockFetcher) Export(_ context.Context, _, exportMime string) (string, error) {
	m.exportCalls++
	m.exportMime = exportMime
	return m.exportText, m.exportErr
}

func (m *mockFetcher) Download(_ context.Context, _ string) (string, error) {
	m.downloadCalls++
	return m.downloadText, m.downloadErr
}

func TestText_GoogleDocExportsPlainText(t *testing.T) {
	fetcher := &mockFetcher{exportText: "doc body"}
	e := New(fetcher)

	text, ok, err := e.Text(context.Background(), "doc-1", source.MimeTypeGoogleDoc)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if !ok || text != "doc body" {
		t.Errorf("Text() = (%q, %v)", text, ok)
	}
	if fetcher.exportMime != source.ExportMimeText {
		t.Errorf("export mime = %q, want text/plain", fetcher.exportMime)
	}
	if fetcher.downloadCalls != 0 {
		t.Error("workspace file must not be downloaded")
	}
}

func TestText_SlidesExportsPlainText(t *testing.T) {
	fetcher := &mockFetcher{exportText: "slides"}
	e := New(fetcher)

	_, ok, err := e.Text(context.Background(), "slides-1", source.MimeTypeGoogleSlides)
	if err != nil || !ok {
		t.Fatalf("Text() = (ok=%v, err=%v)", ok, err)
	}
	if fetcher.exportMime != source.ExportMimeText {
		t.Errorf("export mime = %q", fetcher.exportMime)
	}
}

func TestText_SheetExportsCSV(t *testing.T) {
	fetcher := &mockFetcher{exportText: "a,b\n1,2"}
	e := New(fetcher)

	_, ok, err := e.Text(context.Background(), "sheet-1", source.MimeTypeGoogleSheet)
	if err != nil || !ok {
		t.Fatalf("Text() = (ok=%v, err=%v)", ok, err)
	}
	if fetcher.exportMime != source.ExportMimeCSV {
		t.Errorf("export mime = %q, want text/csv", fetcher.exportMime)
	}
}

func TestText_PlainTextDownloads(t *testing.T) {
	fetcher := &mockFetcher{downloadText: "readme"}
	e := New(fetcher)

	text, ok, err := e.Text(context.Background(), "file-1", "text/markdown")
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if !ok || text != "readme" {
		t.Errorf("Text() = (%q, %v)", text, ok)
	}
	if fetcher.exportCalls != 0 {
		t.Error("text file must not be exported")
	}
}

func TestText_UnsupportedSkips(t *testing.T) {
	fetcher := &mockFetcher{}
	e := New(fetcher)

	for _, mime := range []string{"image/png", "application/pdf", "video/mp4", source.MimeTypeFolder} {
		text, ok, err := e.Text(context.Background(), "file-1", mime)
		if err != nil {
			t.Errorf("Text(%q) error = %v, want nil skip", mime, err)
		}
		if ok || text != "" {
			t.Errorf("Text(%q) = (%q, %v), want skip", mime, text, ok)
		}
	}
	if fetcher.exportCalls != 0 || fetcher.downloadCalls != 0 {
		t.Error("unsupported types must not touch the fetcher")
	}
}

func TestText_ExportErrorPropagates(t *testing.T) {
	wantErr := errors.New("quota exceeded")
	e := New(&mockFetcher{exportErr: wantErr})

	_, ok, err := e.Text(context.Background(), "doc-1", source.MimeTypeGoogleDoc)
	if !ok {
		t.Error("supported type must report ok even on error")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapped %v", err, wantErr)
	}
}

func TestIsTextLike(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"text/plain", true},
		{"text/markdown", true},
		{"application/json", true},
		{"application/sql", true},
		{"application/pdf", false},
		{"image/jpeg", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isTextLike(tt.mime); got != tt.want {
			t.Errorf("isTextLike(%q) = %v, want %v", tt.mime, got, tt.want)
		}
	}
}
