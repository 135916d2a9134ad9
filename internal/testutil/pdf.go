// Package testutil builds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/Lllllllleong/caselawarchive/internal/models"
)

// PageWidth is the MediaBox width of page n in PDFs built by MultiPagePDF. Tests use it
// to tell which source page ended up in an extracted document.
func PageWidth(n int) int {
	return 100 + n
}

// MultiPagePDF returns a minimal valid PDF with the given number of pages. Page n is
// PageWidth(n) points wide.
func MultiPagePDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	var kids bytes.Buffer
	for i := 0; i < pages; i++ {
		fmt.Fprintf(&kids, "%d 0 R ", 3+2*i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), pages))

	for i := 1; i <= pages; i++ {
		pageObj := 3 + 2*(i-1)
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d 200] /Resources << >> /Contents %d 0 R >>", PageWidth(i), pageObj+1))
		content := fmt.Sprintf("0 0 m %d 100 l S", i)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// CasesJSON encodes case records the way CasesMetadata.json stores them.
func CasesJSON(t testing.TB, cases []models.CaseRecord) []byte {
	t.Helper()
	data, err := json.Marshal(cases)
	if err != nil {
		t.Fatalf("failed to marshal cases: %v", err)
	}
	return data
}

// Zip builds an archive holding the given members in order.
func Zip(t testing.TB, members map[string][]byte, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to create zip member %s: %v", name, err)
		}
		if _, err := w.Write(members[name]); err != nil {
			t.Fatalf("failed to write zip member %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}
