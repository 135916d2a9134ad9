package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/caselawarchive/internal/models"
)

// PDFSplitter cuts a volume PDF into per-case documents. It does no storage I/O.
type PDFSplitter struct {
	conf *model.Configuration
}

func NewPDFSplitter() *PDFSplitter {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	// Keep the Info dict out of compressed object streams so stabilize can reach it.
	cfg.WriteObjectStream = false
	return &PDFSplitter{conf: cfg}
}

// Split reads the document once and extracts each case's pages in input order. Cases
// with an invalid range are dropped and reported as *PageRangeError, joined into the
// returned error; the remaining artifacts are still returned. An unreadable document
// fails the whole call.
func (s *PDFSplitter) Split(rs io.ReadSeeker, cases []models.CaseRecord) ([]models.CasePdfArtifact, error) {
	pdfCtx, err := api.ReadValidateAndOptimize(rs, s.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read volume PDF: %w", err)
	}
	pageCount := pdfCtx.PageCount

	artifacts := make([]models.CasePdfArtifact, 0, len(cases))
	var errs []error
	for _, c := range cases {
		if c.FirstPageOrder < 1 || c.LastPageOrder < c.FirstPageOrder || c.LastPageOrder > pageCount {
			errs = append(errs, &PageRangeError{FileName: c.FileName, First: c.FirstPageOrder, Last: c.LastPageOrder, PageCount: pageCount})
			continue
		}
		data, err := extractRange(pdfCtx, c.FirstPageOrder, c.LastPageOrder)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to extract pages %d-%d for case %s: %w", c.FirstPageOrder, c.LastPageOrder, c.FileName, err))
			continue
		}
		artifacts = append(artifacts, models.CasePdfArtifact{FileName: c.FileName, Data: data})
	}
	return artifacts, errors.Join(errs...)
}

func extractRange(pdfCtx *model.Context, first, last int) ([]byte, error) {
	pages := make([]int, last-first+1)
	for i := first; i <= last; i++ {
		pages[i-first] = i
	}
	caseCtx, err := pdfcpu.ExtractPages(pdfCtx, pages, false)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := api.WriteContext(caseCtx, &buf); err != nil {
		return nil, err
	}
	return stabilize(buf.Bytes()), nil
}

// fixedDate replaces the digits of every write-time date.
const fixedDate = "19700101000000"

var (
	pdfDate   = regexp.MustCompile(`/(?:CreationDate|ModDate)\s*\(D:(\d+)`)
	pdfFileID = regexp.MustCompile(`/ID\s*\[\s*<([0-9A-Fa-f]+)>\s*<([0-9A-Fa-f]+)>\s*\]`)
)

// stabilize rewrites the metadata the PDF writer derives from the wall clock: the Info
// dates and the trailer file ID. The file ID becomes a hash of the document itself.
// Every replacement keeps its length, so xref offsets stay valid.
func stabilize(data []byte) []byte {
	for _, m := range pdfDate.FindAllSubmatchIndex(data, -1) {
		fill(data[m[2]:m[3]], fixedDate, '0')
	}

	ids := pdfFileID.FindAllSubmatchIndex(data, -1)
	if len(ids) == 0 {
		return data
	}
	for _, m := range ids {
		fill(data[m[2]:m[3]], "", '0')
		fill(data[m[4]:m[5]], "", '0')
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	for _, m := range ids {
		fill(data[m[2]:m[3]], digest, '0')
		fill(data[m[4]:m[5]], digest, '0')
	}
	return data
}

// fill overwrites dst with src, padding with pad when src is shorter.
func fill(dst []byte, src string, pad byte) {
	n := copy(dst, src)
	for i := n; i < len(dst); i++ {
		dst[i] = pad
	}
}

// RangesOverlap reports whether any case starts at or before the previous case's last
// page. Such ranges are still split as given.
func RangesOverlap(cases []models.CaseRecord) bool {
	for i := 1; i < len(cases); i++ {
		if cases[i].FirstPageOrder <= cases[i-1].LastPageOrder {
			return true
		}
	}
	return false
}
