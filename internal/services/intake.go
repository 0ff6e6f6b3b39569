package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/diewo77/go-submittals/internal/models"
	"github.com/diewo77/go-submittals/internal/storage"
	"github.com/diewo77/go-submittals/internal/workflow"
)

// submittalWriter is the part of workflow.Engine intake needs.
type submittalWriter interface {
	CreateSubmittal(ctx context.Context, in workflow.SubmittalInput) (*models.Submittal, error)
	AttachDocument(ctx context.Context, submittalID uint, url string) error
}

// IntakeService handles quote requests from the public web form.
type IntakeService struct {
	Submittals submittalWriter
	Files      storage.FileStore
	Suffix     string
}

func NewIntakeService(w submittalWriter, files storage.FileStore, suffix string) *IntakeService {
	return &IntakeService{Submittals: w, Files: files, Suffix: suffix}
}

// WebSubmittal is the JSON body posted by the website.
type WebSubmittal struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	JobName         string `json:"job_name"`
	Notes           string `json:"notes"`
	AdditionalNotes string `json:"additional_notes"`
	PDFBase64       string `json:"pdf_base64"`
}

// ErrInvalidPDF is returned when an attachment is not base64 or not a PDF.
var ErrInvalidPDF = errors.New("attachment is not a valid PDF")

// Submit creates the submittal and, when a PDF came along, uploads it.
// Attachment problems are logged; they never fail the request.
func (s *IntakeService) Submit(ctx context.Context, in WebSubmittal) (*models.Submittal, error) {
	notes := in.Notes
	if strings.TrimSpace(notes) == "" {
		notes = in.AdditionalNotes
	}
	sub, err := s.Submittals.CreateSubmittal(ctx, workflow.SubmittalInput{
		Customer: workflow.CustomerInput{
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Email:     in.Email,
			Phone:     in.Phone,
		},
		JobName: in.JobName,
		Notes:   notes,
		Suffix:  s.Suffix,
	})
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.PDFBase64) == "" || s.Files == nil {
		return sub, nil
	}
	url, err := s.Attach(ctx, sub, in.PDFBase64)
	if err != nil {
		log.Printf("[intake] attachment for %s skipped: %v", sub.QuoteNumber, err)
		return sub, nil
	}
	sub.PDFURL = url
	return sub, nil
}

// Attach uploads a base64 PDF as the submittal's request document.
func (s *IntakeService) Attach(ctx context.Context, sub *models.Submittal, encoded string) (string, error) {
	if s.Files == nil {
		return "", storage.ErrDisabled
	}
	data, err := DecodePDF(encoded)
	if err != nil {
		return "", err
	}
	url, err := s.Files.Put(ctx, storage.RequestDocumentKey(sub.QuoteNumber), data, "application/pdf")
	if err != nil {
		return "", err
	}
	if err := s.Submittals.AttachDocument(ctx, sub.ID, url); err != nil {
		return "", err
	}
	return url, nil
}

// DecodePDF accepts raw base64 or a data URL and checks the PDF header.
func DecodePDF(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if i := strings.Index(encoded, ";base64,"); strings.HasPrefix(encoded, "data:") && i >= 0 {
		encoded = encoded[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrInvalidPDF
	}
	return data, nil
}
