package domain

import (
	"path/filepath"
	"strings"
)

// ContentKind is the tagged variant selecting a text extractor.
type ContentKind string

// Content kinds.
const (
	ContentPlainText   ContentKind = "plaintext"
	ContentMarkdown    ContentKind = "markdown"
	ContentPDF         ContentKind = "pdf"
	ContentCode        ContentKind = "code"
	ContentAudio       ContentKind = "audio"
	ContentUnsupported ContentKind = "unsupported"
)

// FileUpload is a raw file submitted for ingestion.
type FileUpload struct {
	// ID is the document id for the extracted text; defaults to the file name.
	ID string

	Tenant   string
	Name     string
	MIMEType string
	Data     []byte
	Metadata map[string]any
}

// Ext returns the lower-case file extension without the dot.
func (f *FileUpload) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), ".")
}

// BaseMIMEType strips parameters such as charset.
func (f *FileUpload) BaseMIMEType() string {
	mt, _, _ := strings.Cut(f.MIMEType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// DocumentID returns the id for text extracted from the file.
func (f *FileUpload) DocumentID() string {
	if f.ID != "" {
		return f.ID
	}
	return f.Name
}

// NewDocument builds a document from extracted text. The file metadata is
// copied and the file name, MIME type and content kind are recorded.
func (f *FileUpload) NewDocument(content string, kind ContentKind) Document {
	meta := CloneMetadata(f.Metadata)
	meta[MetaFileName] = f.Name
	meta[MetaSource] = "file"
	meta[MetaContentKind] = string(kind)
	if mt := f.BaseMIMEType(); mt != "" {
		meta[MetaMIMEType] = mt
	}
	return Document{
		ID:       f.DocumentID(),
		Tenant:   f.Tenant,
		Content:  content,
		Metadata: meta,
	}
}
