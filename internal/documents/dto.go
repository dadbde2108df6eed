package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID  string    `json:"documentId"`
	FileName    string    `json:"fileName"`
	StoragePath string    `json:"storagePath"`
	MediaType   string    `json:"mediaType"`
	SizeBytes   int64     `json:"sizeBytes"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		StoragePath: doc.StoragePath,
		MediaType:   doc.MediaType,
		SizeBytes:   doc.SizeBytes,
		UploadedAt:  doc.CreatedAt,
	}
}

// TextResponse carries a plain-text preview of a document.
type TextResponse struct {
	DocumentID string `json:"documentId"`
	Text       string `json:"text"`
	Truncated  bool   `json:"truncated"`
}
