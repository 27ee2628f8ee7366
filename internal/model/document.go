package model

import "time"

// Document is an attachment owned by an asset. The blob lives in the
// attachment store under StorageKey.
type Document struct {
	ID         int64     `json:"id"`
	AssetID    int64     `json:"product"`
	Filename   string    `json:"filename"`
	MIME       string    `json:"mime"`
	Size       int64     `json:"size"`
	StorageKey string    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}
