package db

import "time"

// User is a registered account. PasswordHash holds a bcrypt hash and is
// never serialized.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// FileRecord is the metadata of one uploaded document. FilePath and
// CoverImagePath are relative blob paths of the form uploads/<name>.
type FileRecord struct {
	ID             int64     `json:"id"`
	UserID         *int64    `json:"user_id"`
	Title          string    `json:"title"`
	Category       string    `json:"category"`
	Division       string    `json:"division"`
	FilePath       string    `json:"file_path"`
	CoverImagePath *string   `json:"cover_image_path"`
	UploadDate     time.Time `json:"upload_date"`
}

// NewFile carries the fields supplied by an upload.
type NewFile struct {
	UserID         int64
	Title          string
	Category       string
	Division       string
	FilePath       string
	CoverImagePath *string
}
