package models

import "time"

// File format constants
const (
	FileFormatEPUB = "epub"
	FileFormatPDF  = "pdf"
)

// ReadingStatus tracks where a book sits in the reader's queue.
type ReadingStatus string

const (
	StatusWantToRead ReadingStatus = "want-to-read"
	StatusReading    ReadingStatus = "reading"
	StatusFinished   ReadingStatus = "finished"
)

// AdvanceOnProgress returns the status a book should hold after a progress
// update. Want-to-read flips to reading on the first update; reading and
// finished never regress.
func (s ReadingStatus) AdvanceOnProgress() ReadingStatus {
	if s == StatusWantToRead {
		return StatusReading
	}
	return s
}

// Book represents an ebook in the library.
type Book struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Author          string        `json:"author"`
	FilePath        string        `json:"file_path"`
	FileFormat      string        `json:"file_format"`
	CoverPath       string        `json:"cover_path,omitempty"`
	CurrentLocation string        `json:"current_location,omitempty"`
	Progress        float64       `json:"progress"`     // 0-100, cached from the last relocation
	ReadingTime     int64         `json:"reading_time"` // accumulated seconds
	Status          ReadingStatus `json:"status"`
	Tags            []string      `json:"tags,omitempty"`
	AddedAt         time.Time     `json:"added_at"`
}

// BookPatch is a partial update to a book record. Nil fields are left
// untouched so concurrent writers to different fields never clobber
// each other.
type BookPatch struct {
	Title           *string
	Author          *string
	CoverPath       *string
	CurrentLocation *string
	Progress        *float64
	Status          *ReadingStatus
	Tags            *[]string
}

// Bookmark marks a position in a book. Multiple bookmarks may reference the
// same location; dedup, if any, is a UI concern.
type Bookmark struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	Location  string    `json:"location"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HighlightColor is one of the five supported highlight colors.
type HighlightColor string

const (
	ColorYellow HighlightColor = "yellow"
	ColorGreen  HighlightColor = "green"
	ColorBlue   HighlightColor = "blue"
	ColorPink   HighlightColor = "pink"
	ColorPurple HighlightColor = "purple"
)

// ValidColor reports whether c is one of the supported highlight colors.
func ValidColor(c HighlightColor) bool {
	switch c {
	case ColorYellow, ColorGreen, ColorBlue, ColorPink, ColorPurple:
		return true
	}
	return false
}

// Highlight represents a user's saved excerpt. At most one highlight exists
// per start location within a book; adding another replaces it.
type Highlight struct {
	ID            string         `json:"id"`
	BookID        string         `json:"book_id"`
	Text          string         `json:"text"`
	StartLocation string         `json:"start_location"`
	EndLocation   string         `json:"end_location"`
	Color         HighlightColor `json:"color"`
	Note          string         `json:"note,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Collection represents a user's book collection.
type Collection struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
