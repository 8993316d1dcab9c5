package epub

import "errors"

// Sentinel errors returned by the epub package.
var (
	// ErrInvalidEPub indicates the file is not a valid ePub archive
	// (bad ZIP, missing container.xml and no .opf file found).
	ErrInvalidEPub = errors.New("epub: invalid ePub file")

	// ErrDRMProtected indicates the ePub is protected by DRM and cannot
	// be read.
	ErrDRMProtected = errors.New("epub: file is DRM protected")

	// ErrNoCover indicates no cover image could be detected using any of
	// the supported strategies.
	ErrNoCover = errors.New("epub: no cover image found")

	// ErrFileNotFound indicates a requested file does not exist in the
	// archive.
	ErrFileNotFound = errors.New("epub: file not found in archive")
)
