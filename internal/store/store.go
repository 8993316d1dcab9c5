// Package store is the persistent library: books, bookmarks, highlights and
// collections in a local sqlite database. All methods are synchronous and
// safe for concurrent use; writers to different fields of the same book never
// clobber each other because updates are per-field patches.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/foliolabs/folio/pkg/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// HighlightOp describes a single highlight mutation.
type HighlightOp int

const (
	HighlightAdded HighlightOp = iota
	HighlightUpdated
	HighlightRemoved
)

// HighlightEvent carries one highlight mutation to subscribers. Delivering
// the delta instead of a full snapshot keeps decoration sync proportional to
// what changed.
type HighlightEvent struct {
	Op        HighlightOp
	Highlight models.Highlight
}

// HighlightFunc observes highlight mutations for one book.
type HighlightFunc func(HighlightEvent)

// Store handles all library persistence.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	subs    map[int]subscription
	nextSub int
}

type subscription struct {
	bookID string
	fn     HighlightFunc
}

// Open opens (creating if needed) the library database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	s := &Store{db: db, subs: make(map[int]subscription)}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates the tables if they don't exist. The unique index on
// (book_id, start_location) with ON CONFLICT REPLACE gives highlights their
// upsert-by-start-address semantics at the schema level.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT,
		file_path TEXT UNIQUE NOT NULL,
		file_format TEXT,
		cover_path TEXT,
		current_location TEXT,
		progress REAL DEFAULT 0,
		reading_time INTEGER DEFAULT 0,
		status TEXT DEFAULT 'want-to-read',
		tags TEXT,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS bookmarks (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		location TEXT NOT NULL,
		note TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS highlights (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		text TEXT,
		start_location TEXT NOT NULL,
		end_location TEXT NOT NULL,
		color TEXT NOT NULL,
		note TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_highlight_start
		ON highlights (book_id, start_location);
	CREATE TABLE IF NOT EXISTS collections (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS collection_books (
		collection_id TEXT NOT NULL,
		book_id TEXT NOT NULL,
		PRIMARY KEY (collection_id, book_id)
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}

const bookColumns = `id, title, author, file_path, file_format, cover_path,
	current_location, progress, reading_time, status, tags, added_at`

func scanBook(row interface{ Scan(...any) error }) (models.Book, error) {
	var b models.Book
	var tags string
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.FilePath, &b.FileFormat,
		&b.CoverPath, &b.CurrentLocation, &b.Progress, &b.ReadingTime,
		&b.Status, &tags, &b.AddedAt)
	if err != nil {
		return models.Book{}, err
	}
	if tags != "" {
		b.Tags = strings.Split(tags, ",")
	}
	return b, nil
}

// AddBook inserts a book. A missing ID or AddedAt is filled in; the stored
// record is returned.
func (s *Store) AddBook(b models.Book) (models.Book, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = models.StatusWantToRead
	}
	if b.AddedAt.IsZero() {
		b.AddedAt = time.Now()
	}
	query := `INSERT INTO books (id, title, author, file_path, file_format,
		cover_path, current_location, progress, reading_time, status, tags, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, b.ID, b.Title, b.Author, b.FilePath, b.FileFormat,
		b.CoverPath, b.CurrentLocation, b.Progress, b.ReadingTime, b.Status,
		strings.Join(b.Tags, ","), b.AddedAt)
	if err != nil {
		return models.Book{}, fmt.Errorf("store: add book %q: %w", b.Title, err)
	}
	return b, nil
}

// GetBook returns a book by ID.
func (s *Store) GetBook(id string) (models.Book, error) {
	row := s.db.QueryRow("SELECT "+bookColumns+" FROM books WHERE id = ?", id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Book{}, fmt.Errorf("store: book %s: %w", id, ErrNotFound)
	}
	return b, err
}

// BookByPath returns the book imported from the given file path, if any.
func (s *Store) BookByPath(path string) (models.Book, error) {
	row := s.db.QueryRow("SELECT "+bookColumns+" FROM books WHERE file_path = ?", path)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Book{}, fmt.Errorf("store: path %s: %w", path, ErrNotFound)
	}
	return b, err
}

// ListBooks returns all books ordered by title.
func (s *Store) ListBooks() ([]models.Book, error) {
	return s.queryBooks("SELECT " + bookColumns + " FROM books ORDER BY title")
}

// SearchBooks returns books whose title or author matches the query.
func (s *Store) SearchBooks(q string) ([]models.Book, error) {
	term := "%" + q + "%"
	return s.queryBooks("SELECT "+bookColumns+` FROM books
		WHERE title LIKE ? OR author LIKE ? ORDER BY title`, term, term)
}

func (s *Store) queryBooks(query string, args ...any) ([]models.Book, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list books: %w", err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// RemoveBook deletes a book and its bookmarks, highlights, and collection
// memberships.
func (s *Store) RemoveBook(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM bookmarks WHERE book_id = ?",
		"DELETE FROM highlights WHERE book_id = ?",
		"DELETE FROM collection_books WHERE book_id = ?",
		"DELETE FROM books WHERE id = ?",
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("store: remove book %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// UpdateBook applies the non-nil fields of the patch to the book record.
// Fields the patch leaves nil are untouched, so a progress writer and a
// status writer racing on the same book both land.
func (s *Store) UpdateBook(id string, p models.BookPatch) error {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Author != nil {
		add("author", *p.Author)
	}
	if p.CoverPath != nil {
		add("cover_path", *p.CoverPath)
	}
	if p.CurrentLocation != nil {
		add("current_location", *p.CurrentLocation)
	}
	if p.Progress != nil {
		add("progress", *p.Progress)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.Tags != nil {
		add("tags", strings.Join(*p.Tags, ","))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := s.db.Exec("UPDATE books SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("store: update book %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: book %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddReadingTime atomically adds secs to a book's accumulated reading time.
func (s *Store) AddReadingTime(id string, secs int64) error {
	if secs <= 0 {
		return nil
	}
	res, err := s.db.Exec("UPDATE books SET reading_time = reading_time + ? WHERE id = ?", secs, id)
	if err != nil {
		return fmt.Errorf("store: add reading time for %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: book %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddBookmark inserts a bookmark and returns the stored record.
func (s *Store) AddBookmark(bm models.Bookmark) (models.Bookmark, error) {
	if bm.ID == "" {
		bm.ID = uuid.NewString()
	}
	if bm.CreatedAt.IsZero() {
		bm.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO bookmarks (id, book_id, location, note, created_at)
		VALUES (?, ?, ?, ?, ?)`, bm.ID, bm.BookID, bm.Location, bm.Note, bm.CreatedAt)
	if err != nil {
		return models.Bookmark{}, fmt.Errorf("store: add bookmark: %w", err)
	}
	return bm, nil
}

// ListBookmarks returns a book's bookmarks, newest first.
func (s *Store) ListBookmarks(bookID string) ([]models.Bookmark, error) {
	rows, err := s.db.Query(`SELECT id, book_id, location, note, created_at
		FROM bookmarks WHERE book_id = ? ORDER BY created_at DESC`, bookID)
	if err != nil {
		return nil, fmt.Errorf("store: list bookmarks: %w", err)
	}
	defer rows.Close()

	var out []models.Bookmark
	for rows.Next() {
		var bm models.Bookmark
		if err := rows.Scan(&bm.ID, &bm.BookID, &bm.Location, &bm.Note, &bm.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, bm)
	}
	return out, rows.Err()
}

// RemoveBookmark deletes a bookmark by ID.
func (s *Store) RemoveBookmark(id string) error {
	res, err := s.db.Exec("DELETE FROM bookmarks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("store: remove bookmark %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: bookmark %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddHighlight upserts a highlight. At most one highlight exists per start
// location within a book: inserting at an occupied start location replaces
// the previous highlight, and subscribers see it as an update.
func (s *Store) AddHighlight(h models.Highlight) (models.Highlight, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	if !models.ValidColor(h.Color) {
		return models.Highlight{}, fmt.Errorf("store: invalid highlight color %q", h.Color)
	}

	_, existed := s.highlightAt(h.BookID, h.StartLocation)

	_, err := s.db.Exec(`INSERT OR REPLACE INTO highlights
		(id, book_id, text, start_location, end_location, color, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.BookID, h.Text, h.StartLocation, h.EndLocation, h.Color, h.Note, h.CreatedAt)
	if err != nil {
		return models.Highlight{}, fmt.Errorf("store: add highlight: %w", err)
	}

	op := HighlightAdded
	if existed {
		op = HighlightUpdated
	}
	s.notify(h.BookID, HighlightEvent{Op: op, Highlight: h})
	return h, nil
}

// HighlightAt returns the highlight starting at the given location, if any.
func (s *Store) HighlightAt(bookID, startLocation string) (models.Highlight, bool) {
	return s.highlightAt(bookID, startLocation)
}

func (s *Store) highlightAt(bookID, startLocation string) (models.Highlight, bool) {
	row := s.db.QueryRow(`SELECT id, book_id, text, start_location, end_location,
		color, note, created_at FROM highlights
		WHERE book_id = ? AND start_location = ?`, bookID, startLocation)
	h, err := scanHighlight(row)
	return h, err == nil
}

// ListHighlights returns a book's highlights in insertion order.
func (s *Store) ListHighlights(bookID string) ([]models.Highlight, error) {
	rows, err := s.db.Query(`SELECT id, book_id, text, start_location, end_location,
		color, note, created_at FROM highlights
		WHERE book_id = ? ORDER BY created_at`, bookID)
	if err != nil {
		return nil, fmt.Errorf("store: list highlights: %w", err)
	}
	defer rows.Close()

	var out []models.Highlight
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// RemoveHighlight deletes a highlight by ID and notifies subscribers.
func (s *Store) RemoveHighlight(id string) error {
	row := s.db.QueryRow(`SELECT id, book_id, text, start_location, end_location,
		color, note, created_at FROM highlights WHERE id = ?`, id)
	h, err := scanHighlight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: highlight %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM highlights WHERE id = ?", id); err != nil {
		return fmt.Errorf("store: remove highlight %s: %w", id, err)
	}
	s.notify(h.BookID, HighlightEvent{Op: HighlightRemoved, Highlight: h})
	return nil
}

func scanHighlight(row interface{ Scan(...any) error }) (models.Highlight, error) {
	var h models.Highlight
	err := row.Scan(&h.ID, &h.BookID, &h.Text, &h.StartLocation, &h.EndLocation,
		&h.Color, &h.Note, &h.CreatedAt)
	return h, err
}

// SubscribeHighlights registers an observer for one book's highlight
// mutations. The returned function cancels the subscription.
func (s *Store) SubscribeHighlights(bookID string, fn HighlightFunc) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = subscription{bookID: bookID, fn: fn}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// notify delivers one mutation event to the book's subscribers, outside the
// subscriber lock.
func (s *Store) notify(bookID string, ev HighlightEvent) {
	s.mu.Lock()
	var fns []HighlightFunc
	for _, sub := range s.subs {
		if sub.bookID == bookID {
			fns = append(fns, sub.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// CreateCollection creates a named collection.
func (s *Store) CreateCollection(name string) (models.Collection, error) {
	c := models.Collection{ID: uuid.NewString(), Name: name, CreatedAt: time.Now()}
	_, err := s.db.Exec(`INSERT INTO collections (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.CreatedAt)
	if err != nil {
		return models.Collection{}, fmt.Errorf("store: create collection %q: %w", name, err)
	}
	return c, nil
}

// ListCollections returns all collections ordered by name.
func (s *Store) ListCollections() ([]models.Collection, error) {
	rows, err := s.db.Query("SELECT id, name, created_at FROM collections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("store: list collections: %w", err)
	}
	defer rows.Close()

	var out []models.Collection
	for rows.Next() {
		var c models.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddToCollection adds a book to a collection; already a member is a no-op.
func (s *Store) AddToCollection(collectionID, bookID string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO collection_books (collection_id, book_id)
		VALUES (?, ?)`, collectionID, bookID)
	if err != nil {
		return fmt.Errorf("store: add to collection: %w", err)
	}
	return nil
}

// RemoveFromCollection removes a book from a collection.
func (s *Store) RemoveFromCollection(collectionID, bookID string) error {
	_, err := s.db.Exec(`DELETE FROM collection_books WHERE collection_id = ? AND book_id = ?`,
		collectionID, bookID)
	if err != nil {
		return fmt.Errorf("store: remove from collection: %w", err)
	}
	return nil
}

// CollectionBooks returns the books in a collection ordered by title.
func (s *Store) CollectionBooks(collectionID string) ([]models.Book, error) {
	return s.queryBooks("SELECT "+bookColumns+` FROM books
		JOIN collection_books ON collection_books.book_id = books.id
		WHERE collection_books.collection_id = ? ORDER BY title`, collectionID)
}
