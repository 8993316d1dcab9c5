package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/foliolabs/folio/internal/config"
	"github.com/foliolabs/folio/internal/epub"
	"github.com/foliolabs/folio/internal/store"
	"github.com/foliolabs/folio/internal/ui"
	"github.com/foliolabs/folio/pkg/models"
)

func main() {
	importFiles := flag.String("import", "", "Import epub file(s) into the library (comma-separated or glob pattern)")
	flag.StringVar(importFiles, "i", "", "Import epub file(s) (shorthand)")
	dbPath := flag.String("db", "", "Path to the library database (default: config directory)")
	showHelp := flag.Bool("help", false, "Show help message")
	flag.BoolVar(showHelp, "h", false, "Show help (shorthand)")

	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	// Route the standard logger to a file so session warnings never tear
	// the alt screen.
	if logPath, err := cfg.LogFile(); err == nil {
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err == nil {
			if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600); err == nil {
				log.SetOutput(f)
				defer f.Close()
			}
		}
	}

	dbFile, err := cfg.DatabaseFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving database path: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(filepath.Dir(dbFile), 0700); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating data directory: %v\n", err)
		os.Exit(1)
	}
	st, err := store.Open(dbFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening library: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	// Handle import mode
	if *importFiles != "" {
		if err := handleImport(cfg, st, *importFiles); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Positional arguments are files to import
	if flag.NArg() > 0 {
		files := strings.Join(flag.Args(), ",")
		if err := handleImport(cfg, st, files); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Run TUI mode
	app := ui.NewApp(cfg, st)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("folio - Terminal e-book reader")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  folio                       Start the reader")
	fmt.Println("  folio [files...]            Import epub files into the library")
	fmt.Println("  folio -i <files>            Import epub files (comma-separated)")
	fmt.Println("  folio -i 'books/*.epub'     Import files matching glob pattern")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -i, --import <files>   Import epub file(s) into the library")
	fmt.Println("  --db <path>            Library database path")
	fmt.Println("  -h, --help             Show this help message")
	fmt.Println()
	fmt.Println("Config: ~/.config/folio/config.json")
}

// handleImport parses each epub, extracts its cover, and records the book.
func handleImport(cfg *config.Config, st *store.Store, filesArg string) error {
	var files []string
	for _, pattern := range strings.Split(filesArg, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}

		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				return fmt.Errorf("no files found matching %q", pattern)
			}
		} else {
			files = append(files, matches...)
		}
	}

	var epubFiles []string
	for _, f := range files {
		if strings.HasSuffix(strings.ToLower(f), ".epub") {
			epubFiles = append(epubFiles, f)
		}
	}
	if len(epubFiles) == 0 {
		return errors.New("no epub files found")
	}

	fmt.Printf("Importing %d file(s)...\n", len(epubFiles))

	successCount := 0
	for _, filePath := range epubFiles {
		fmt.Printf("  Importing %s... ", filepath.Base(filePath))

		book, err := importBook(cfg, st, filePath)
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}

		fmt.Printf("OK\n")
		fmt.Printf("    Title: %s\n", book.Title)
		if book.Author != "" {
			fmt.Printf("    Author: %s\n", book.Author)
		}
		successCount++
	}

	fmt.Printf("\nImported %d/%d files.\n", successCount, len(epubFiles))

	if successCount < len(epubFiles) {
		return errors.New("some imports failed")
	}
	return nil
}

func importBook(cfg *config.Config, st *store.Store, filePath string) (models.Book, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return models.Book{}, err
	}
	if existing, err := st.BookByPath(absPath); err == nil {
		return existing, fmt.Errorf("already in library as %q", existing.Title)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return models.Book{}, err
	}
	doc, err := epub.Parse(data)
	if err != nil {
		return models.Book{}, err
	}

	title := doc.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	}

	book, err := st.AddBook(models.Book{
		Title:      title,
		Author:     doc.Author,
		FilePath:   absPath,
		FileFormat: models.FileFormatEPUB,
	})
	if err != nil {
		return models.Book{}, err
	}

	// Cover extraction is cosmetic; an import never fails over it.
	if cover, err := epub.ExtractCover(data, 0); err == nil {
		if coverPath, err := saveCover(cfg, book.ID, cover); err == nil {
			if err := st.UpdateBook(book.ID, models.BookPatch{CoverPath: &coverPath}); err == nil {
				book.CoverPath = coverPath
			}
		}
	}

	return book, nil
}

func saveCover(cfg *config.Config, bookID string, cover epub.CoverImage) (string, error) {
	dbFile, err := cfg.DatabaseFile()
	if err != nil {
		return "", err
	}
	coversDir := filepath.Join(filepath.Dir(dbFile), "covers")
	if err := os.MkdirAll(coversDir, 0700); err != nil {
		return "", err
	}

	ext := filepath.Ext(cover.Path)
	if ext == "" {
		ext = ".img"
	}
	coverPath := filepath.Join(coversDir, bookID+ext)
	if err := os.WriteFile(coverPath, cover.Data, 0600); err != nil {
		return "", err
	}
	return coverPath, nil
}
