// Package storage persists retrieval and extraction artifacts on the local
// filesystem.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/use-agent/shelfscout/models"
)

// CardSeparator is written between card fragments in a retrieval artifact.
const CardSeparator = "\n\n<!-- ---- -->\n\n"

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeChar    = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)
	dotRun        = regexp.MustCompile(`\.{2,}`)
)

// openExclusive creates a new artifact file, failing if it exists.
var openExclusive = func(path string) (artifactFile, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

type artifactFile interface {
	WriteString(s string) (int, error)
	Close() error
}

// Store locates artifacts under two directories.
type Store struct {
	HTMLDir string
	DataDir string
}

// New returns a Store.
func New(htmlDir, dataDir string) *Store {
	return &Store{HTMLDir: htmlDir, DataDir: dataDir}
}

// CardsFileName is the artifact name for term retrieved at at:
// raw_cards_<term>_<unix-ms>.html with whitespace runs, path separators,
// other characters unsafe in file names and ".." runs in term replaced by
// underscores. The result is always a single path element.
func CardsFileName(term string, at time.Time) string {
	safe := whitespaceRun.ReplaceAllString(term, "_")
	safe = unsafeChar.ReplaceAllString(safe, "_")
	safe = dotRun.ReplaceAllString(safe, "_")
	return fmt.Sprintf("raw_cards_%s_%d.html", safe, at.UnixMilli())
}

// WriteCards persists a non-empty card batch and returns its path. The
// directory is created when missing. An existing artifact is never
// overwritten.
func (s *Store) WriteCards(term string, at time.Time, cards []string) (string, error) {
	if len(cards) == 0 {
		return "", models.NewScrapeError(models.ErrCodeNoCards, "refusing to write an empty card batch", nil)
	}
	if err := os.MkdirAll(s.HTMLDir, 0o755); err != nil {
		return "", models.NewScrapeError(models.ErrCodeStorage, "failed to create output directory", err)
	}

	path := filepath.Join(s.HTMLDir, CardsFileName(term, at))
	if filepath.Dir(path) != filepath.Clean(s.HTMLDir) {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("search term %q does not yield a file name inside %s", term, s.HTMLDir), nil)
	}
	f, err := openExclusive(path)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeStorage, "failed to create card artifact", err)
	}
	if _, err := f.WriteString(strings.Join(cards, CardSeparator)); err != nil {
		f.Close()
		os.Remove(path)
		return "", models.NewScrapeError(models.ErrCodeStorage, "failed to write card artifact", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", models.NewScrapeError(models.ErrCodeStorage, "failed to close card artifact", err)
	}
	return path, nil
}

// ReadCards returns the raw contents of a retrieval artifact. name must be
// a bare file name inside HTMLDir.
func (s *Store) ReadCards(name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("%q is not a file name inside %s", name, s.HTMLDir), nil)
	}
	data, err := os.ReadFile(filepath.Join(s.HTMLDir, name))
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeStorage, "failed to read card artifact", err)
	}
	return string(data), nil
}

// RecordsFileName maps an input artifact name to its output name:
// the base name with the extension replaced by .json.
func RecordsFileName(inputName string) string {
	base := filepath.Base(inputName)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
}

// WriteRecords writes records as an indented JSON array named after the
// input artifact and returns its path. Re-running replaces the file.
func (s *Store) WriteRecords(inputName string, records []models.Record) (string, error) {
	if records == nil {
		records = []models.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeInternal, "failed to encode records", err)
	}
	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return "", models.NewScrapeError(models.ErrCodeStorage, "failed to create data directory", err)
	}

	path := filepath.Join(s.DataDir, RecordsFileName(inputName))
	if err := writeFileAtomic(path, data); err != nil {
		return "", models.NewScrapeError(models.ErrCodeStorage, "failed to write records", err)
	}
	return path, nil
}

// WriteSnapshot stores a diagnostic screenshot, creating parent
// directories as needed.
func WriteSnapshot(path string, png []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, png, 0o644)
}

// writeFileAtomic writes through a temp file in the same directory so a
// reader never sees a partial array.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".records-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
