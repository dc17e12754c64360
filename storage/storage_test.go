package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfscout/models"
)

func TestCardsFileName(t *testing.T) {
	at := time.UnixMilli(169900000)
	assert.Equal(t, "raw_cards_zapatos_169900000.html", CardsFileName("zapatos", at))
	assert.Equal(t, "raw_cards_gafas_de_sol_169900000.html", CardsFileName("gafas  de\tsol", at))

	tests := []struct {
		term string
		want string
	}{
		{"tornillo 1/2 pulgada", "raw_cards_tornillo_1_2_pulgada_169900000.html"},
		{"../x", "raw_cards___x_169900000.html"},
		{`a\b`, "raw_cards_a_b_169900000.html"},
		{"/../../escaped", "raw_cards______escaped_169900000.html"},
		{"nul\x00byte", "raw_cards_nul_byte_169900000.html"},
		{"v1.5", "raw_cards_v1.5_169900000.html"},
	}
	for _, tt := range tests {
		name := CardsFileName(tt.term, at)
		assert.Equal(t, tt.want, name, tt.term)
		assert.Equal(t, name, filepath.Base(name), tt.term)
	}
}

func TestWriteCards_TermStaysInsideHTMLDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "response_HTML")
	s := New(dir, t.TempDir())

	for _, term := range []string{"tornillo 1/2 pulgada", "/../../escaped", `a\b`} {
		path, err := s.WriteCards(term, time.UnixMilli(169900000), []string{"<li>1</li>"})
		require.NoError(t, err, term)
		assert.Equal(t, dir, filepath.Dir(path), term)

		got, err := s.ReadCards(filepath.Base(path))
		require.NoError(t, err, term)
		assert.Equal(t, "<li>1</li>", got)
	}
	assert.NoFileExists(t, filepath.Join(root, "escaped_169900000.html"))
}

type failingFile struct {
	artifactFile
	writeErr error
	closeErr error
}

func (f failingFile) WriteString(s string) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.artifactFile.WriteString(s)
}

func (f failingFile) Close() error {
	err := f.artifactFile.Close()
	if f.closeErr != nil {
		return f.closeErr
	}
	return err
}

func TestWriteCards_FailureLeavesNoArtifact(t *testing.T) {
	orig := openExclusive
	t.Cleanup(func() { openExclusive = orig })

	for _, ff := range []failingFile{
		{writeErr: errors.New("disk full")},
		{closeErr: errors.New("close failed")},
	} {
		ff := ff
		openExclusive = func(path string) (artifactFile, error) {
			f, err := orig(path)
			if err != nil {
				return nil, err
			}
			ff.artifactFile = f
			return ff, nil
		}

		dir := t.TempDir()
		s := New(dir, t.TempDir())
		_, err := s.WriteCards("zapatos", time.UnixMilli(7), []string{"<li>1</li>"})
		require.Error(t, err)
		assert.Equal(t, models.ErrCodeStorage, models.CodeOf(err))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	}
}

func TestWriteCards(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "response_HTML")
	s := New(dir, t.TempDir())

	cards := []string{`<li class="a">1</li>`, `<li class="a">2</li>`}
	path, err := s.WriteCards("gafas de sol", time.UnixMilli(1700000000000), cards)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "raw_cards_gafas_de_sol_1700000000000.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `<li class="a">1</li>`+"\n\n<!-- ---- -->\n\n"+`<li class="a">2</li>`, string(data))
}

func TestWriteCards_EmptyWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "response_HTML")
	s := New(dir, t.TempDir())

	_, err := s.WriteCards("zapatos", time.Now(), nil)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeNoCards))

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteCards_NeverOverwrites(t *testing.T) {
	s := New(t.TempDir(), t.TempDir())
	at := time.UnixMilli(42)

	_, err := s.WriteCards("x", at, []string{"a"})
	require.NoError(t, err)
	_, err = s.WriteCards("x", at, []string{"b"})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeStorage, models.CodeOf(err))
}

func TestReadCards(t *testing.T) {
	s := New(t.TempDir(), t.TempDir())
	path, err := s.WriteCards("zapatos", time.UnixMilli(1), []string{"<div>1</div>"})
	require.NoError(t, err)

	got, err := s.ReadCards(filepath.Base(path))
	require.NoError(t, err)
	assert.Equal(t, "<div>1</div>", got)

	_, err = s.ReadCards("../etc/passwd")
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))

	_, err = s.ReadCards("missing.html")
	assert.Equal(t, models.ErrCodeStorage, models.CodeOf(err))
}

func TestRecordsFileName(t *testing.T) {
	assert.Equal(t, "raw_cards_zapatos_169900000.json", RecordsFileName("raw_cards_zapatos_169900000.html"))
	assert.Equal(t, "cards.json", RecordsFileName("cards"))
}

func TestWriteRecords(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	s := New(t.TempDir(), dataDir)

	records := []models.Record{
		{ID: models.NewText("MCO1"), Title: models.NewText("Gafas"), Price: models.NewText("$ 59.900")},
	}
	path, err := s.WriteRecords("raw_cards_gafas_1.html", records)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "raw_cards_gafas_1.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {\n    \"ID\": \"MCO1\""))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Nil(t, decoded[0]["Image"])
	assert.Len(t, decoded[0], 5)
}

func TestWriteRecords_EmptyIsArray(t *testing.T) {
	s := New(t.TempDir(), t.TempDir())
	path, err := s.WriteRecords("a.html", nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestWriteSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diag", "captcha_detected.png")
	require.NoError(t, WriteSnapshot(path, []byte("png")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}
