package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/use-agent/shelfscout/models"
)

// fieldAliases maps normalised response keys to record fields. When
// several aliases of one field are present, the earlier entry wins.
var fieldAliases = []struct{ key, field string }{
	{"id", "ID"},
	{"productid", "ID"},
	{"itemid", "ID"},
	{"sku", "ID"},
	{"title", "Title"},
	{"name", "Title"},
	{"productname", "Title"},
	{"título", "Title"},
	{"titulo", "Title"},
	{"price", "Price"},
	{"precio", "Price"},
	{"image", "Image"},
	{"imageurl", "Image"},
	{"img", "Image"},
	{"imagen", "Image"},
	{"description", "Description"},
	{"descripción", "Description"},
	{"descripcion", "Description"},
}

var aliasRank = func() map[string]int {
	m := make(map[string]int, len(fieldAliases))
	for i, a := range fieldAliases {
		m[a.key] = i
	}
	return m
}()

// normaliseKey lower-cases k and drops everything but letters and digits,
// so "Image URL", "image_url" and "imageUrl" collapse to "imageurl".
func normaliseKey(k string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(k) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// StripFence removes a surrounding ``` or ```json code fence.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseRecord parses one completion reply. The reply must be a JSON object,
// optionally fenced, with at least one recognised field. Missing fields are
// null; numbers and booleans become text.
func ParseRecord(reply string) (models.Record, error) {
	body := StripFence(reply)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return models.Record{}, models.NewScrapeError(models.ErrCodeParseFault, "reply is not a JSON object", err)
	}

	type candidate struct {
		text  models.Text
		rank  int
		exact bool
	}
	best := make(map[string]candidate, 5)

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	recognised := 0
	for _, key := range keys {
		rank, ok := aliasRank[normaliseKey(key)]
		if !ok {
			continue
		}
		text, err := decodeText(raw[key])
		if err != nil {
			return models.Record{}, models.NewScrapeError(models.ErrCodeParseFault,
				fmt.Sprintf("field %q", key), err)
		}
		recognised++

		// An exact key wins even when null; among aliases the lower rank wins.
		field := fieldAliases[rank].field
		c := candidate{text: text, rank: rank, exact: key == field}
		cur, seen := best[field]
		if !seen || (c.exact && !cur.exact) || (c.exact == cur.exact && c.rank < cur.rank) {
			best[field] = c
		}
	}

	if recognised == 0 {
		return models.Record{}, models.NewScrapeError(models.ErrCodeParseFault, "reply has no recognised fields", nil)
	}
	return models.Record{
		ID:          best["ID"].text,
		Title:       best["Title"].text,
		Price:       best["Price"].text,
		Image:       best["Image"].text,
		Description: best["Description"].text,
	}, nil
}

// decodeText accepts scalars through models.Text and keeps objects and
// arrays as compact JSON text.
func decodeText(value json.RawMessage) (models.Text, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return models.Text{}, err
		}
		return models.NewText(buf.String()), nil
	}
	var t models.Text
	if err := json.Unmarshal(trimmed, &t); err != nil {
		return models.Text{}, err
	}
	return t, nil
}
