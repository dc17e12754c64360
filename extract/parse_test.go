package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfscout/models"
)

func TestStripFence(t *testing.T) {
	want := `{"ID":"1"}`
	for _, in := range []string{
		want,
		"  " + want + "\n",
		"```json\n" + want + "\n```",
		"```JSON\n" + want + "\n```",
		"```\n" + want + "\n```",
		"```json" + want + "```",
	} {
		assert.Equal(t, want, StripFence(in), "input %q", in)
	}
}

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord("```json\n" + `{
		"ID": "MLA123",
		"Title": "Yerba mate 1kg",
		"Price": 1299.5,
		"Image (url)": "https://img.example/yerba.jpg",
		"Description": null
	}` + "\n```")
	require.NoError(t, err)

	assert.Equal(t, models.NewText("MLA123"), rec.ID)
	assert.Equal(t, models.NewText("Yerba mate 1kg"), rec.Title)
	assert.Equal(t, models.NewText("1299.5"), rec.Price)
	assert.Equal(t, models.NewText("https://img.example/yerba.jpg"), rec.Image)
	assert.False(t, rec.Description.Valid)
}

func TestParseRecord_Aliases(t *testing.T) {
	tests := []struct {
		reply string
		check func(models.Record) models.Text
		want  string
	}{
		{`{"name":"Mate"}`, func(r models.Record) models.Text { return r.Title }, "Mate"},
		{`{"image_url":"a.png"}`, func(r models.Record) models.Text { return r.Image }, "a.png"},
		{`{"Image URL":"b.png"}`, func(r models.Record) models.Text { return r.Image }, "b.png"},
		{`{"imageUrl":"c.png"}`, func(r models.Record) models.Text { return r.Image }, "c.png"},
		{`{"precio":"$ 10"}`, func(r models.Record) models.Text { return r.Price }, "$ 10"},
		{`{"id":42}`, func(r models.Record) models.Text { return r.ID }, "42"},
		{`{"description":true}`, func(r models.Record) models.Text { return r.Description }, "true"},
	}
	for _, tt := range tests {
		rec, err := ParseRecord(tt.reply)
		require.NoError(t, err, tt.reply)
		assert.Equal(t, models.NewText(tt.want), tt.check(rec), tt.reply)
	}
}

func TestParseRecord_ExactKeyWins(t *testing.T) {
	rec, err := ParseRecord(`{"name":"alias","Title":"exact"}`)
	require.NoError(t, err)
	assert.Equal(t, "exact", rec.Title.Value)
}

func TestParseRecord_ResolutionIsStable(t *testing.T) {
	for i := 0; i < 200; i++ {
		rec, err := ParseRecord(`{"Title": null, "name": "Yerba Mate", "ID": "1"}`)
		require.NoError(t, err)
		assert.False(t, rec.Title.Valid, "exact null must win over alias")
		assert.Equal(t, models.NewText("1"), rec.ID)

		rec, err = ParseRecord(`{"imageUrl": "b.png", "img": "c.png", "image": "a.png", "Image URL": "d.png"}`)
		require.NoError(t, err)
		assert.Equal(t, models.NewText("a.png"), rec.Image)

		rec, err = ParseRecord(`{"image_url": "x.png", "imageUrl": "y.png"}`)
		require.NoError(t, err)
		assert.Equal(t, models.NewText("x.png"), rec.Image)
	}
}

func TestParseRecord_NestedValueKeptAsJSON(t *testing.T) {
	rec, err := ParseRecord(`{"Title":"Mate","Image":{"url": "a.png"}}`)
	require.NoError(t, err)
	assert.Equal(t, `{"url":"a.png"}`, rec.Image.Value)
}

func TestParseRecord_Failures(t *testing.T) {
	for _, reply := range []string{
		"",
		"Sorry, I cannot help with that.",
		`["ID","Title"]`,
		`{"ID": "1"`,
		`{"colour":"red"}`,
	} {
		_, err := ParseRecord(reply)
		require.Error(t, err, "reply %q", reply)
		assert.True(t, models.HasCode(err, models.ErrCodeParseFault), reply)
	}
}

func TestPrompter_HTML(t *testing.T) {
	card := `<li class="card"><h2>Mate</h2></li>`
	got, err := NewPrompter(FormatHTML, false).Build(card)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "I have the following HTML block for a product card:\n"+card+"\n"))
	for _, field := range []string{"- ID", "- Title", "- Price", "- Image (url)", "- Description"} {
		assert.Contains(t, got, field)
	}
	assert.True(t, strings.HasSuffix(got, "Return only the JSON object."))
}

func TestPrompter_Markdown(t *testing.T) {
	got, err := NewPrompter(FormatMarkdown, false).Build(`<div class="card"><h2>Mate</h2><img src="https://img.example/m.png" alt="m"></div>`)
	require.NoError(t, err)

	assert.Contains(t, got, "Markdown block")
	assert.Contains(t, got, "Mate")
	assert.Contains(t, got, "https://img.example/m.png")
	assert.NotContains(t, got, "<div")
}

func TestPrompter_Trim(t *testing.T) {
	got, err := NewPrompter(FormatHTML, true).Build(`<li class="card"><script>x()</script><h2>Mate</h2></li>`)
	require.NoError(t, err)
	assert.Contains(t, got, `<li class="card"><h2>Mate</h2></li>`)
	assert.NotContains(t, got, "script")
}
