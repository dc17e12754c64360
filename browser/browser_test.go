package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbe_String(t *testing.T) {
	assert.Equal(t, ".sui-modal", Sel(".sui-modal").String())
	assert.Equal(t, "text=CONFIRMAR", TextProbe("", "CONFIRMAR").String())
	assert.Equal(t, "button:has-text(×)", TextProbe("button", "×").String())
}

func TestToHeadersMap(t *testing.T) {
	m := toHeadersMap(map[string]string{"DNT": "1", "Sec-Fetch-Mode": "navigate"})
	assert.Len(t, m, 2)
	assert.Equal(t, "1", m["DNT"].Str())
	assert.Equal(t, "navigate", m["Sec-Fetch-Mode"].Str())
}
