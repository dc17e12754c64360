package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfscout/browser"
)

func TestResolve_MercadoLibre(t *testing.T) {
	cfg, err := Resolve("https://www.mercadolibre.com.co", "gafas de sol")
	require.NoError(t, err)

	assert.Equal(t, "mercadolibre", cfg.Name)
	assert.Equal(t, "li.ui-search-layout__item", cfg.CardSelector)
	assert.Equal(t, "https://listado.mercadolibre.com.co/gafas%20de%20sol", cfg.DirectSearchURL)
	assert.Equal(t, "https://www.mercadolibre.com.co", cfg.HomeURL)
	assert.Equal(t, []browser.Probe{
		browser.Sel("input#cb1-edit"),
		browser.Sel(`input[placeholder="Buscar"]`),
	}, cfg.SearchInputs)
}

func TestResolve_MercadoLibreOtherCountry(t *testing.T) {
	cfg, err := Resolve("https://www.mercadolibre.com.mx/", "zapatos")
	require.NoError(t, err)
	assert.Equal(t, "https://listado.mercadolibre.com.mx/zapatos", cfg.DirectSearchURL)
}

func TestResolve_Catalog(t *testing.T) {
	cfg, err := Resolve("https://co.shein.com/", "zapatos")
	require.NoError(t, err)

	assert.Equal(t, "catalog", cfg.Name)
	assert.Equal(t, "div.product-card", cfg.CardSelector)
	assert.Equal(t,
		"https://co.shein.com/pdsearch/zapatos/?ici=s1%60EditSearch%60zapatos%60_fb%60d0%60PageHome&search_source=1&search_type=all&source=search",
		cfg.DirectSearchURL)
	require.Len(t, cfg.SearchInputs, 5)
	assert.Equal(t, `input[placeholder*="Search"]`, cfg.SearchInputs[0].Selector)
}

func TestResolve_CatalogEscapesTerm(t *testing.T) {
	cfg, err := Resolve("https://co.shein.com", "gafas de sol")
	require.NoError(t, err)
	assert.Contains(t, cfg.DirectSearchURL, "/pdsearch/gafas%20de%20sol/")
	assert.Contains(t, cfg.DirectSearchURL, "%60gafas+de+sol%60")
}

func TestResolve_Invalid(t *testing.T) {
	_, err := Resolve("not a url", "gafas")
	assert.Error(t, err)

	_, err = Resolve("https://www.mercadolibre.com.co", "   ")
	assert.Error(t, err)
}
