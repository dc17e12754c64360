package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_Usage(t *testing.T) {
	assert.Equal(t, 1, run(nil))
	assert.Equal(t, 1, run([]string{"https://www.mercadolibre.com.ar"}))
}

func TestRun_BadBaseURL(t *testing.T) {
	assert.Equal(t, 1, run([]string{"not-a-url", "yerba"}))
}
