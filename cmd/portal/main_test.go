package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jrr-automobiles/portal/internal/app"
	_ "github.com/jrr-automobiles/portal/testing"
)

func TestMainReturnsInTestMode(t *testing.T) {
	app.RefreshTestMode()
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}
