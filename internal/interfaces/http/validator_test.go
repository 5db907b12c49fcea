package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTenantID(t *testing.T) {
	assert.True(t, ValidTenantID("loja-centro_01"))
	assert.True(t, ValidTenantID("T1"))

	assert.False(t, ValidTenantID(""))
	assert.False(t, ValidTenantID("has space"))
	assert.False(t, ValidTenantID("semi;colon"))
	assert.False(t, ValidTenantID(strings.Repeat("a", MaxTenantIDLength+1)))
}

func TestValidMessage(t *testing.T) {
	assert.True(t, ValidMessage("oi"))
	assert.True(t, ValidMessage(strings.Repeat("a", MaxMessageLength)))
	assert.False(t, ValidMessage(strings.Repeat("a", MaxMessageLength+1)))
}
