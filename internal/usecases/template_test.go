package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	data := map[string]string{
		"nome":       "Ana",
		"valor":      "150.00",
		"vencimento": "05/09/2026",
	}

	out := RenderTemplate("Olá {{nome}}, sua parcela de R$ {{valor}} vence em {{vencimento}}.", data)
	assert.Equal(t, "Olá Ana, sua parcela de R$ 150.00 vence em 05/09/2026.", out)
}

func TestRenderTemplateUnknownFieldIsEmpty(t *testing.T) {
	out := RenderTemplate("Olá {{nome}}{{xyz}}!", map[string]string{"nome": "Ana"})
	assert.Equal(t, "Olá Ana!", out)
}

func TestRenderTemplateToleratesSpacing(t *testing.T) {
	out := RenderTemplate("Olá {{ nome }}!", map[string]string{"nome": "Ana"})
	assert.Equal(t, "Olá Ana!", out)
}

func TestRenderTemplateNoPlaceholders(t *testing.T) {
	out := RenderTemplate("mensagem fixa", nil)
	assert.Equal(t, "mensagem fixa", out)
}

func TestBlankMessage(t *testing.T) {
	assert.True(t, BlankMessage(""))
	assert.True(t, BlankMessage("   \t\n"))
	assert.True(t, BlankMessage(" x "))
	assert.False(t, BlankMessage("ok"))
	assert.False(t, BlankMessage("Olá"))
}
