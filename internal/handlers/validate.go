package handlers

import (
	"strings"
	"unicode/utf8"
)

// Validation limits for page form fields.
const (
	maxTitleLen    = 300
	maxSlugLen     = 300
	maxBodyLen     = 100_000
	maxMetaDescLen = 500
)

// validatePage checks the page form inputs and returns the first error found.
func validatePage(title, slug, body string) string {
	if strings.TrimSpace(title) == "" {
		return "Informe um título."
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "O título é longo demais (máximo de 300 caracteres)."
	}
	if utf8.RuneCountInString(slug) > maxSlugLen {
		return "O slug é longo demais (máximo de 300 caracteres)."
	}
	if utf8.RuneCountInString(body) > maxBodyLen {
		return "O conteúdo é longo demais (máximo de 100.000 caracteres)."
	}
	return ""
}

// validateMeta checks the optional SEO description.
func validateMeta(metaDesc *string) string {
	if metaDesc != nil && utf8.RuneCountInString(*metaDesc) > maxMetaDescLen {
		return "A descrição é longa demais (máximo de 500 caracteres)."
	}
	return ""
}
