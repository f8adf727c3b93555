package client

import "strings"

// Embedding and search settings endpoints.
const (
	EmbeddingProvidersPath      = "/api/admin/embedding/embedding-provider"
	EmbeddingTestPath           = "/api/admin/embedding/test-embedding"
	CurrentSearchSettingsPath   = "/api/search-settings/get-current-search-settings"
	SecondarySearchSettingsPath = "/api/search-settings/get-secondary-search-settings"
	CancelNewEmbeddingPath      = "/api/search-settings/cancel-new-embedding"
)

// EmbeddingProviderPath returns the path of one provider's credentials.
func EmbeddingProviderPath(providerType string) string {
	return EmbeddingProvidersPath + "/" + NormalizeProviderType(providerType)
}

// NormalizeProviderType maps a display provider type ("OpenAI", "Azure OpenAI")
// to the lower-case wire form ("openai", "azure").
func NormalizeProviderType(t string) string {
	fields := strings.Fields(strings.ToLower(t))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
