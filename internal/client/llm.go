package client

import "fmt"

// LLM admin endpoints.
const (
	LLMProvidersPath   = "/api/admin/llm/provider"
	LLMDescriptorsPath = "/api/admin/llm/built-in/options"
	LLMTestPath        = "/api/admin/llm/test"
)

// LLMProviderPath returns the path of a single provider.
func LLMProviderPath(id int) string {
	return fmt.Sprintf("%s/%d", LLMProvidersPath, id)
}

// LLMDefaultPath returns the path that makes a provider the default.
func LLMDefaultPath(id int) string {
	return LLMProviderPath(id) + "/default"
}
