package validation

import (
	"maps"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/raphaelgruber/onyx-admin/internal/client"
)

// LLMProviderForm configures a well-known LLM provider. The *Required flags
// and RequiredConfigKeys come from the provider's descriptor.
type LLMProviderForm struct {
	Name                 string            `json:"name" validate:"required"`
	Provider             string            `json:"provider" validate:"required"`
	APIKey               string            `json:"api_key" validate:"required_if=APIKeyRequired true"`
	APIBase              string            `json:"api_base" validate:"required_if=APIBaseRequired true"`
	APIVersion           string            `json:"api_version" validate:"required_if=APIVersionRequired true"`
	CustomConfig         map[string]string `json:"custom_config"`
	DefaultModelName     string            `json:"default_model_name" validate:"required"`
	FastDefaultModelName string            `json:"fast_default_model_name"`
	IsPublic             bool              `json:"is_public"`
	Groups               []int             `json:"groups"`
	DisplayModelNames    []string          `json:"display_model_names"`
	DeploymentName       string            `json:"deployment_name"`

	APIKeyRequired     bool     `json:"-"`
	APIBaseRequired    bool     `json:"-"`
	APIVersionRequired bool     `json:"-"`
	RequiredConfigKeys []string `json:"-"`
}

// NewLLMProviderForm returns the initial values for configuring desc,
// prefilled from existing when it is being edited.
func NewLLMProviderForm(desc client.WellKnownLLMProviderDescriptor, existing *client.FullLLMProvider) LLMProviderForm {
	f := LLMProviderForm{
		Name:               desc.DisplayName,
		Provider:           desc.Name,
		CustomConfig:       make(map[string]string),
		IsPublic:           true,
		Groups:             []int{},
		APIKeyRequired:     desc.APIKeyRequired,
		APIBaseRequired:    desc.APIBaseRequired,
		APIVersionRequired: desc.APIVersionRequired,
	}
	if f.Name == "" {
		f.Name = desc.Name
	}
	switch {
	case desc.DefaultModel != nil && *desc.DefaultModel != "":
		f.DefaultModelName = *desc.DefaultModel
	case len(desc.LLMNames) > 0:
		f.DefaultModelName = desc.LLMNames[0]
	}
	if desc.DefaultFastModel != nil {
		f.FastDefaultModelName = *desc.DefaultFastModel
	}
	for _, k := range desc.CustomConfigKeys {
		f.CustomConfig[k.Name] = ""
		if k.IsRequired {
			f.RequiredConfigKeys = append(f.RequiredConfigKeys, k.Name)
		}
	}

	if existing != nil {
		f.Name = existing.Name
		f.APIKey = deref(existing.APIKey)
		f.APIBase = deref(existing.APIBase)
		f.APIVersion = deref(existing.APIVersion)
		for k, v := range existing.CustomConfig {
			f.CustomConfig[k] = v
		}
		f.DefaultModelName = existing.DefaultModelName
		f.FastDefaultModelName = deref(existing.FastDefaultModelName)
		f.IsPublic = existing.IsPublic
		if existing.Groups != nil {
			f.Groups = slices.Clone(existing.Groups)
		}
		f.DisplayModelNames = slices.Clone(existing.DisplayModelNames)
		f.DeploymentName = deref(existing.DeploymentName)
	}
	return f
}

// Clone returns a copy of f that shares no maps or slices with it.
func (f LLMProviderForm) Clone() LLMProviderForm {
	f.CustomConfig = maps.Clone(f.CustomConfig)
	f.Groups = slices.Clone(f.Groups)
	f.DisplayModelNames = slices.Clone(f.DisplayModelNames)
	f.RequiredConfigKeys = slices.Clone(f.RequiredConfigKeys)
	return f
}

// FieldMessages implements messenger.
func (LLMProviderForm) FieldMessages() map[string]string {
	return map[string]string{
		"name":               "Display name is required",
		"api_key":            "API key is required",
		"api_base":           "API base is required",
		"api_version":        "API version is required",
		"default_model_name": "Model name is required",
	}
}

func validateLLMProvider(sl validator.StructLevel) {
	f := sl.Current().Interface().(LLMProviderForm)
	for _, key := range f.RequiredConfigKeys {
		if f.CustomConfig[key] == "" {
			sl.ReportError(f.CustomConfig[key], "custom_config."+key, "CustomConfig", "required", key)
		}
	}
}

// CustomLLMProviderForm configures a provider that has no descriptor.
type CustomLLMProviderForm struct {
	Name                 string            `json:"name" validate:"required"`
	Provider             string            `json:"provider" validate:"required"`
	APIKey               string            `json:"api_key"`
	APIBase              string            `json:"api_base" validate:"omitempty,url"`
	APIVersion           string            `json:"api_version"`
	CustomConfig         map[string]string `json:"custom_config"`
	ModelNames           []string          `json:"model_names" validate:"required,min=1,dive,required"`
	DefaultModelName     string            `json:"default_model_name" validate:"required"`
	FastDefaultModelName string            `json:"fast_default_model_name"`
	IsPublic             bool              `json:"is_public"`
	Groups               []int             `json:"groups"`
	DeploymentName       string            `json:"deployment_name"`
}

// FieldMessages implements messenger.
func (CustomLLMProviderForm) FieldMessages() map[string]string {
	return map[string]string{
		"name":               "Display Name is required",
		"provider":           "Provider Name is required",
		"model_names":        "At least one model name is required",
		"default_model_name": "Model name is required",
	}
}

// EmbeddingProviderForm configures a cloud embedding provider.
//
// IsProxy (LiteLLM) and IsAzure switch which fields are required:
// api_key is required unless IsProxy, IsAzure or UseFileUpload is set;
// api_url is required when IsProxy or IsAzure is set; model_name only for a
// proxy; deployment_name and api_version only for Azure.
type EmbeddingProviderForm struct {
	ProviderType   string            `json:"provider_type" validate:"required"`
	APIKey         string            `json:"api_key"`
	APIURL         string            `json:"api_url" validate:"omitempty,url"`
	ModelName      string            `json:"model_name" validate:"required_if=IsProxy true"`
	DeploymentName string            `json:"deployment_name" validate:"required_if=IsAzure true"`
	APIVersion     string            `json:"api_version" validate:"required_if=IsAzure true"`
	CustomConfig   map[string]string `json:"custom_config"`

	IsProxy       bool `json:"-"`
	IsAzure       bool `json:"-"`
	UseFileUpload bool `json:"-"`
}

// Embedding provider types with special form rules.
const (
	ProviderLiteLLM = "litellm"
	ProviderAzure   = "azure"
	ProviderGoogle  = "google"
)

// NewEmbeddingProviderForm returns empty values for providerType with the
// proxy, Azure and file upload switches derived from it.
func NewEmbeddingProviderForm(providerType string) EmbeddingProviderForm {
	t := client.NormalizeProviderType(providerType)
	return EmbeddingProviderForm{
		ProviderType:  t,
		CustomConfig:  make(map[string]string),
		IsProxy:       t == ProviderLiteLLM,
		IsAzure:       t == ProviderAzure,
		UseFileUpload: t == ProviderGoogle,
	}
}

// FieldMessages implements messenger.
func (EmbeddingProviderForm) FieldMessages() map[string]string {
	return map[string]string{
		"provider_type":   "Provider type is required",
		"api_key":         "API Key is required",
		"model_name":      "Model name is required",
		"api_url":         "API URL is required",
		"deployment_name": "Deployment name is required",
		"api_version":     "API version is required",
	}
}

func validateEmbeddingProvider(sl validator.StructLevel) {
	f := sl.Current().Interface().(EmbeddingProviderForm)
	if f.APIKey == "" && !f.IsProxy && !f.IsAzure && !f.UseFileUpload {
		sl.ReportError(f.APIKey, "api_key", "APIKey", "required", "")
	}
	if f.APIURL == "" && (f.IsProxy || f.IsAzure) {
		sl.ReportError(f.APIURL, "api_url", "APIURL", "required", "")
	}
}

// CustomEmbeddingModelForm describes a self-hosted embedding model.
type CustomEmbeddingModelForm struct {
	ModelName     string `json:"model_name" validate:"required"`
	ModelDim      int    `json:"model_dim" validate:"gt=0"`
	QueryPrefix   string `json:"query_prefix"`
	PassagePrefix string `json:"passage_prefix"`
	Normalize     bool   `json:"normalize"`
}

// FieldMessages implements messenger.
func (CustomEmbeddingModelForm) FieldMessages() map[string]string {
	return map[string]string{
		"model_name": "Please enter the name of the Embedding Model",
		"model_dim":  "Please enter the dimensionality of the embeddings generated by the model",
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func validateSettings(sl validator.StructLevel) {
	st := sl.Current().Interface().(client.Settings)
	if !st.ChatPageEnabled && !st.SearchPageEnabled {
		sl.ReportError(st.ChatPageEnabled, "chat_page_enabled", "ChatPageEnabled", "pages", "")
		return
	}
	if (st.DefaultPage == "chat" && !st.ChatPageEnabled) || (st.DefaultPage == "search" && !st.SearchPageEnabled) {
		sl.ReportError(st.DefaultPage, "default_page", "DefaultPage", "page_enabled", "")
	}
}
