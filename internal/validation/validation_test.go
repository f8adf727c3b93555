package validation_test

import (
	"errors"
	"testing"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestEmbeddingProviderConditions(t *testing.T) {
	tests := []struct {
		name       string
		form       validation.EmbeddingProviderForm
		wantFields []string
	}{
		{
			name:       "plain provider needs a key",
			form:       validation.NewEmbeddingProviderForm("OpenAI"),
			wantFields: []string{"api_key"},
		},
		{
			name: "plain provider with key",
			form: func() validation.EmbeddingProviderForm {
				f := validation.NewEmbeddingProviderForm("cohere")
				f.APIKey = "k"
				return f
			}(),
		},
		{
			name:       "proxy needs url and model but no key",
			form:       validation.NewEmbeddingProviderForm("LiteLLM"),
			wantFields: []string{"api_url", "model_name"},
		},
		{
			name:       "azure needs url deployment and version",
			form:       validation.NewEmbeddingProviderForm("Azure"),
			wantFields: []string{"api_url", "api_version", "deployment_name"},
		},
		{
			name:       "file upload skips key",
			form:       validation.NewEmbeddingProviderForm("Google"),
			wantFields: nil,
		},
		{
			name: "malformed url",
			form: func() validation.EmbeddingProviderForm {
				f := validation.NewEmbeddingProviderForm("litellm")
				f.APIURL = "not a url"
				f.ModelName = "m"
				return f
			}(),
			wantFields: []string{"api_url"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validation.Validate(tt.form)
			if tt.wantFields == nil {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.wantFields, errs.Fields())
		})
	}
}

func TestProxyWithoutURLBlocksSubmit(t *testing.T) {
	form := validation.NewForm(validation.NewEmbeddingProviderForm("litellm"))
	form.Update(func(f *validation.EmbeddingProviderForm) { f.ModelName = "embed-small" })

	called := false
	err := form.Submit(func(validation.EmbeddingProviderForm) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, validation.ErrInvalid))
	assert.False(t, called, "submission never reaches the network")

	var fe validation.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "API URL is required", fe["api_url"])
}

func TestConditionReevaluatedOnEveryChange(t *testing.T) {
	form := validation.NewForm(validation.NewEmbeddingProviderForm("cohere"))
	form.Update(func(f *validation.EmbeddingProviderForm) { f.APIKey = "key" })
	require.True(t, form.Valid())

	form.Update(func(f *validation.EmbeddingProviderForm) { f.IsProxy = true })
	assert.Contains(t, form.Errors(), "api_url", "toggling the proxy switch makes api_url required")
	assert.Contains(t, form.Errors(), "model_name")

	form.Update(func(f *validation.EmbeddingProviderForm) {
		f.APIURL = "http://litellm:4000/embeddings"
		f.ModelName = "text-embedding"
	})
	assert.True(t, form.Valid())

	form.Update(func(f *validation.EmbeddingProviderForm) { f.IsProxy = false })
	assert.True(t, form.Valid(), "url no longer required but still allowed")
}

func TestLLMProviderForm(t *testing.T) {
	desc := client.WellKnownLLMProviderDescriptor{
		Name:           "bedrock",
		DisplayName:    "AWS Bedrock",
		APIKeyRequired: true,
		CustomConfigKeys: []client.CustomConfigKey{
			{Name: "AWS_REGION_NAME", IsRequired: true},
			{Name: "AWS_PROFILE"},
		},
		LLMNames:     []string{"claude"},
		DefaultModel: strPtr("claude"),
	}

	form := validation.NewForm(validation.NewLLMProviderForm(desc, nil))
	errs := form.Errors()
	assert.Equal(t, []string{"api_key", "custom_config.AWS_REGION_NAME"}, errs.Fields())
	assert.Equal(t, "API key is required", errs["api_key"])
	assert.Equal(t, "AWS_REGION_NAME is required", errs["custom_config.AWS_REGION_NAME"])

	form.Update(func(f *validation.LLMProviderForm) {
		f.APIKey = "secret"
		f.CustomConfig["AWS_REGION_NAME"] = "eu-central-1"
	})
	assert.True(t, form.Valid())
	assert.Equal(t, "AWS Bedrock", form.Values().Name)
	assert.Equal(t, "claude", form.Values().DefaultModelName)
}

func TestLLMProviderFormFromExisting(t *testing.T) {
	desc := client.WellKnownLLMProviderDescriptor{Name: "openai", APIKeyRequired: true}
	existing := &client.FullLLMProvider{
		ID:               3,
		Name:             "team openai",
		Provider:         "openai",
		APIKey:           strPtr("sk-1"),
		DefaultModelName: "gpt-4o",
		Groups:           []int{2},
	}

	f := validation.NewLLMProviderForm(desc, existing)
	assert.Empty(t, validation.Validate(f))
	assert.Equal(t, "team openai", f.Name)
	assert.Equal(t, "sk-1", f.APIKey)
	assert.Equal(t, []int{2}, f.Groups)
}

func TestCustomLLMProviderForm(t *testing.T) {
	errs := validation.Validate(validation.CustomLLMProviderForm{})
	assert.Equal(t, []string{"default_model_name", "model_names", "name", "provider"}, errs.Fields())
	assert.Equal(t, "At least one model name is required", errs["model_names"])

	errs = validation.Validate(validation.CustomLLMProviderForm{
		Name:             "local",
		Provider:         "ollama",
		ModelNames:       []string{"llama3", ""},
		DefaultModelName: "llama3",
	})
	assert.Equal(t, []string{"model_names[1]"}, errs.Fields())
}

func TestCustomEmbeddingModelForm(t *testing.T) {
	errs := validation.Validate(validation.CustomEmbeddingModelForm{})
	assert.Len(t, errs, 2)
	assert.Contains(t, errs["model_dim"], "dimensionality")

	assert.Empty(t, validation.Validate(validation.CustomEmbeddingModelForm{ModelName: "bge", ModelDim: 768}))
}

func TestFieldErrorsMessage(t *testing.T) {
	fe := validation.FieldErrors{"b": "second", "a": "first"}
	assert.Equal(t, "a: first; b: second", fe.Error())
	assert.ErrorIs(t, fe, validation.ErrInvalid)
}

func TestLLMProviderFormDefaultModelFallback(t *testing.T) {
	desc := client.WellKnownLLMProviderDescriptor{Name: "anthropic", LLMNames: []string{"claude-3-5-sonnet", "claude-3-haiku"}}
	f := validation.NewLLMProviderForm(desc, nil)
	assert.Equal(t, "claude-3-5-sonnet", f.DefaultModelName, "first model is used when no default is declared")

	f = validation.NewLLMProviderForm(client.WellKnownLLMProviderDescriptor{Name: "custom"}, nil)
	assert.Equal(t, "Model name is required", validation.Validate(f)["default_model_name"])
}

func TestLLMProviderFormClone(t *testing.T) {
	existing := &client.FullLLMProvider{
		Name:              "bedrock",
		Provider:          "bedrock",
		CustomConfig:      map[string]string{"region": "us-east-1"},
		DefaultModelName:  "claude",
		Groups:            []int{1},
		DisplayModelNames: []string{"claude"},
	}
	f := validation.NewLLMProviderForm(client.WellKnownLLMProviderDescriptor{Name: "bedrock"}, existing)
	c := f.Clone()
	c.CustomConfig["region"] = "eu-west-1"
	c.Groups[0] = 2
	c.DisplayModelNames[0] = "other"

	assert.Equal(t, "us-east-1", f.CustomConfig["region"])
	assert.Equal(t, []int{1}, f.Groups)
	assert.Equal(t, []string{"claude"}, f.DisplayModelNames)
	assert.Equal(t, []int{1}, existing.Groups, "the provider is not shared with the form")
}

func TestSettingsRules(t *testing.T) {
	days := 0
	tests := []struct {
		name     string
		settings client.Settings
		want     map[string]string
	}{
		{
			name:     "valid",
			settings: client.Settings{ChatPageEnabled: true, SearchPageEnabled: false, DefaultPage: "chat"},
		},
		{
			name:     "no page enabled",
			settings: client.Settings{DefaultPage: "chat"},
			want:     map[string]string{"chat_page_enabled": "At least one of the chat and search pages must be enabled"},
		},
		{
			name:     "default page disabled",
			settings: client.Settings{ChatPageEnabled: true, DefaultPage: "search"},
			want:     map[string]string{"default_page": "The default page must be enabled"},
		},
		{
			name:     "retention must be positive",
			settings: client.Settings{ChatPageEnabled: true, DefaultPage: "chat", MaximumChatRetentionDays: &days},
			want:     map[string]string{"maximum_chat_retention_days": "maximum_chat_retention_days must be greater than 0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validation.Validate(tt.settings)
			if tt.want == nil {
				assert.Empty(t, errs)
				return
			}
			for field, msg := range tt.want {
				assert.Equal(t, msg, errs[field])
			}
		})
	}
}
