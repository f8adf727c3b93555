package mutation

import (
	"context"
	"net/http"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/popup"
	"github.com/raphaelgruber/onyx-admin/internal/validation"
)

// embeddingTestModel is the model used to test OpenAI and Azure keys.
const embeddingTestModel = "text-embedding-3-small"

// EmbeddingProviders runs the embedding provider and model switch flows.
type EmbeddingProviders struct {
	d   *Dispatcher
	set popup.Setter
}

// Embedding returns the embedding flows reporting through set.
func (d *Dispatcher) Embedding(set popup.Setter) *EmbeddingProviders {
	return &EmbeddingProviders{d: d, set: set}
}

// Save validates the form, tests the credentials with a sample embedding and
// persists the provider. Nothing is stored when the test fails.
func (e *EmbeddingProviders) Save(ctx context.Context, form validation.EmbeddingProviderForm) error {
	if errs := validation.Validate(form); len(errs) > 0 {
		return &StepError{Step: StepValidate, Err: errs}
	}

	providerType := client.NormalizeProviderType(form.ProviderType)
	modelName := form.ModelName
	if providerType == "openai" || form.IsAzure {
		modelName = embeddingTestModel
	}
	test := client.TestEmbeddingRequest{
		ProviderType:   providerType,
		APIKey:         optional(form.APIKey),
		APIURL:         optional(form.APIURL),
		ModelName:      optional(modelName),
		APIVersion:     optional(form.APIVersion),
		DeploymentName: optional(form.DeploymentName),
	}
	if res := e.d.Perform(ctx, http.MethodPost, client.EmbeddingTestPath, test); !res.OK {
		popup.Report(e.set, popup.Error(res.Detail))
		return &StepError{Step: StepTest, Err: res.Err}
	}

	upsert := client.EmbeddingProviderUpsert{
		ProviderType:      providerType,
		APIKey:            optional(form.APIKey),
		APIURL:            optional(form.APIURL),
		APIVersion:        optional(form.APIVersion),
		DeploymentName:    optional(form.DeploymentName),
		CustomConfig:      nonEmpty(form.CustomConfig),
		IsDefaultProvider: false,
		IsConfigured:      true,
	}
	if res := e.d.Perform(ctx, http.MethodPut, client.EmbeddingProvidersPath, upsert); !res.OK {
		msg := res.Detail
		if res.Detail == client.UnknownErrorMessage {
			msg = "Failed to update provider - check your API key"
		}
		popup.Report(e.set, popup.Error(msg))
		return &StepError{Step: StepPersist, Err: res.Err}
	}

	e.d.Invalidate(client.EmbeddingProvidersPath)
	popup.Report(e.set, popup.Success("Provider configured successfully!"))
	return nil
}

// ChangeCredentials replaces the API key of provider, or its API URL for a
// proxy provider, after testing the new value together with the stored one.
func (e *EmbeddingProviders) ChangeCredentials(ctx context.Context, provider client.CloudEmbeddingProvider, keyOrURL string) error {
	providerType := client.NormalizeProviderType(provider.ProviderType)
	isProxy := providerType == validation.ProviderLiteLLM
	if keyOrURL == "" {
		field, label := "api_key", "API key"
		if isProxy {
			field, label = "api_url", "API URL"
		}
		return &StepError{Step: StepValidate, Err: validation.FieldErrors{field: label + " is required"}}
	}

	test := client.TestEmbeddingRequest{ProviderType: providerType}
	upsert := client.EmbeddingProviderUpsert{ProviderType: providerType, IsConfigured: true}
	if isProxy {
		test.APIURL = &keyOrURL
		test.APIKey = provider.APIKey
		upsert.APIURL = &keyOrURL
	} else {
		test.APIKey = &keyOrURL
		test.APIURL = provider.APIURL
		upsert.APIKey = &keyOrURL
	}

	if res := e.d.Perform(ctx, http.MethodPost, client.EmbeddingTestPath, test); !res.OK {
		popup.Report(e.set, popup.Error(res.Detail))
		return &StepError{Step: StepTest, Err: res.Err}
	}

	if res := e.d.Perform(ctx, http.MethodPut, client.EmbeddingProvidersPath, upsert); !res.OK {
		msg := res.Detail
		if res.Detail == client.UnknownErrorMessage {
			msg = "Failed to update provider - check your API key"
			if isProxy {
				msg = "Failed to update provider - check your API URL"
			}
		}
		popup.Report(e.set, popup.Error(msg))
		return &StepError{Step: StepPersist, Err: res.Err}
	}

	e.d.Invalidate(client.EmbeddingProvidersPath)
	popup.Report(e.set, popup.Success("Credentials updated"))
	return nil
}

// Delete removes the credentials of providerType.
func (e *EmbeddingProviders) Delete(ctx context.Context, providerType string) error {
	if res := e.d.Perform(ctx, http.MethodDelete, client.EmbeddingProviderPath(providerType), nil); !res.OK {
		popup.Report(e.set, popup.Error(res.Detail))
		return &StepError{Step: StepPersist, Err: res.Err}
	}
	e.d.Invalidate(client.EmbeddingProvidersPath)
	popup.Report(e.set, popup.Success("Provider deleted"))
	return nil
}

// CancelSwitch aborts the model switch in progress. The old model stays
// active and re-indexing progress for the new one is lost. Failures are
// raised as an alert with the raw response text.
func (e *EmbeddingProviders) CancelSwitch(ctx context.Context) error {
	res := e.d.Perform(ctx, http.MethodPost, client.CancelNewEmbeddingPath, nil)
	if !res.OK {
		popup.Alert("Failed to cancel embedding model update - " + res.Text)
		return &StepError{Step: StepPersist, Err: res.Err}
	}
	e.d.Invalidate(
		client.SecondarySearchSettingsPath,
		client.IndexingStatusKey(true, false),
		client.FailedIndexingStatusKey(true),
	)
	popup.Report(e.set, popup.Success("Embedding model switch canceled"))
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
