package mutation

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/popup"
	"github.com/raphaelgruber/onyx-admin/internal/validation"
)

// DefaultState says whether any LLM provider is the default.
type DefaultState string

const (
	HasDefault DefaultState = "has-default"
	NoDefault  DefaultState = "no-default"
)

// DefaultStateOf derives the default state from a provider list.
func DefaultStateOf(providers []client.FullLLMProvider) DefaultState {
	for _, p := range providers {
		if p.IsDefault() {
			return HasDefault
		}
	}
	return NoDefault
}

// ShouldMarkAsDefault reports whether a provider being added must become the
// default, which is the case when it is the first one.
func ShouldMarkAsDefault(existing []client.FullLLMProvider) bool {
	return len(existing) == 0
}

// LLMProviders runs the LLM provider flows.
type LLMProviders struct {
	d   *Dispatcher
	set popup.Setter
}

// LLM returns the LLM provider flows reporting through set.
func (d *Dispatcher) LLM(set popup.Setter) *LLMProviders {
	return &LLMProviders{d: d, set: set}
}

// LLMSave is a request to create or update a well-known provider.
type LLMSave struct {
	Values validation.LLMProviderForm
	// Initial holds the values the form started with. The configuration
	// test is skipped when Values still equal them, so it must not share
	// maps or slices with Values (see LLMProviderForm.Clone).
	Initial       *validation.LLMProviderForm
	Existing      *client.FullLLMProvider
	MarkAsDefault bool
}

// Save validates, tests and persists a well-known provider, then makes it
// the default when requested.
func (l *LLMProviders) Save(ctx context.Context, req LLMSave) (*client.FullLLMProvider, error) {
	if errs := validation.Validate(req.Values); len(errs) > 0 {
		return nil, &StepError{Step: StepValidate, Err: errs}
	}
	unchanged := req.Initial != nil && cmp.Equal(*req.Initial, req.Values, cmpopts.EquateEmpty())
	return l.save(ctx, upsertFromForm(req.Values), !unchanged, req.Existing, req.MarkAsDefault)
}

// CustomLLMSave is a request to create or update a custom provider.
type CustomLLMSave struct {
	Values        validation.CustomLLMProviderForm
	Existing      *client.FullLLMProvider
	MarkAsDefault bool
}

// SaveCustom validates, tests and persists a custom provider.
func (l *LLMProviders) SaveCustom(ctx context.Context, req CustomLLMSave) (*client.FullLLMProvider, error) {
	if errs := validation.Validate(req.Values); len(errs) > 0 {
		return nil, &StepError{Step: StepValidate, Err: errs}
	}
	return l.save(ctx, upsertFromCustomForm(req.Values), true, req.Existing, req.MarkAsDefault)
}

func (l *LLMProviders) save(ctx context.Context, body client.LLMProviderUpsert, test bool, existing *client.FullLLMProvider, markDefault bool) (*client.FullLLMProvider, error) {
	if test {
		res := l.d.Perform(ctx, http.MethodPost, client.LLMTestPath, body)
		if !res.OK {
			popup.Report(l.set, popup.Error(res.Detail))
			return nil, &StepError{Step: StepTest, Err: res.Err}
		}
	}

	if body.FastDefaultModelName == "" {
		body.FastDefaultModelName = body.DefaultModelName
	}
	res := l.d.Perform(ctx, http.MethodPut, client.LLMProvidersPath, body)
	if !res.OK {
		msg := "Failed to enable provider: " + res.Detail
		if existing != nil {
			msg = "Failed to update provider: " + res.Detail
		}
		popup.Report(l.set, popup.Error(msg))
		return nil, &StepError{Step: StepPersist, Err: res.Err}
	}

	var saved client.FullLLMProvider
	if err := res.Decode(&saved); err != nil {
		// The provider exists; only its echo could not be read.
		l.d.Invalidate(client.LLMProvidersPath)
		popup.Report(l.set, popup.Error("Provider saved, but the response could not be read: "+err.Error()))
		return nil, &StepError{Step: StepPersist, Err: err}
	}

	var defaultErr error
	if markDefault {
		r := l.d.Perform(ctx, http.MethodPost, client.LLMDefaultPath(saved.ID), nil)
		if !r.OK {
			defaultErr = &StepError{Step: StepSetDefault, Err: r.Err}
			popup.Report(l.set, popup.Error("Failed to set provider as default: "+r.Detail))
		} else {
			yes := true
			saved.IsDefaultProvider = &yes
		}
	}

	l.d.Invalidate(client.LLMProvidersPath)
	if defaultErr != nil {
		return &saved, defaultErr
	}

	msg := "Provider enabled successfully!"
	if existing != nil {
		msg = "Provider updated successfully!"
	}
	popup.Report(l.set, popup.Success(msg))
	return &saved, nil
}

// SetDefault makes provider id the default.
func (l *LLMProviders) SetDefault(ctx context.Context, id int) error {
	res := l.d.Perform(ctx, http.MethodPost, client.LLMDefaultPath(id), nil)
	if !res.OK {
		popup.Report(l.set, popup.Error("Failed to set provider as default: "+res.Detail))
		return &StepError{Step: StepSetDefault, Err: res.Err}
	}
	l.d.Invalidate(client.LLMProvidersPath)
	popup.Report(l.set, popup.Success("Default provider updated!"))
	return nil
}

// Delete removes provider. When it was the default and others remain, the
// first remaining provider becomes the default. A failure of that second
// step is logged and reported; the deletion stands.
// It returns the providers left after the deletion.
func (l *LLMProviders) Delete(ctx context.Context, provider client.FullLLMProvider) ([]client.FullLLMProvider, error) {
	res := l.d.Perform(ctx, http.MethodDelete, client.LLMProviderPath(provider.ID), nil)
	if !res.OK {
		popup.Report(l.set, popup.Error("Failed to delete provider: "+res.Detail))
		return nil, &StepError{Step: StepPersist, Err: res.Err}
	}
	l.d.Invalidate(client.LLMProvidersPath)

	list := l.d.Perform(ctx, http.MethodGet, client.LLMProvidersPath, nil)
	var remaining []client.FullLLMProvider
	if err := list.Decode(&remaining); err != nil {
		l.d.logger.Error("list providers after delete", "provider_id", provider.ID, "error", err)
		popup.Report(l.set, popup.Warning("Provider deleted, but the remaining providers could not be loaded"))
		return nil, &StepError{Step: StepRefresh, Err: err}
	}

	if provider.IsDefault() && len(remaining) > 0 && DefaultStateOf(remaining) == NoDefault {
		next := remaining[0]
		r := l.d.Perform(ctx, http.MethodPost, client.LLMDefaultPath(next.ID), nil)
		if !r.OK {
			l.d.logger.Error("failed to set new default provider",
				"deleted_id", provider.ID,
				"candidate_id", next.ID,
				"error", r.Err)
			popup.Report(l.set, popup.Error("Provider deleted, but failed to set a new default provider: "+r.Detail))
			return remaining, &StepError{Step: StepSetDefault, Err: r.Err}
		}
		yes := true
		remaining[0].IsDefaultProvider = &yes
		l.d.Invalidate(client.LLMProvidersPath)
	}

	popup.Report(l.set, popup.Success(fmt.Sprintf("Provider %q deleted", provider.Name)))
	return remaining, nil
}

func upsertFromForm(f validation.LLMProviderForm) client.LLMProviderUpsert {
	return client.LLMProviderUpsert{
		Name:                 f.Name,
		Provider:             f.Provider,
		APIKey:               f.APIKey,
		APIBase:              f.APIBase,
		APIVersion:           f.APIVersion,
		CustomConfig:         nonEmpty(f.CustomConfig),
		DefaultModelName:     f.DefaultModelName,
		FastDefaultModelName: f.FastDefaultModelName,
		IsPublic:             f.IsPublic,
		Groups:               orEmpty(f.Groups),
		DisplayModelNames:    f.DisplayModelNames,
		DeploymentName:       f.DeploymentName,
	}
}

func upsertFromCustomForm(f validation.CustomLLMProviderForm) client.LLMProviderUpsert {
	return client.LLMProviderUpsert{
		Name:                 f.Name,
		Provider:             f.Provider,
		APIKey:               f.APIKey,
		APIBase:              f.APIBase,
		APIVersion:           f.APIVersion,
		CustomConfig:         nonEmpty(f.CustomConfig),
		DefaultModelName:     f.DefaultModelName,
		FastDefaultModelName: f.FastDefaultModelName,
		IsPublic:             f.IsPublic,
		Groups:               orEmpty(f.Groups),
		ModelNames:           f.ModelNames,
		DeploymentName:       f.DeploymentName,
	}
}

// nonEmpty drops blank custom config values so optional keys are not sent.
func nonEmpty(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func orEmpty(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
