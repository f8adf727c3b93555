package mutation

import (
	"context"
	"net/http"
	"sync"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/popup"
	"github.com/raphaelgruber/onyx-admin/internal/validation"
)

// Pages that can be the default landing page.
const (
	PageChat   = "chat"
	PageSearch = "search"
)

// SettingsEditor edits workspace settings. Its local copy changes only
// after the backend accepted the new settings.
type SettingsEditor struct {
	d   *Dispatcher
	set popup.Setter

	mu      sync.Mutex
	current client.Settings
}

// Settings returns an editor starting from current.
func (d *Dispatcher) Settings(set popup.Setter, current client.Settings) *SettingsEditor {
	return &SettingsEditor{d: d, set: set, current: current}
}

// Current returns the last confirmed settings.
func (s *SettingsEditor) Current() client.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Apply stores the settings produced by change. On failure the confirmed
// settings are kept and the error is reported.
func (s *SettingsEditor) Apply(ctx context.Context, change func(*client.Settings)) (client.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	change(&next)
	if errs := validation.Validate(next); len(errs) > 0 {
		popup.Report(s.set, popup.Error(errs.Error()))
		return s.current, &StepError{Step: StepValidate, Err: errs}
	}

	res := s.d.Perform(ctx, http.MethodPut, client.SettingsPath, next)
	if !res.OK {
		s.d.logger.Error("error updating settings", "error", res.Err)
		popup.Report(s.set, popup.Error("Failed to update settings: "+res.Detail))
		return s.current, &StepError{Step: StepPersist, Err: res.Err}
	}

	s.current = next
	s.d.Invalidate(client.SettingsPath)
	popup.Report(s.set, popup.Success("Settings updated successfully!"))
	return next, nil
}

// SetPageEnabled turns the chat or search page on or off. Disabling the
// default page moves the default to the other page when it is enabled.
func (s *SettingsEditor) SetPageEnabled(ctx context.Context, page string, enabled bool) (client.Settings, error) {
	return s.Apply(ctx, func(st *client.Settings) {
		switch page {
		case PageChat:
			st.ChatPageEnabled = enabled
		case PageSearch:
			st.SearchPageEnabled = enabled
		}
		if enabled || st.DefaultPage != page {
			return
		}
		other, otherEnabled := PageSearch, st.SearchPageEnabled
		if page == PageSearch {
			other, otherEnabled = PageChat, st.ChatPageEnabled
		}
		if otherEnabled {
			st.DefaultPage = other
		}
	})
}
