package popup_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/raphaelgruber/onyx-admin/internal/popup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetReplacesWithoutQueue(t *testing.T) {
	f := popup.NewFactory()
	s := f.New(nil)

	s.Set(popup.Success("saved"))
	s.Set(popup.Error("failed"))

	got := s.Current()
	require.NotNil(t, got)
	assert.Equal(t, "failed", got.Message)
	assert.Equal(t, popup.TypeError, got.Type)

	s.Dismiss()
	assert.Nil(t, s.Current())
	assert.Empty(t, s.Render())
}

func TestAutoDismiss(t *testing.T) {
	f := &popup.Factory{Timeout: 20 * time.Millisecond, Theme: popup.DefaultTheme}

	var mu sync.Mutex
	var changes []*popup.Spec
	s := f.New(func(spec *popup.Spec) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, spec)
	})

	s.Set(popup.Warning("careful"))
	require.Eventually(t, func() bool { return s.Current() == nil }, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 2)
	assert.Equal(t, "careful", changes[0].Message)
	assert.Nil(t, changes[1], "dismissal is reported")
}

func TestReplacementRestartsTimer(t *testing.T) {
	f := &popup.Factory{Timeout: 60 * time.Millisecond, Theme: popup.DefaultTheme}
	s := f.New(nil)

	s.Set(popup.Success("first"))
	time.Sleep(40 * time.Millisecond)
	s.Set(popup.Success("second"))
	time.Sleep(40 * time.Millisecond)

	got := s.Current()
	require.NotNil(t, got, "the first timer must not clear the second message")
	assert.Equal(t, "second", got.Message)
}

func TestSurfacesAreIndependent(t *testing.T) {
	f := popup.NewFactory()
	a, b := f.New(nil), f.New(nil)

	a.Set(popup.Success("a"))
	assert.Nil(t, b.Current())
	assert.Contains(t, a.Render(), "a")
}

func TestReportFallsBackToAlert(t *testing.T) {
	var buf bytes.Buffer
	old := popup.AlertWriter
	popup.AlertWriter = &buf
	defer func() { popup.AlertWriter = old }()

	popup.Report(nil, popup.Error("Failed to cancel embedding model update - nope"))
	assert.Equal(t, "Failed to cancel embedding model update - nope\n", buf.String())

	var got *popup.Spec
	popup.Report(func(s *popup.Spec) { got = s }, popup.Success("ok"))
	require.NotNil(t, got)
	assert.Equal(t, "ok", got.Message)
	assert.Equal(t, "Failed to cancel embedding model update - nope\n", buf.String(), "no alert when a setter exists")
}
