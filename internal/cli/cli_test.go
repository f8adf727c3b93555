package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/config"
	"github.com/raphaelgruber/onyx-admin/internal/fetcher"
	"github.com/raphaelgruber/onyx-admin/internal/mutation"
	"github.com/raphaelgruber/onyx-admin/internal/reconcile"
	"github.com/raphaelgruber/onyx-admin/internal/session"
	"github.com/raphaelgruber/onyx-admin/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestApplyAssignments(t *testing.T) {
	base := client.Settings{
		ChatPageEnabled:   true,
		SearchPageEnabled: true,
		DefaultPage:       "chat",
	}

	tests := []struct {
		name     string
		args     []string
		wantKeys []string
		check    func(t *testing.T, s client.Settings)
		wantErr  string
	}{
		{
			name:     "bools and page",
			args:     []string{"search_page_enabled=false", "default_page=chat", "auto_scroll=true"},
			wantKeys: []string{"search_page_enabled", "default_page", "auto_scroll"},
			check: func(t *testing.T, s client.Settings) {
				assert.False(t, s.SearchPageEnabled)
				assert.True(t, s.AutoScroll)
			},
		},
		{
			name:     "retention days",
			args:     []string{"maximum_chat_retention_days=30"},
			wantKeys: []string{"maximum_chat_retention_days"},
			check: func(t *testing.T, s client.Settings) {
				require.NotNil(t, s.MaximumChatRetentionDays)
				assert.Equal(t, 30, *s.MaximumChatRetentionDays)
			},
		},
		{
			name:     "retention none and repeated key",
			args:     []string{"maximum_chat_retention_days=7", "maximum_chat_retention_days=none"},
			wantKeys: []string{"maximum_chat_retention_days"},
			check: func(t *testing.T, s client.Settings) {
				assert.Nil(t, s.MaximumChatRetentionDays)
			},
		},
		{name: "unknown key", args: []string{"theme=dark"}, wantErr: "unknown setting"},
		{name: "missing value", args: []string{"auto_scroll"}, wantErr: "expected key=value"},
		{name: "bad bool", args: []string{"auto_scroll=maybe"}, wantErr: "expected true or false"},
		{name: "bad days", args: []string{"maximum_chat_retention_days=soon"}, wantErr: "number of days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keys, err := applyAssignments(base, tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeys, keys)
			tt.check(t, got)
		})
	}

	assert.True(t, base.SearchPageEnabled, "the input settings are not modified")
}

func TestAssignmentsStillValidated(t *testing.T) {
	next, _, err := applyAssignments(client.Settings{ChatPageEnabled: true, SearchPageEnabled: true, DefaultPage: "chat"},
		[]string{"chat_page_enabled=false", "search_page_enabled=false", "maximum_chat_retention_days=0"})
	require.NoError(t, err, "parsing accepts any well-formed value")

	errs := validation.Validate(next)
	assert.Equal(t, "At least one of the chat and search pages must be enabled", errs["chat_page_enabled"])
	assert.Contains(t, errs, "maximum_chat_retention_days")
}

func TestSettingValue(t *testing.T) {
	yes := true
	s := client.Settings{DefaultPage: "search", MaximumChatRetentionDays: intPtr(14), AnonymousUserEnabled: &yes}
	assert.Equal(t, "search", settingValue(s, "default_page"))
	assert.Equal(t, "14", settingValue(s, "maximum_chat_retention_days"))
	assert.Equal(t, "true", settingValue(s, "anonymous_user_enabled"))
	assert.Equal(t, "none", settingValue(client.Settings{}, "maximum_chat_retention_days"))
	assert.Equal(t, "-", settingValue(client.Settings{}, "anonymous_user_enabled"))
}

func TestFormatStatusCountsFollowsStatusOrder(t *testing.T) {
	got := formatStatusCounts(map[client.AttemptStatus]int{
		client.AttemptSuccess:    3,
		client.AttemptFailed:     1,
		client.AttemptInProgress: 2,
	})
	assert.Equal(t, "failed: 1  in_progress: 2  success: 3\n", got)
}

func TestFormatIndexingTable(t *testing.T) {
	table := reconcile.IndexingTable{
		Editable: []client.ConnectorIndexingStatus{
			{CCPairID: 1, Name: "docs", Connector: client.Connector{Source: "web"}, DocsIndexed: 10,
				LatestIndexAttempt: &client.IndexAttempt{ID: 5, Status: client.AttemptSuccess}},
		},
		Others: []client.ConnectorIndexingStatus{
			{CCPairID: 2, Name: "tickets", Connector: client.Connector{Source: "jira"}},
		},
	}

	out := formatIndexingTable(defaultTheme, table)
	assert.Contains(t, out, "Editable (1):")
	assert.Contains(t, out, "Other (1):")
	assert.Less(t, strings.Index(out, "docs"), strings.Index(out, "tickets"))
	assert.Contains(t, out, "not_started: 1  success: 1")

	assert.Equal(t, "No connectors found.\n", formatIndexingTable(defaultTheme, reconcile.IndexingTable{}))
}

func TestFormatEmbeddingStatus(t *testing.T) {
	steady := formatEmbeddingStatus(defaultTheme, reconcile.EmbeddingStatus{
		Mode:    reconcile.ModeSteady,
		Current: &client.EmbeddingModel{ModelName: "nomic-embed", ModelDim: 768},
	})
	assert.Equal(t, "Current model: nomic-embed (768 dims)\n", steady)

	msg := "rate limited"
	upgrading := formatEmbeddingStatus(defaultTheme, reconcile.EmbeddingStatus{
		Mode:      reconcile.ModeUpgrading,
		Current:   &client.EmbeddingModel{ModelName: "old", ModelDim: 384},
		Future:    &client.EmbeddingModel{ModelName: "new", ModelDim: 1024},
		Failed:    []client.FailedConnectorIndexingStatus{{Name: "wiki", ErrorMsg: &msg}},
		Completed: 1,
		Total:     2,
	})
	assert.Contains(t, upgrading, "Switching to:  new (1024 dims)")
	assert.Contains(t, upgrading, "1/2 connectors")
	assert.Contains(t, upgrading, "wiki: rate limited")
}

func TestLoadingFrame(t *testing.T) {
	f := loadingFrame(errors.Join(errors.New("other key ok"), fetcher.ErrNotLoaded))
	assert.Equal(t, "Loading...\n", f.Body)
	assert.NoError(t, f.Err)

	apiErr := &client.APIError{StatusCode: http.StatusForbidden}
	assert.ErrorIs(t, loadingFrame(apiErr).Err, apiErr)
}

func TestReported(t *testing.T) {
	persist := &mutation.StepError{Step: mutation.StepPersist, Err: errors.New("boom")}
	validate := &mutation.StepError{Step: mutation.StepValidate, Err: validation.FieldErrors{"name": "Name is required"}}

	assert.True(t, Reported(reported(persist)))
	assert.ErrorIs(t, reported(persist), persist)
	assert.False(t, Reported(reported(validate)), "validation errors are printed by main")
	assert.False(t, Reported(reported(errors.New("plain"))))
	assert.NoError(t, reported(nil))
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, client.Settings{DefaultPage: "chat", ChatPageEnabled: true}))
	out := buf.String()
	assert.Contains(t, out, "chat_page_enabled: true")
	assert.Contains(t, out, "default_page: chat")
	assert.NotContains(t, out, "notifications")
}

func TestParseID(t *testing.T) {
	id, err := parseID("persona", "12")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := parseID("persona", bad)
		assert.Error(t, err, bad)
	}
}

func TestWatchModelStopsWhenDone(t *testing.T) {
	calls := 0
	render := func(states map[string]fetcher.State) frame {
		calls++
		return frame{Body: string(states["/k"].Data), Done: string(states["/k"].Data) == `"done"`}
	}
	m := newWatchModel("title", make([]*fetcher.Subscription, 1), render)

	next, cmd := m.Update(stateMsg{i: 0, state: fetcher.State{Key: "/k", Data: []byte(`"running"`)}, open: true})
	m = next.(watchModel)
	assert.NotNil(t, cmd, "keeps waiting for the next state")
	assert.False(t, m.frame.Done)
	assert.Contains(t, m.renderContent(), `"running"`)
	assert.Contains(t, m.renderContent(), "Press q to stop watching")

	next, _ = m.Update(stateMsg{i: 0, state: fetcher.State{Key: "/k", Data: []byte(`"done"`)}, open: true})
	m = next.(watchModel)
	assert.True(t, m.frame.Done)
	assert.NotContains(t, m.renderContent(), "Press q")
	assert.Equal(t, 2, calls)
}

func TestWatchModelEndsWithSubscriptions(t *testing.T) {
	m := newWatchModel("title", make([]*fetcher.Subscription, 2), func(map[string]fetcher.State) frame { return frame{} })

	next, cmd := m.Update(stateMsg{i: 0, open: false})
	m = next.(watchModel)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.ended)
	assert.Contains(t, m.renderContent(), "Loading...")

	next, cmd = m.Update(stateMsg{i: 1, open: false})
	assert.NotNil(t, cmd, "quits after the last subscription ended")
	assert.Equal(t, 2, next.(watchModel).ended)
}

func TestTeardownClosesSessionAndLog(t *testing.T) {
	s := session.New(config.Config{ServerURL: "http://127.0.0.1:1", ClientTimeout: time.Second, CacheSize: 4},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	logClosed := 0
	sess = s
	closeLog = func() error {
		logClosed++
		return nil
	}

	teardown()
	teardown()

	_, err := s.Settings(context.Background())
	assert.ErrorIs(t, err, session.ErrClosed)
	assert.Equal(t, 1, logClosed, "the log is closed once")
	assert.Nil(t, sess)
	assert.Nil(t, closeLog)
}
