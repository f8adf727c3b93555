package client

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONNECTORS
// =============================================================================

// AttemptStatus is the lifecycle state of an index attempt.
type AttemptStatus string

const (
	AttemptNotStarted          AttemptStatus = "not_started"
	AttemptInProgress          AttemptStatus = "in_progress"
	AttemptSuccess             AttemptStatus = "success"
	AttemptCompletedWithErrors AttemptStatus = "completed_with_errors"
	AttemptFailed              AttemptStatus = "failed"
	AttemptCanceled            AttemptStatus = "canceled"
)

// IndexAttempt is one indexing run of a connector-credential pair.
type IndexAttempt struct {
	ID                   int           `json:"id" yaml:"id"`
	Status               AttemptStatus `json:"status" yaml:"status"`
	NewDocsIndexed       int           `json:"new_docs_indexed" yaml:"new_docs_indexed"`
	TotalDocsIndexed     int           `json:"total_docs_indexed" yaml:"total_docs_indexed"`
	DocsRemovedFromIndex int           `json:"docs_removed_from_index" yaml:"docs_removed_from_index"`
	ErrorMsg             *string       `json:"error_msg,omitempty" yaml:"error_msg,omitempty"`
	TimeStarted          *time.Time    `json:"time_started,omitempty" yaml:"time_started,omitempty"`
	TimeUpdated          time.Time     `json:"time_updated" yaml:"time_updated"`
}

// Connector is the connector half of a cc pair.
type Connector struct {
	ID     int    `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Source string `json:"source" yaml:"source"`
}

// Credential is the credential half of a cc pair.
type Credential struct {
	ID int `json:"id" yaml:"id"`
}

// ConnectorIndexingStatus is the indexing lifecycle of one connector-credential pair.
// The client never mutates it; it only triggers runs and polls again.
type ConnectorIndexingStatus struct {
	CCPairID           int           `json:"cc_pair_id" yaml:"cc_pair_id"`
	Name               string        `json:"name" yaml:"name"`
	CCPairStatus       string        `json:"cc_pair_status" yaml:"cc_pair_status"`
	Connector          Connector     `json:"connector" yaml:"connector"`
	Credential         Credential    `json:"credential" yaml:"credential"`
	PublicDoc          bool          `json:"public_doc" yaml:"public_doc"`
	LastStatus         *string       `json:"last_status,omitempty" yaml:"last_status,omitempty"`
	LastSuccess        *time.Time    `json:"last_success,omitempty" yaml:"last_success,omitempty"`
	DocsIndexed        int           `json:"docs_indexed" yaml:"docs_indexed"`
	ErrorMsg           *string       `json:"error_msg,omitempty" yaml:"error_msg,omitempty"`
	LatestIndexAttempt *IndexAttempt `json:"latest_index_attempt,omitempty" yaml:"latest_index_attempt,omitempty"`
	IsDeletable        bool          `json:"is_deletable" yaml:"is_deletable"`
	InProgress         bool          `json:"in_progress" yaml:"in_progress"`
}

// FailedConnectorIndexingStatus describes a cc pair whose latest attempt failed.
type FailedConnectorIndexingStatus struct {
	CCPairID     int     `json:"cc_pair_id" yaml:"cc_pair_id"`
	Name         string  `json:"name" yaml:"name"`
	ErrorMsg     *string `json:"error_msg,omitempty" yaml:"error_msg,omitempty"`
	IsDeletable  bool    `json:"is_deletable" yaml:"is_deletable"`
	ConnectorID  int     `json:"connector_id" yaml:"connector_id"`
	CredentialID int     `json:"credential_id" yaml:"credential_id"`
}

// RunConnectorRequest triggers an indexing run.
type RunConnectorRequest struct {
	ConnectorID   int   `json:"connector_id"`
	CredentialIDs []int `json:"credential_ids"`
	FromBeginning bool  `json:"from_beginning"`
}

// =============================================================================
// LLM PROVIDERS
// =============================================================================

// CustomConfigKey describes one provider-specific configuration entry.
type CustomConfigKey struct {
	Name        string  `json:"name" yaml:"name"`
	Description *string `json:"description,omitempty" yaml:"description,omitempty"`
	IsRequired  bool    `json:"is_required" yaml:"is_required"`
}

// WellKnownLLMProviderDescriptor is a built-in provider template.
type WellKnownLLMProviderDescriptor struct {
	Name               string            `json:"name" yaml:"name"`
	DisplayName        string            `json:"display_name" yaml:"display_name"`
	APIKeyRequired     bool              `json:"api_key_required" yaml:"api_key_required"`
	APIBaseRequired    bool              `json:"api_base_required" yaml:"api_base_required"`
	APIVersionRequired bool              `json:"api_version_required" yaml:"api_version_required"`
	CustomConfigKeys   []CustomConfigKey `json:"custom_config_keys,omitempty" yaml:"custom_config_keys,omitempty"`
	LLMNames           []string          `json:"llm_names" yaml:"llm_names"`
	DefaultModel       *string           `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	DefaultFastModel   *string           `json:"default_fast_model,omitempty" yaml:"default_fast_model,omitempty"`
}

// LLMProviderUpsert is the request body for creating or updating a provider,
// and for testing a configuration before saving it.
type LLMProviderUpsert struct {
	Name                 string            `json:"name"`
	Provider             string            `json:"provider"`
	APIKey               string            `json:"api_key,omitempty"`
	APIBase              string            `json:"api_base,omitempty"`
	APIVersion           string            `json:"api_version,omitempty"`
	CustomConfig         map[string]string `json:"custom_config,omitempty"`
	DefaultModelName     string            `json:"default_model_name"`
	FastDefaultModelName string            `json:"fast_default_model_name,omitempty"`
	IsPublic             bool              `json:"is_public"`
	Groups               []int             `json:"groups"`
	DisplayModelNames    []string          `json:"display_model_names,omitempty"`
	ModelNames           []string          `json:"model_names,omitempty"`
	DeploymentName       string            `json:"deployment_name,omitempty"`
}

// FullLLMProvider is a configured provider as returned by the admin API.
type FullLLMProvider struct {
	ID                   int               `json:"id" yaml:"id"`
	Name                 string            `json:"name" yaml:"name"`
	Provider             string            `json:"provider" yaml:"provider"`
	APIKey               *string           `json:"api_key,omitempty" yaml:"-"`
	APIBase              *string           `json:"api_base,omitempty" yaml:"api_base,omitempty"`
	APIVersion           *string           `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	CustomConfig         map[string]string `json:"custom_config,omitempty" yaml:"custom_config,omitempty"`
	DefaultModelName     string            `json:"default_model_name" yaml:"default_model_name"`
	FastDefaultModelName *string           `json:"fast_default_model_name,omitempty" yaml:"fast_default_model_name,omitempty"`
	IsDefaultProvider    *bool             `json:"is_default_provider,omitempty" yaml:"is_default_provider,omitempty"`
	IsPublic             bool              `json:"is_public" yaml:"is_public"`
	Groups               []int             `json:"groups" yaml:"groups"`
	DisplayModelNames    []string          `json:"display_model_names,omitempty" yaml:"display_model_names,omitempty"`
	ModelNames           []string          `json:"model_names,omitempty" yaml:"model_names,omitempty"`
	DeploymentName       *string           `json:"deployment_name,omitempty" yaml:"deployment_name,omitempty"`
}

// IsDefault reports whether the provider is marked as the default.
func (p FullLLMProvider) IsDefault() bool {
	return p.IsDefaultProvider != nil && *p.IsDefaultProvider
}

// =============================================================================
// EMBEDDINGS
// =============================================================================

// CloudEmbeddingProvider is a configured embedding provider.
type CloudEmbeddingProvider struct {
	ProviderType      string            `json:"provider_type" yaml:"provider_type"`
	APIKey            *string           `json:"api_key,omitempty" yaml:"-"`
	APIURL            *string           `json:"api_url,omitempty" yaml:"api_url,omitempty"`
	APIVersion        *string           `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	DeploymentName    *string           `json:"deployment_name,omitempty" yaml:"deployment_name,omitempty"`
	CustomConfig      map[string]string `json:"custom_config,omitempty" yaml:"custom_config,omitempty"`
	IsDefaultProvider bool              `json:"is_default_provider" yaml:"is_default_provider"`
	IsConfigured      bool              `json:"is_configured" yaml:"is_configured"`
}

// EmbeddingProviderUpsert is the request body for saving an embedding provider.
// Nil fields are omitted so a credential change touches only the changed value.
type EmbeddingProviderUpsert struct {
	ProviderType      string            `json:"provider_type"`
	APIKey            *string           `json:"api_key,omitempty"`
	APIURL            *string           `json:"api_url,omitempty"`
	APIVersion        *string           `json:"api_version,omitempty"`
	DeploymentName    *string           `json:"deployment_name,omitempty"`
	CustomConfig      map[string]string `json:"custom_config,omitempty"`
	IsDefaultProvider bool              `json:"is_default_provider"`
	IsConfigured      bool              `json:"is_configured"`
}

// TestEmbeddingRequest validates embedding credentials without persisting them.
type TestEmbeddingRequest struct {
	ProviderType   string  `json:"provider_type"`
	APIKey         *string `json:"api_key,omitempty"`
	APIURL         *string `json:"api_url,omitempty"`
	ModelName      *string `json:"model_name,omitempty"`
	APIVersion     *string `json:"api_version,omitempty"`
	DeploymentName *string `json:"deployment_name,omitempty"`
}

// EmbeddingModel is the search settings subset describing an embedding model.
// The backend serves the active model as "current" and an in-transition one
// as "secondary"; at most one secondary model exists at a time.
type EmbeddingModel struct {
	ModelName     string  `json:"model_name" yaml:"model_name"`
	ModelDim      int     `json:"model_dim" yaml:"model_dim"`
	ProviderType  *string `json:"provider_type,omitempty" yaml:"provider_type,omitempty"`
	Normalize     bool    `json:"normalize" yaml:"normalize"`
	QueryPrefix   string  `json:"query_prefix" yaml:"query_prefix"`
	PassagePrefix string  `json:"passage_prefix" yaml:"passage_prefix"`
	IndexName     *string `json:"index_name,omitempty" yaml:"index_name,omitempty"`
}

// =============================================================================
// PERSONAS, CHAT, SETTINGS
// =============================================================================

// MinimalUser is a user reference embedded in other resources.
type MinimalUser struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
}

// Persona is an assistant configuration.
type Persona struct {
	ID              int           `json:"id" yaml:"id"`
	Name            string        `json:"name" yaml:"name"`
	Description     string        `json:"description" yaml:"description"`
	IsPublic        bool          `json:"is_public" yaml:"is_public"`
	IsVisible       bool          `json:"is_visible" yaml:"is_visible"`
	DisplayPriority *int          `json:"display_priority,omitempty" yaml:"display_priority,omitempty"`
	DefaultPersona  bool          `json:"default_persona" yaml:"default_persona"`
	BuiltinPersona  bool          `json:"builtin_persona" yaml:"builtin_persona"`
	Owner           *MinimalUser  `json:"owner,omitempty" yaml:"owner,omitempty"`
	Users           []MinimalUser `json:"users" yaml:"users"`
	Groups          []int         `json:"groups" yaml:"groups"`
}

// SharingStatus controls whether a chat session is reachable by link.
type SharingStatus string

const (
	SharingPublic  SharingStatus = "public"
	SharingPrivate SharingStatus = "private"
)

// ChatSessionUpdate is the body of a chat session PATCH.
type ChatSessionUpdate struct {
	SharingStatus SharingStatus `json:"sharing_status"`
}

// ChatSessionID identifies a chat session.
type ChatSessionID = uuid.UUID

// Settings are the workspace-wide toggles editable by admins.
// At least one of the chat and search pages must stay enabled.
type Settings struct {
	ChatPageEnabled          bool    `json:"chat_page_enabled" yaml:"chat_page_enabled"`
	SearchPageEnabled        bool    `json:"search_page_enabled" yaml:"search_page_enabled"`
	DefaultPage              string  `json:"default_page" yaml:"default_page" validate:"oneof=chat search"`
	MaximumChatRetentionDays *int    `json:"maximum_chat_retention_days" yaml:"maximum_chat_retention_days" validate:"omitempty,gt=0"`
	AutoScroll               bool    `json:"auto_scroll" yaml:"auto_scroll"`
	NeedsReindexing          bool    `json:"needs_reindexing" yaml:"needs_reindexing"`
	AnonymousUserEnabled     *bool   `json:"anonymous_user_enabled,omitempty" yaml:"anonymous_user_enabled,omitempty"`
	Notifications            []any   `json:"notifications,omitempty" yaml:"-"`
	ProductGating            *string `json:"product_gating,omitempty" yaml:"product_gating,omitempty"`
}

// UserRole is the role of an authenticated user.
type UserRole string

const (
	RoleBasic         UserRole = "basic"
	RoleAdmin         UserRole = "admin"
	RoleCurator       UserRole = "curator"
	RoleGlobalCurator UserRole = "global_curator"
)

// User is the currently authenticated user.
type User struct {
	ID    string   `json:"id" yaml:"id"`
	Email string   `json:"email" yaml:"email"`
	Role  UserRole `json:"role" yaml:"role"`
}

// IsAdmin reports whether the user can use admin endpoints.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Tool is an action an assistant can call.
type Tool struct {
	ID           int     `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Description  string  `json:"description" yaml:"description"`
	InCodeToolID *string `json:"in_code_tool_id,omitempty" yaml:"in_code_tool_id,omitempty"`
	DisplayName  string  `json:"display_name,omitempty" yaml:"display_name,omitempty"`
}

// IsBuiltin reports whether the tool ships with the backend.
func (t Tool) IsBuiltin() bool {
	return t.InCodeToolID != nil
}

// SearchDocument is a search result document reference.
type SearchDocument struct {
	DocumentID         string  `json:"document_id" yaml:"document_id"`
	SemanticIdentifier string  `json:"semantic_identifier" yaml:"semantic_identifier"`
	Link               *string `json:"link,omitempty" yaml:"link,omitempty"`
	Blurb              string  `json:"blurb" yaml:"blurb"`
	SourceType         string  `json:"source_type" yaml:"source_type"`
	Score              float64 `json:"score" yaml:"score"`
}
