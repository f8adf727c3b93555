package client

// Workspace endpoints.
const (
	SettingsPath = "/api/admin/settings"
	MePath       = "/api/me"
	ToolsPath    = "/api/tool"
)
