package client

import "fmt"

// Persona endpoints.
const (
	PersonasPath               = "/api/admin/persona"
	PersonaDisplayPriorityPath = "/api/admin/persona/display-priority"
)

// PersonasKey returns the resource key of the persona listing.
func PersonasKey(editable bool) string {
	if editable {
		return PersonasPath + "?get_editable=true"
	}
	return PersonasPath
}

// PersonaVisiblePath returns the path toggling a persona's visibility.
func PersonaVisiblePath(id int) string {
	return fmt.Sprintf("%s/%d/visible", PersonasPath, id)
}

// PersonaPath returns the path of a single persona outside the admin API.
func PersonaPath(id int) string {
	return fmt.Sprintf("/api/persona/%d", id)
}
