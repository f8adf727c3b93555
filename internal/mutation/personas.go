package mutation

import (
	"context"
	"net/http"
	"strconv"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/popup"
	"github.com/raphaelgruber/onyx-admin/internal/reconcile"
)

func personaKeys() []string {
	return []string{client.PersonasKey(false), client.PersonasKey(true)}
}

// Personas runs the assistant list flows.
type Personas struct {
	d   *Dispatcher
	set popup.Setter
}

// Personas returns the persona flows reporting through set.
func (d *Dispatcher) Personas(set popup.Setter) *Personas {
	return &Personas{d: d, set: set}
}

// Reorder moves personas into the order given by ids and stores it as
// display priorities. On failure the original order is returned unchanged.
func (p *Personas) Reorder(ctx context.Context, current []client.Persona, ids []int) ([]client.Persona, error) {
	next := reconcile.ApplyOrder(current, ids)
	priorities := reconcile.DisplayPriorityMap(reconcile.PersonaIDs(next))

	body := map[string]map[string]int{"display_priority_map": stringKeys(priorities)}
	res := p.d.Perform(ctx, http.MethodPut, client.PersonaDisplayPriorityPath, body)
	if !res.OK {
		popup.Report(p.set, popup.Error("Failed to update persona order - "+res.Text))
		return current, &StepError{Step: StepPersist, Err: res.Err}
	}

	p.d.Invalidate(personaKeys()...)
	return next, nil
}

// SetVisible shows or hides a persona in the chat and search pages.
func (p *Personas) SetVisible(ctx context.Context, id int, visible bool) error {
	res := p.d.Perform(ctx, http.MethodPatch, client.PersonaVisiblePath(id), map[string]bool{"is_visible": visible})
	if !res.OK {
		popup.Report(p.set, popup.Error("Failed to update persona - "+res.Text))
		return &StepError{Step: StepPersist, Err: res.Err}
	}
	p.d.Invalidate(personaKeys()...)
	return nil
}

// Delete removes a persona.
func (p *Personas) Delete(ctx context.Context, id int) error {
	res := p.d.Perform(ctx, http.MethodDelete, client.PersonaPath(id), nil)
	if !res.OK {
		popup.Report(p.set, popup.Error("Failed to delete persona - "+res.Text))
		return &StepError{Step: StepPersist, Err: res.Err}
	}
	p.d.Invalidate(personaKeys()...)
	popup.Report(p.set, popup.Success("Persona deleted"))
	return nil
}

func stringKeys(m map[int]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v
	}
	return out
}
