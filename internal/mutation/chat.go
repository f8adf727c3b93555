package mutation

import (
	"context"
	"net/http"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/popup"
)

// Chat runs chat session sharing flows.
type Chat struct {
	d    *Dispatcher
	set  popup.Setter
	link func(client.ChatSessionID) string
}

// Chat returns the sharing flows. link builds the public URL of a session.
func (d *Dispatcher) Chat(set popup.Setter, link func(client.ChatSessionID) string) *Chat {
	return &Chat{d: d, set: set, link: link}
}

// Share makes a session public and returns its link.
func (c *Chat) Share(ctx context.Context, id client.ChatSessionID) (string, error) {
	if err := c.setSharing(ctx, id, client.SharingPublic); err != nil {
		popup.Report(c.set, popup.Error("Failed to generate a share link: "+client.DetailOf(err)))
		return "", err
	}
	link := c.link(id)
	popup.Report(c.set, popup.Success("Share link: "+link))
	return link, nil
}

// Unshare makes a session private again. Existing links stop working.
func (c *Chat) Unshare(ctx context.Context, id client.ChatSessionID) error {
	if err := c.setSharing(ctx, id, client.SharingPrivate); err != nil {
		popup.Report(c.set, popup.Error("Failed to delete share link: "+client.DetailOf(err)))
		return err
	}
	popup.Report(c.set, popup.Success("Chat session is private"))
	return nil
}

func (c *Chat) setSharing(ctx context.Context, id client.ChatSessionID, status client.SharingStatus) error {
	res := c.d.Perform(ctx, http.MethodPatch, client.ChatSessionPathOf(id), client.ChatSessionUpdate{SharingStatus: status})
	if !res.OK {
		return &StepError{Step: StepPersist, Err: res.Err}
	}
	return nil
}
