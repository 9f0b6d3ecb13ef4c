package ops

import (
	"fmt"
	"strings"

	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/meme"
	"github.com/hpungsan/memebox/internal/store"
)

// ComposeInput contains parameters for the Compose operation.
type ComposeInput struct {
	Name     string              `json:"name"`
	Image    string              `json:"image,omitempty"`
	Overlays []meme.OverlayInput `json:"overlays,omitempty"`
}

// ComposeOutput contains the result of the Compose operation.
type ComposeOutput struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Image      string   `json:"image,omitempty"`
	OverlayIDs []string `json:"overlay_ids"`
}

// Compose builds a meme in one call: it starts a new working meme, sets the
// image (recording it as recent), adds the overlays in order and saves.
// The composed meme is left as the working meme.
func Compose(st *store.Store, input ComposeInput) (*ComposeOutput, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	if len(input.Overlays) > MaxComposeOverlays {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("too many overlays: %d (max %d)", len(input.Overlays), MaxComposeOverlays))
	}
	image := strings.TrimSpace(input.Image)

	var ids []string
	next := st.Do("compose", true, func(env store.Env, s store.State) store.State {
		s = store.CreateNewMeme(env, s)
		if image != "" {
			s = store.SetImage(env, s, image)
			s = store.AddToRecentImages(env, s, image)
		}
		ids = make([]string, 0, len(input.Overlays))
		for _, in := range input.Overlays {
			s = store.AddTextOverlay(env, s, in)
			ids = append(ids, s.SelectedOverlayID)
		}
		s = store.SelectOverlay(env, s, "")
		return store.SaveMeme(env, s, name)
	})

	cur := next.CurrentMeme
	return &ComposeOutput{
		ID:         cur.ID,
		Name:       cur.Name,
		Image:      cur.Image,
		OverlayIDs: ids,
	}, nil
}
