package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"loan-intake-service/internal/domain/session"
	"loan-intake-service/internal/usecase/draftstore"
)

type DraftHandler struct {
	store  session.Store
	drafts *draftstore.Store
}

func NewDraftHandler(store session.Store, drafts *draftstore.Store) *DraftHandler {
	return &DraftHandler{store: store, drafts: drafts}
}

// SaveDraft snapshots the current session. Document contents are never part
// of the snapshot, only their metadata.
func (h *DraftHandler) SaveDraft(c echo.Context) error {
	sessionID := c.Param("session_id")
	sess, err := h.store.Get(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}
	snap := draftstore.FromSession(sess)
	if err := h.drafts.Save(c.Request().Context(), sessionID, snap); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, snap)
}

func (h *DraftHandler) LoadDraft(c echo.Context) error {
	snap, err := h.drafts.Load(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// RestoreDraft loads the saved snapshot and applies it to the session. The
// response is the refreshed session; placeholder documents must be re-attached
// before they can be uploaded.
func (h *DraftHandler) RestoreDraft(c echo.Context) error {
	sessionID := c.Param("session_id")
	snap, err := h.drafts.Load(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}
	if err := draftstore.Restore(c.Request().Context(), h.store, sessionID, snap); err != nil {
		return writeError(c, err)
	}
	sess, err := h.store.Get(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *DraftHandler) ClearDraft(c echo.Context) error {
	if err := h.drafts.Clear(c.Request().Context(), c.Param("session_id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
