package handler

import (
	"net/http"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/interaction"
	"github.com/booms-platform/booms-core/observability"
	"github.com/rs/zerolog"
)

// InteractionHandler serves POST /interactions/ — the standalone
// like/share/view/comment recorder of component C11.
type InteractionHandler struct {
	recorder *interaction.Recorder
	metrics *observability.Metrics
	logger zerolog.Logger
}

// NewInteractionHandler builds an InteractionHandler.
func NewInteractionHandler(r *interaction.Recorder, metrics *observability.Metrics, logger zerolog.Logger) *InteractionHandler {
	return &InteractionHandler{recorder: r, metrics: metrics, logger: logger.With().Str("handler", "interaction").Logger()}
}

type interactionRequest struct {
	BoomID int64 `json:"boom_id"`
	Action interaction.Action `json:"action_type"`
	Metadata map[string]any `json:"metadata"`
}

// Record handles POST /interactions/.
func (h *InteractionHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req interactionRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	result, err := h.recorder.Record(r.Context(), interaction.RecordInput{
		UserID: userID,
		BoomID: req.BoomID,
		Action: req.Action,
		Metadata: req.Metadata,
	})
	h.metrics.TrackPipelineOutcome("interaction_record", outcomeLabel(err))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
