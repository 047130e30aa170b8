package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/docsage/docsage/internal/ingest"
	"github.com/docsage/docsage/internal/log"
)

// Processor runs one change notification through the ingestion pipeline.
// Implemented by *ingest.Pipeline.
type Processor interface {
	Process(ctx context.Context, n ingest.Notification) (*ingest.Report, error)
}

// notificationResponse is the webhook reply: the ingestion report plus a
// flattened view of any per-chunk failures.
type notificationResponse struct {
	DocumentID  string       `json:"document_id,omitempty"`
	Outcome     string       `json:"outcome"`
	ChunkCount  int          `json:"chunk_count"`
	ChunkErrors []chunkError `json:"chunk_errors,omitempty"`
}

type chunkError struct {
	ChunkIndex int    `json:"chunk_index"`
	Error      string `json:"error"`
}

type webhookHandler struct {
	pipeline Processor
	logger   log.Logger
}

// handleNotification receives Drive push notifications. Identity travels in
// headers, not the body; the body is ignored.
func (h *webhookHandler) handleNotification(w http.ResponseWriter, r *http.Request) {
	n := ingest.Notification{
		ChannelID:  r.Header.Get(ingest.HeaderChannelID),
		ResourceID: r.Header.Get(ingest.HeaderResourceID),
		State:      r.Header.Get(ingest.HeaderResourceState),
	}

	report, err := h.pipeline.Process(r.Context(), n)
	if err != nil {
		if errors.Is(err, ingest.ErrMissingResourceID) {
			writeError(w, http.StatusBadRequest, "invalid_notification", "notification is missing the resource id header", h.logger)
			return
		}
		h.logger.Error("ingestion failed", "error", err, "resource_id", n.ResourceID)
		writeError(w, http.StatusInternalServerError, "ingest_failed", "failed to process the notification", h.logger)
		return
	}

	resp := notificationResponse{
		DocumentID: report.DocumentID,
		Outcome:    string(report.Outcome),
		ChunkCount: report.ChunkCount,
	}
	for _, ce := range report.ChunkErrors {
		resp.ChunkErrors = append(resp.ChunkErrors, chunkError{
			ChunkIndex: ce.Index,
			Error:      ce.Err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}
