package handler

import (
	"time"

	"feedlog/internal/feeds/models"
)

type ItemResponse struct {
	Issuer        string    `json:"issuer"`
	Subject       string    `json:"subject"`
	Seqno         uint64    `json:"seqno"`
	ItemReference string    `json:"item_reference"`
	SubmittedAt   time.Time `json:"submitted_at"`
	// Envelope is the raw JWS, present only when the deployment stores envelopes.
	Envelope string `json:"envelope,omitempty"`
}

func toItemResponse(item *models.StoredItem) *ItemResponse {
	return &ItemResponse{
		Issuer:        item.Issuer,
		Subject:       item.Subject,
		Seqno:         item.Seqno,
		ItemReference: item.Reference(),
		SubmittedAt:   item.SubmittedAt,
		Envelope:      string(item.Envelope),
	}
}
