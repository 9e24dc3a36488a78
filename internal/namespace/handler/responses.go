package handler

import (
	"time"

	"feedlog/internal/namespace/models"
)

type NamespaceResponse struct {
	Issuer      string    `json:"issuer"`
	TrustPolicy string    `json:"trust_policy"`
	OwnerGated  bool      `json:"owner_gated"`
	WriterGated bool      `json:"writer_gated"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toResponse(ns *models.Namespace) *NamespaceResponse {
	return &NamespaceResponse{
		Issuer:      ns.Issuer,
		TrustPolicy: string(ns.TrustPolicy),
		OwnerGated:  ns.Permissions.HasOwner(),
		WriterGated: ns.Permissions.HasWriter(),
		CreatedAt:   ns.CreatedAt,
		UpdatedAt:   ns.UpdatedAt,
	}
}
