package handler

import (
	"feedlog/internal/namespace/models"
)

// PermissionsRequest carries plaintext credentials. They are hashed before
// storage and never echoed back.
type PermissionsRequest struct {
	OwnerToken  string `json:"owner_token,omitempty"`
	WriterToken string `json:"writer_token,omitempty"`
}

type RegisterRequest struct {
	Issuer      string             `json:"issuer"`
	TrustPolicy string             `json:"trust_policy"`
	Permissions PermissionsRequest `json:"permissions"`
}

func (r *RegisterRequest) Validate() error {
	if err := models.ValidateIssuer(r.Issuer); err != nil {
		return err
	}
	_, err := models.ParsePolicyKind(r.TrustPolicy)
	return err
}

// ConfigRequest is the PUT /namespaces/{issuer} body; the issuer comes from the path.
type ConfigRequest struct {
	TrustPolicy string             `json:"trust_policy"`
	Permissions PermissionsRequest `json:"permissions"`
}

func (r *ConfigRequest) Validate() error {
	_, err := models.ParsePolicyKind(r.TrustPolicy)
	return err
}
