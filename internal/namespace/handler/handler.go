package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"feedlog/internal/namespace/models"
	"feedlog/internal/namespace/service"
	dErrors "feedlog/pkg/domain-errors"
	"feedlog/pkg/platform/httputil"
	"feedlog/pkg/platform/middleware/admin"
	"feedlog/pkg/requestcontext"
)

// HeaderOwnerToken carries the owner credential for updates of owner-gated namespaces.
const HeaderOwnerToken = "X-Namespace-Owner-Token"

// Service defines the namespace operations the handler needs.
type Service interface {
	RegisterOrUpdate(ctx context.Context, req service.RegisterRequest) (bool, *models.Namespace, error)
	Get(ctx context.Context, issuer string) (*models.Namespace, error)
}

// Handler serves the namespace registry endpoints.
type Handler struct {
	service           Service
	logger            *slog.Logger
	registrationToken string
}

// New creates a namespace Handler. A non-empty registrationToken gates the
// write routes behind X-Admin-Token.
func New(svc Service, logger *slog.Logger, registrationToken string) *Handler {
	return &Handler{
		service:           svc,
		logger:            logger,
		registrationToken: registrationToken,
	}
}

// Register registers the namespace routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	gate := admin.RequireAdminToken(h.registrationToken, h.logger)

	r.With(gate).Post("/register", h.handleRegister)
	r.Get("/namespaces/{issuer}", h.handleGet)
	r.With(gate).Put("/namespaces/{issuer}", h.handleSetConfig)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	h.upsert(w, r, req.Issuer, req.TrustPolicy, req.Permissions)
}

func (h *Handler) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	issuer, err := PathIssuer(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ConfigRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	h.upsert(w, r, issuer, req.TrustPolicy, req.Permissions)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request, issuer, policy string, perms PermissionsRequest) {
	ctx := r.Context()

	created, ns, err := h.service.RegisterOrUpdate(ctx, service.RegisterRequest{
		Issuer:      issuer,
		TrustPolicy: policy,
		Credentials: service.Credentials{
			OwnerToken:  perms.OwnerToken,
			WriterToken: perms.WriterToken,
		},
		PresentedOwnerToken: r.Header.Get(HeaderOwnerToken),
	})
	if err != nil {
		h.logFailure(ctx, "failed to register namespace", issuer, err)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, toResponse(ns))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	issuer, err := PathIssuer(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ns, err := h.service.Get(ctx, issuer)
	if err != nil {
		h.logFailure(ctx, "failed to get namespace", issuer, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(ns))
}

func (h *Handler) logFailure(ctx context.Context, msg, issuer string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"issuer", issuer,
		"error", err,
	)
}

// PathIssuer reads and validates the {issuer} route parameter.
func PathIssuer(r *http.Request) (string, error) {
	issuer, err := httputil.PathParam(r, "issuer")
	if err != nil {
		return "", err
	}
	if err := models.ValidateIssuer(issuer); err != nil {
		return "", err
	}
	return issuer, nil
}
