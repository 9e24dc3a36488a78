package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"feedlog/internal/feeds/models"
	"feedlog/internal/feeds/service"
	nsmodels "feedlog/internal/namespace/models"
	dErrors "feedlog/pkg/domain-errors"
	"feedlog/pkg/platform/httputil"
	"feedlog/pkg/requestcontext"
)

// HeaderWriterToken carries the writer credential for writer-gated namespaces.
const HeaderWriterToken = "X-Namespace-Writer-Token"

// Service defines the feed operations the handler needs.
type Service interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*models.Receipt, error)
	Latest(ctx context.Context, issuer, subject string) (*models.StoredItem, error)
	Item(ctx context.Context, issuer, subject string, seqno uint64) (*models.StoredItem, error)
}

// Handler serves submission and feed read endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register registers the feed routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/submit", h.handleSubmit)
	r.Route("/namespaces/{issuer}/feeds/{subject}", func(r chi.Router) {
		r.Post("/items", h.handleSubmitToFeed)
		r.Get("/items/{seqno}", h.handleGetItem)
		r.Get("/latest", h.handleLatest)
	})
}

// handleSubmit accepts a self-describing envelope whose iss and sub claims
// name the feed.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "", "")
}

func (h *Handler) handleSubmitToFeed(w http.ResponseWriter, r *http.Request) {
	issuer, subject, err := feedFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.submit(w, r, issuer, subject)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, issuer, subject string) {
	ctx := r.Context()

	body, err := httputil.ReadBody(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	receipt, err := h.service.Submit(ctx, service.SubmitRequest{
		Envelope:    body,
		Issuer:      issuer,
		Subject:     subject,
		WriterToken: r.Header.Get(HeaderWriterToken),
	})
	if err != nil {
		h.logFailure(ctx, "submission failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	issuer, subject, err := feedFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	item, err := h.service.Latest(ctx, issuer, subject)
	if err != nil {
		h.logFailure(ctx, "failed to read latest item", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	issuer, subject, err := feedFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	seqno, err := strconv.ParseUint(chi.URLParam(r, "seqno"), 10, 64)
	if err != nil || seqno == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "seqno must be a positive integer"))
		return
	}
	item, err := h.service.Item(ctx, issuer, subject, seqno)
	if err != nil {
		h.logFailure(ctx, "failed to read item", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}

func feedFromPath(r *http.Request) (string, string, error) {
	issuer, err := httputil.PathParam(r, "issuer")
	if err != nil {
		return "", "", err
	}
	if err := nsmodels.ValidateIssuer(issuer); err != nil {
		return "", "", err
	}
	subject, err := httputil.PathParam(r, "subject")
	if err != nil {
		return "", "", err
	}
	if err := models.ValidateSubject(subject); err != nil {
		return "", "", err
	}
	return issuer, subject, nil
}
