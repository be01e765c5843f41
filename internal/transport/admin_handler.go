package transport

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"zarab-collections/internal/catalog"
	"zarab-collections/internal/dashboard"
	"zarab-collections/internal/domain"
	"zarab-collections/internal/form"
	"zarab-collections/internal/imaging"
	"zarab-collections/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxUploadBody caps a multipart upload. Files between the image limit and
// this cap still reach ingest and get its size message.
const maxUploadBody = 4 * imaging.MaxImageSize

// TabRequest switches the dashboard pane
type TabRequest struct {
	Tab string `json:"tab" validate:"required,oneof=products add"`
}

// DashboardResponse is everything the dashboard renders
type DashboardResponse struct {
	Shell    dashboard.State `json:"shell"`
	Products catalog.Page    `json:"products"`
	Form     form.Snapshot   `json:"form"`
}

// AdminHandler binds every admin request to the caller's dashboard shell
type AdminHandler struct {
	sessions SessionLookup
	registry *dashboard.Registry
	logger   *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(sessions SessionLookup, registry *dashboard.Registry, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		sessions: sessions,
		registry: registry,
		logger:   logger,
	}
}

// RegisterRoutes registers the admin routes behind authentication and the admin role
func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin(h.logger))

		r.Get("/dashboard", h.withShell(h.Dashboard))
		r.Put("/dashboard/tab", h.withShell(h.SetTab))

		r.Get("/products", h.withShell(h.ListProducts))
		r.Post("/products/{id}/edit", h.withShell(h.EditProduct))
		r.Delete("/products/{id}", h.withShell(h.DeleteProduct))

		r.Route("/form", func(r chi.Router) {
			r.Get("/", h.withShell(h.GetForm))
			r.Patch("/", h.withShell(h.PatchForm))
			r.Post("/sizes/{size}", h.withShell(h.ToggleSize))
			r.Post("/image", h.withShell(h.UploadImage))
			r.Delete("/image", h.withShell(h.RemoveImage))
			r.Post("/submit", h.withShell(h.Submit))
			r.Post("/cancel", h.withShell(h.Cancel))
		})
	})
}

type shellHandler func(w http.ResponseWriter, r *http.Request, shell *dashboard.Shell)

// withShell validates the session on every request and hands over its shell
func (h *AdminHandler) withShell(next shellHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := requestSession(r, h.sessions)
		if err != nil {
			h.logger.Debug("Session lookup failed", zap.Error(err))
			respondError(w, h.logger, err)
			return
		}

		next(w, r, h.registry.Shell(r.Context(), session))
	}
}

func (h *AdminHandler) render(w http.ResponseWriter, shell *dashboard.Shell) {
	middleware.RespondWithJSON(w, http.StatusOK, DashboardResponse{
		Shell:    shell.State(),
		Products: shell.View().Render(),
		Form:     shell.Form().Snapshot(),
	})
}

func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// Dashboard renders the shell, the product list and the form
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request, shell *dashboard.Shell) {
	h.render(w, shell)
}

// SetTab switches between the product list and the form
func (h *AdminHandler) SetTab(w http.ResponseWriter, r *http.Request, shell *dashboard.Shell) {
	var req TabRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	if err := shell.SetTab(dashboard.Tab(req.Tab)); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.render(w, shell)
}

// ListProducts re-fetches the catalog and renders the admin list.
// A failed fetch renders an empty list carrying the error.
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request, shell *dashboard.Shell) {
	view := shell.View()
	_ = view.Load(r.Context())
	middleware.RespondWithJSON(w, http.StatusOK, view.Render())
}

// EditProduct loads a listed product into the form
func (h *AdminHandler) EditProduct(w http.ResponseWriter, r *http.Request, shell *dashboard.Shell) {
	id, ok := productID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := shell.Edit(id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.render(w, shell)
}

func deleteConfirmed(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("X-Confirm-Delete"), "true") {
		return true
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return confirmed
}

// DeleteProduct removes a product when the request confirms it, then returns
// the re-fetched list
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request, shell *dashboard.Shell) {
	id, ok := productID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	confirmed := deleteConfirmed(r)
	err := shell.View().Delete(r.Context(), id, catalog.ConfirmFunc(func(domain.Product) bool {
		return confirmed
	}))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, shell.View().Render())
}

// GetForm returns the current draft
func (h *AdminHandler) GetForm(w http.ResponseWriter, r *http.Request, shell *dashboard.Shell) {
	middleware.RespondWithJSON(w, http.StatusOK, shell.Form().Snapshot())
}

// PatchForm changes text fields of the draft
func (h *AdminHandler) PatchForm(w http.ResponseWriter, r *http.Request, shell *dashboard.Shell) {
	var patch form.Patch
	if err := middleware.DecodeAndValidate(r, &patch); err != nil {
		respondDecodeError(w, err)
		return
	}

	if err := shell.Form().Apply(patch); err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, shell.Form().Snapshot())
}

// ToggleSize selects or deselects one size
func (h *AdminHandler) ToggleSize(w http.ResponseWriter, r *http.Request, shell *dashboard.Shell) {
	if err := shell.Form().ToggleSize(chi.URLParam(r, "size")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, shell.Form().Snapshot())
}

// UploadImage ingests the first file of the multipart field "image"
func (h *AdminHandler) UploadImage(w http.ResponseWriter, r *http.Request, shell *dashboard.Shell) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(imaging.MaxImageSize); err != nil {
		h.logger.Debug("Failed to parse upload", zap.Error(err))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, imaging.MessageSize)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	if err := shell.Form().UploadImage(r.Context(), imaging.FirstFile(r.MultipartForm, "image")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, shell.Form().Snapshot())
}

// RemoveImage drops the uploaded image from the draft
func (h *AdminHandler) RemoveImage(w http.ResponseWriter, r *http.Request, shell *dashboard.Shell) {
	if err := shell.Form().RemoveImage(); err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, shell.Form().Snapshot())
}

// Submit saves the draft and returns the refreshed dashboard
func (h *AdminHandler) Submit(w http.ResponseWriter, r *http.Request, shell *dashboard.Shell) {
	if err := shell.Form().Submit(r.Context()); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.render(w, shell)
}

// Cancel abandons the draft and returns to the list
func (h *AdminHandler) Cancel(w http.ResponseWriter, r *http.Request, shell *dashboard.Shell) {
	if err := shell.Cancel(); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.render(w, shell)
}
