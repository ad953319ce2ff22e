package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/AnshRaj112/vcard-backend/internal/apperr"
	"github.com/AnshRaj112/vcard-backend/internal/middleware"
	"github.com/AnshRaj112/vcard-backend/internal/models"
	"github.com/AnshRaj112/vcard-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxMultipartMemory = 10 << 20 // 10MB
	maxImageSize       = 5 << 20
	profileImageField  = "profile_image"
)

// CardAPI is the access-guarded card surface used by CardHandler.
type CardAPI interface {
	Create(ctx context.Context, caller *services.Session, in models.CardInput, image *services.CardImage) (*models.Card, error)
	List(ctx context.Context, caller *services.Session) ([]models.Card, error)
	Get(ctx context.Context, caller *services.Session, id string) (*models.Card, error)
	GetForEdit(ctx context.Context, caller *services.Session, id string) (*models.Card, error)
	Update(ctx context.Context, caller *services.Session, id string, patch models.CardPatch, image *services.CardImage) (*models.Card, error)
	Delete(ctx context.Context, caller *services.Session, id string) error
}

type CardResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Card    *models.Card `json:"card,omitempty"`
}

type CardsResponse struct {
	Success bool          `json:"success"`
	Cards   []models.Card `json:"cards"`
	Count   int           `json:"count"`
}

type CardHandler struct {
	cards  CardAPI
	logger *zap.Logger
}

func NewCardHandler(cards CardAPI, logger *zap.Logger) *CardHandler {
	return &CardHandler{cards: cards, logger: logger}
}

// ListCards returns the caller's cards, newest first.
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.List(r.Context(), middleware.SessionFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CardsResponse{Success: true, Cards: cards, Count: len(cards)})
}

// CreateCard accepts a JSON body or a multipart form with an optional
// profile_image file.
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var (
		in    models.CardInput
		image *services.CardImage
	)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, h.logger, r, apperr.Validation("Failed to parse form"))
			return
		}
		in = cardInputFromForm(r)
		var err error
		if image, err = readProfileImage(r); err != nil {
			writeError(w, h.logger, r, err)
			return
		}
	} else if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	card, err := h.cards.Create(r.Context(), middleware.SessionFromContext(r.Context()), in, image)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CardResponse{Success: true, Message: "Card created.", Card: card})
}

// GetCard works with or without a session and counts the view.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.Get(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CardResponse{Success: true, Card: card})
}

// GetCardForEdit returns one of the caller's cards without counting a view.
func (h *CardHandler) GetCardForEdit(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.GetForEdit(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CardResponse{Success: true, Card: card})
}

// UpdateCard applies a partial update from JSON or a multipart form.
func (h *CardHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var (
		patch models.CardPatch
		image *services.CardImage
	)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, h.logger, r, apperr.Validation("Failed to parse form"))
			return
		}
		patch = cardPatchFromForm(r)
		var err error
		if image, err = readProfileImage(r); err != nil {
			writeError(w, h.logger, r, err)
			return
		}
	} else if err := decodeJSON(r, &patch); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	card, err := h.cards.Update(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "id"), patch, image)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CardResponse{Success: true, Message: "Card updated.", Card: card})
}

func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.cards.Delete(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Card deleted."})
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func cardInputFromForm(r *http.Request) models.CardInput {
	return models.CardInput{
		FullName:  r.FormValue("full_name"),
		JobTitle:  r.FormValue("job_title"),
		Company:   r.FormValue("company"),
		Bio:       r.FormValue("bio"),
		Email:     r.FormValue("email"),
		Phone:     r.FormValue("phone"),
		Website:   r.FormValue("website"),
		Address:   r.FormValue("address"),
		Instagram: r.FormValue("instagram"),
		Facebook:  r.FormValue("facebook"),
		Template:  r.FormValue("template"),
		IsPublic:  formBool(r.FormValue("is_public")),
	}
}

// cardPatchFromForm sets only the fields present in the form.
func cardPatchFromForm(r *http.Request) models.CardPatch {
	values := r.MultipartForm.Value
	field := func(key string) *string {
		if v, ok := values[key]; ok && len(v) > 0 {
			s := v[0]
			return &s
		}
		return nil
	}

	patch := models.CardPatch{
		FullName:  field("full_name"),
		JobTitle:  field("job_title"),
		Company:   field("company"),
		Bio:       field("bio"),
		Email:     field("email"),
		Phone:     field("phone"),
		Website:   field("website"),
		Address:   field("address"),
		Instagram: field("instagram"),
		Facebook:  field("facebook"),
		Template:  field("template"),
	}
	if v := field("is_public"); v != nil {
		public := formBool(*v)
		patch.IsPublic = &public
	}
	return patch
}

// formBool accepts the checkbox spellings browsers and clients send.
func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1":
		return true
	}
	return false
}

func readProfileImage(r *http.Request) (*services.CardImage, error) {
	file, header, err := r.FormFile(profileImageField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation("Invalid profile image")
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return nil, apperr.Validation("Invalid profile image")
	}
	if len(data) > maxImageSize {
		return nil, apperr.Validation("Profile image must be at most 5MB")
	}
	return &services.CardImage{Filename: header.Filename, Data: data}, nil
}
