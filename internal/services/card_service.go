package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AnshRaj112/vcard-backend/internal/apperr"
	"github.com/AnshRaj112/vcard-backend/internal/models"
	"github.com/AnshRaj112/vcard-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CardStore is the owner-scoped card record store.
type CardStore interface {
	Create(ctx context.Context, card *models.Card) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Card, error)
	FindOwned(ctx context.Context, id primitive.ObjectID, ownerID string) (*models.Card, error)
	FindVisibleAndCountView(ctx context.Context, id primitive.ObjectID, viewerID string) (*models.Card, error)
	UpdateOwned(ctx context.Context, id primitive.ObjectID, ownerID string, fields map[string]any, now time.Time) (*models.Card, error)
	DeleteOwned(ctx context.Context, id primitive.ObjectID, ownerID string) error
}

// CardImage is an uploaded profile image.
type CardImage struct {
	Filename string
	Data     []byte
}

const notOwnedMessage = "Card not found or not authorized"

// CardService authorizes every card operation against the caller's session.
// A nil session is an anonymous caller.
type CardService struct {
	cards   CardStore
	storage AssetStorage
	logger  *zap.Logger
	now     func() time.Time
}

func NewCardService(cards CardStore, storage AssetStorage, logger *zap.Logger) *CardService {
	return &CardService{cards: cards, storage: storage, logger: logger, now: time.Now}
}

// Create stores a card owned by the caller. Any owner supplied by the client
// is ignored.
func (s *CardService) Create(ctx context.Context, caller *Session, in models.CardInput, image *CardImage) (*models.Card, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("Please login to continue")
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	template := strings.TrimSpace(in.Template)
	if template == "" {
		template = models.DefaultTemplate
	}

	now := s.now().UTC()
	card := &models.Card{
		OwnerID:   caller.UserID,
		FullName:  in.FullName,
		JobTitle:  in.JobTitle,
		Company:   in.Company,
		Bio:       in.Bio,
		Email:     in.Email,
		Phone:     in.Phone,
		Website:   in.Website,
		Address:   in.Address,
		Instagram: in.Instagram,
		Facebook:  in.Facebook,
		Template:  template,
		IsPublic:  in.IsPublic,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if image != nil {
		ref, err := s.saveImage(ctx, image)
		if err != nil {
			return nil, err
		}
		card.ProfileImageURL = ref
	}

	if err := s.cards.Create(ctx, card); err != nil {
		return nil, err
	}
	s.logger.Info("card created", zap.String("card_id", card.ID.Hex()), zap.String("user_id", caller.UserID))
	return card, nil
}

// List returns the caller's cards, newest first.
func (s *CardService) List(ctx context.Context, caller *Session) ([]models.Card, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("Please login to continue")
	}
	return s.cards.ListByOwner(ctx, caller.UserID)
}

// Get returns a card for viewing and counts the view. Anonymous callers and
// non-owners only see public cards; a private card of someone else is
// reported as not found.
func (s *CardService) Get(ctx context.Context, caller *Session, id string) (*models.Card, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("Card not found")
	}

	viewerID := ""
	if caller != nil {
		viewerID = caller.UserID
	}
	return s.cards.FindVisibleAndCountView(ctx, oid, viewerID)
}

// GetForEdit returns one of the caller's cards without counting a view.
func (s *CardService) GetForEdit(ctx context.Context, caller *Session, id string) (*models.Card, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("Please login to continue")
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Forbidden(notOwnedMessage)
	}

	card, err := s.cards.FindOwned(ctx, oid, caller.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Forbidden(notOwnedMessage)
	}
	return card, err
}

// Update applies patch to a card owned by the caller. A card that does not
// exist and a card owned by someone else both yield ErrForbidden.
func (s *CardService) Update(ctx context.Context, caller *Session, id string, patch models.CardPatch, image *CardImage) (*models.Card, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("Please login to continue")
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Forbidden(notOwnedMessage)
	}
	if err := utils.ValidateStruct(patch); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	if image == nil && patch.IsEmpty() {
		return nil, apperr.Validation("Nothing to update")
	}
	fields := patch.Fields()
	if tpl, ok := fields["template"].(string); ok && strings.TrimSpace(tpl) == "" {
		fields["template"] = models.DefaultTemplate
	}

	// Only the owner may upload.
	if image != nil {
		if _, err := s.GetForEdit(ctx, caller, id); err != nil {
			return nil, err
		}
		ref, err := s.saveImage(ctx, image)
		if err != nil {
			return nil, err
		}
		fields["profile_image_url"] = ref
	}

	card, err := s.cards.UpdateOwned(ctx, oid, caller.UserID, fields, s.now().UTC())
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Forbidden(notOwnedMessage)
	}
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Delete permanently removes a card owned by the caller.
func (s *CardService) Delete(ctx context.Context, caller *Session, id string) error {
	if caller == nil {
		return apperr.Unauthenticated("Please login to continue")
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Forbidden(notOwnedMessage)
	}

	err = s.cards.DeleteOwned(ctx, oid, caller.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Forbidden(notOwnedMessage)
	}
	if err != nil {
		return err
	}
	s.logger.Info("card deleted", zap.String("card_id", id), zap.String("user_id", caller.UserID))
	return nil
}

func (s *CardService) saveImage(ctx context.Context, image *CardImage) (string, error) {
	if len(image.Data) == 0 {
		return "", apperr.Validation("Uploaded image is empty")
	}
	if s.storage == nil {
		return "", apperr.Dependency("Image uploads are not available", ErrStorageNotConfigured)
	}

	ref, err := s.storage.Save(ctx, image.Filename, image.Data)
	if err != nil {
		s.logger.Error("image upload failed", zap.String("filename", image.Filename), zap.Error(err))
		return "", apperr.Dependency("Failed to upload image", err)
	}
	return ref, nil
}
