package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AnshRaj112/vcard-backend/internal/apperr"
	"github.com/AnshRaj112/vcard-backend/internal/database"
	"github.com/AnshRaj112/vcard-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CardRepository stores visiting cards. Every owner-scoped query filters on
// user_id so a card can only be matched by its owner.
type CardRepository struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewCardRepository(db *mongo.Database) *CardRepository {
	return &CardRepository{col: db.Collection(database.CardsCollection), timeout: defaultTimeout}
}

func (r *CardRepository) Create(ctx context.Context, card *models.Card) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if card.ID.IsZero() {
		card.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, card); err != nil {
		return apperr.Dependency("Failed to create card", err)
	}
	return nil
}

// ListByOwner returns the owner's cards, newest first.
func (r *CardRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"user_id": ownerID}, findOptions)
	if err != nil {
		return nil, apperr.Dependency("Failed to load cards", err)
	}
	defer cursor.Close(ctx)

	cards := make([]models.Card, 0)
	if err := cursor.All(ctx, &cards); err != nil {
		return nil, apperr.Dependency("Failed to load cards", err)
	}
	return cards, nil
}

// FindOwned returns the card only when ownerID owns it.
func (r *CardRepository) FindOwned(ctx context.Context, id primitive.ObjectID, ownerID string) (*models.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var card models.Card
	err := r.col.FindOne(ctx, bson.M{"_id": id, "user_id": ownerID}).Decode(&card)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Card not found")
		}
		return nil, apperr.Dependency("Failed to load card", err)
	}
	return &card, nil
}

// FindVisibleAndCountView atomically increments view_count on a card that is
// public or owned by viewerID and returns it with the new count. An empty
// viewerID only matches public cards.
func (r *CardRepository) FindVisibleAndCountView(ctx context.Context, id primitive.ObjectID, viewerID string) (*models.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	visibility := bson.A{bson.M{"is_public": true}}
	if viewerID != "" {
		visibility = append(visibility, bson.M{"user_id": viewerID})
	}
	filter := bson.M{"_id": id, "$or": visibility}
	update := bson.M{"$inc": bson.M{"view_count": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var card models.Card
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&card); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Card not found")
		}
		return nil, apperr.Dependency("Failed to load card", err)
	}
	return &card, nil
}

// UpdateOwned applies fields to a card scoped to {_id, user_id} and returns the
// updated document. A card that does not exist or belongs to someone else is
// reported the same way, as ErrNotFound.
func (r *CardRepository) UpdateOwned(ctx context.Context, id primitive.ObjectID, ownerID string, fields map[string]any, now time.Time) (*models.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	set := bson.M{"updated_at": now.UTC()}
	for k, v := range fields {
		set[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var card models.Card
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id, "user_id": ownerID}, bson.M{"$set": set}, opts).Decode(&card)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Card not found")
		}
		return nil, apperr.Dependency("Failed to update card", err)
	}
	return &card, nil
}

// DeleteOwned permanently removes a card scoped to {_id, user_id}.
func (r *CardRepository) DeleteOwned(ctx context.Context, id primitive.ObjectID, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "user_id": ownerID})
	if err != nil {
		return apperr.Dependency("Failed to delete card", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("Card not found")
	}
	return nil
}
