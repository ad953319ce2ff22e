package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AnshRaj112/vcard-backend/internal/apperr"
	"github.com/AnshRaj112/vcard-backend/internal/database"
	"github.com/AnshRaj112/vcard-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const defaultTimeout = 5 * time.Second

// UserRepository is the credential store backed by the users collection.
// Uniqueness of email and username is enforced by unique indexes, not by
// read-then-write checks.
type UserRepository struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(database.UsersCollection), timeout: defaultTimeout}
}

// Create inserts a new user and assigns its ID.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	if _, err := r.col.InsertOne(ctx, user); err != nil {
		user.ID = primitive.NilObjectID
		if dup := classifyDuplicate(err); dup != nil {
			return dup
		}
		return apperr.Dependency("Failed to create user", err)
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// SetActive marks the user with the given email as verified.
func (r *UserRepository) SetActive(ctx context.Context, email string) error {
	return r.updateByEmail(ctx, email, bson.M{"$set": bson.M{"is_active": true}})
}

// TouchVerificationSentAt records when a verification email was last dispatched.
func (r *UserRepository) TouchVerificationSentAt(ctx context.Context, email string, at time.Time) error {
	return r.updateByEmail(ctx, email, bson.M{"$set": bson.M{"last_verification_sent_at": at.UTC()}})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var user models.User
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Dependency("Failed to load user", err)
	}
	return &user, nil
}

func (r *UserRepository) updateByEmail(ctx context.Context, email string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"email": email}, update)
	if err != nil {
		return apperr.Dependency("Failed to update user", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// classifyDuplicate maps a duplicate key write error to the violated constraint.
func classifyDuplicate(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}

	msg := err.Error()
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				msg = e.Message
				break
			}
		}
	}

	// Match the index clause only; the dup key value is user input.
	switch {
	case strings.Contains(msg, "index: "+database.UniqueUsernameIndex+" "):
		return apperr.DuplicateUsername()
	case strings.Contains(msg, "index: "+database.UniqueEmailIndex+" "):
		return apperr.DuplicateEmail()
	case strings.Contains(msg, "dup key: { username:"):
		return apperr.DuplicateUsername()
	default:
		return apperr.DuplicateEmail()
	}
}
