package models

import (
	"time"

	"github.com/AnshRaj112/vcard-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered identity. Email and username are unique across users.
type User struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username               string             `bson:"username" json:"username"`
	Email                  string             `bson:"email" json:"email"`
	PasswordHash           string             `bson:"password" json:"-"` // Don't return password in JSON
	IsActive               bool               `bson:"is_active" json:"is_active"`
	CreatedAt              time.Time          `bson:"created_at" json:"created_at"`
	LastVerificationSentAt time.Time          `bson:"last_verification_sent_at" json:"last_verification_sent_at"`
}

// DisplayName is the username, or the email local part when no username is set.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return utils.EmailLocalPart(u.Email)
}
