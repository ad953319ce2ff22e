package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultTemplate = "template1"

// Card is a visiting card owned by exactly one user.
type Card struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID string             `bson:"user_id" json:"user_id"`

	FullName  string `bson:"full_name" json:"full_name"`
	JobTitle  string `bson:"job_title" json:"job_title"`
	Company   string `bson:"company" json:"company"`
	Bio       string `bson:"bio" json:"bio"`
	Email     string `bson:"email" json:"email"`
	Phone     string `bson:"phone" json:"phone"`
	Website   string `bson:"website" json:"website"`
	Address   string `bson:"address" json:"address"`
	Instagram string `bson:"instagram" json:"instagram"`
	Facebook  string `bson:"facebook" json:"facebook"`
	Template  string `bson:"template" json:"template"`

	ProfileImageURL string `bson:"profile_image_url" json:"profile_image_url"`
	IsPublic        bool   `bson:"is_public" json:"is_public"`
	ViewCount       int64  `bson:"view_count" json:"view_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// CardInput holds the client-supplied fields for a new card.
type CardInput struct {
	FullName  string `json:"full_name" validate:"max=200"`
	JobTitle  string `json:"job_title" validate:"max=200"`
	Company   string `json:"company" validate:"max=200"`
	Bio       string `json:"bio" validate:"max=2000"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"max=50"`
	Website   string `json:"website" validate:"max=500"`
	Address   string `json:"address" validate:"max=500"`
	Instagram string `json:"instagram" validate:"max=200"`
	Facebook  string `json:"facebook" validate:"max=200"`
	Template  string `json:"template" validate:"max=50"`
	IsPublic  bool   `json:"is_public"`
}

// CardPatch is a partial update. Nil fields are left untouched. The profile
// image is not patchable; it is set only from an uploaded file.
type CardPatch struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
	JobTitle  *string `json:"job_title,omitempty" validate:"omitempty,max=200"`
	Company   *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Website   *string `json:"website,omitempty" validate:"omitempty,max=500"`
	Address   *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Instagram *string `json:"instagram,omitempty" validate:"omitempty,max=200"`
	Facebook  *string `json:"facebook,omitempty" validate:"omitempty,max=200"`
	Template  *string `json:"template,omitempty" validate:"omitempty,max=50"`
	IsPublic  *bool   `json:"is_public,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p CardPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields returns the set fields keyed by their stored names.
func (p CardPatch) Fields() map[string]any {
	out := make(map[string]any)
	putString := func(key string, v *string) {
		if v != nil {
			out[key] = *v
		}
	}
	putString("full_name", p.FullName)
	putString("job_title", p.JobTitle)
	putString("company", p.Company)
	putString("bio", p.Bio)
	putString("email", p.Email)
	putString("phone", p.Phone)
	putString("website", p.Website)
	putString("address", p.Address)
	putString("instagram", p.Instagram)
	putString("facebook", p.Facebook)
	putString("template", p.Template)
	if p.IsPublic != nil {
		out["is_public"] = *p.IsPublic
	}
	return out
}
