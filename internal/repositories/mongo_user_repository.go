package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"shopauth/internal/models"
)

// userDocument keeps the field names of the original users collection.
type userDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Name          string             `bson:"name"`
	Email         string             `bson:"email"`
	Password      string             `bson:"password"` // hashed
	Role          string             `bson:"role"`
	IsActive      bool               `bson:"isActive"`
	EmailVerified bool               `bson:"emailVerified"`
	LastLogin     *time.Time         `bson:"lastLogin,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toModel() *models.User {
	return &models.User{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		Email:         d.Email,
		PasswordHash:  d.Password,
		Role:          models.Role(d.Role),
		IsActive:      d.IsActive,
		EmailVerified: d.EmailVerified,
		LastLogin:     d.LastLogin,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type mongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(coll *mongo.Collection) UserRepository {
	return &mongoUserRepository{coll: coll}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) error {
	doc := userDocument{
		ID:            primitive.NewObjectID(),
		Name:          user.Name,
		Email:         user.Email,
		Password:      user.PasswordHash,
		Role:          string(user.Role),
		IsActive:      user.IsActive,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("user insert: %w", err)
	}
	user.ID = doc.ID.Hex()
	return nil
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user find: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepository) updateOne(ctx context.Context, id string, extra bson.M, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	filter := bson.M{"_id": oid}
	for k, v := range extra {
		filter[k] = v
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("user update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.updateOne(ctx, id, bson.M{"isActive": true}, bson.M{"lastLogin": at, "updatedAt": at})
}

func (r *mongoUserRepository) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	return r.updateOne(ctx, id, nil, bson.M{"password": hash, "updatedAt": at})
}

func (r *mongoUserRepository) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	return r.updateOne(ctx, id, nil, bson.M{"emailVerified": true, "updatedAt": at})
}

func (r *mongoUserRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	return r.updateOne(ctx, id, nil, bson.M{"isActive": active, "updatedAt": at})
}
