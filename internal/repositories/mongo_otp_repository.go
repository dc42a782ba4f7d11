package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shopauth/internal/models"
)

type otpDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	OTP       string             `bson:"otp"`
	Type      string             `bson:"type"`
	ExpiresAt time.Time          `bson:"expiresAt"`
	IsUsed    bool               `bson:"isUsed"`
	UsedAt    *time.Time         `bson:"usedAt,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d *otpDocument) toModel() *models.OTP {
	return &models.OTP{
		ID:        d.ID.Hex(),
		Email:     d.Email,
		Code:      d.OTP,
		Purpose:   models.OTPPurpose(d.Type),
		ExpiresAt: d.ExpiresAt,
		IsUsed:    d.IsUsed,
		UsedAt:    d.UsedAt,
		CreatedAt: d.CreatedAt,
	}
}

type mongoOTPRepository struct {
	coll *mongo.Collection
}

func NewMongoOTPRepository(coll *mongo.Collection) OTPRepository {
	return &mongoOTPRepository{coll: coll}
}

func (r *mongoOTPRepository) Create(ctx context.Context, otp *models.OTP) error {
	doc := otpDocument{
		ID:        primitive.NewObjectID(),
		Email:     otp.Email,
		OTP:       otp.Code,
		Type:      string(otp.Purpose),
		ExpiresAt: otp.ExpiresAt,
		CreatedAt: otp.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("otp insert: %w", err)
	}
	otp.ID = doc.ID.Hex()
	return nil
}

func validFilter(email, code string, purpose models.OTPPurpose, now time.Time) bson.M {
	return bson.M{
		"email":     email,
		"otp":       code,
		"type":      string(purpose),
		"isUsed":    false,
		"expiresAt": bson.M{"$gt": now},
	}
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

func (r *mongoOTPRepository) FindValid(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.OTP, error) {
	var doc otpDocument
	opts := options.FindOne().SetSort(newestFirst)
	if err := r.coll.FindOne(ctx, validFilter(email, code, purpose, now), opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("otp find: %w", err)
	}
	return doc.toModel(), nil
}

// ConsumeValid is a single findAndModify; the server applies it atomically per document.
func (r *mongoOTPRepository) ConsumeValid(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.OTP, error) {
	update := bson.M{"$set": bson.M{"isUsed": true, "usedAt": now}}
	opts := options.FindOneAndUpdate().
		SetSort(newestFirst).
		SetReturnDocument(options.After)

	var doc otpDocument
	err := r.coll.FindOneAndUpdate(ctx, validFilter(email, code, purpose, now), update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("otp consume: %w", err)
	}
	return doc.toModel(), nil
}
