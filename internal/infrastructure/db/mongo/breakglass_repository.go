package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

const breakGlassCollection = "break_glass_grants"

type BreakGlassRepository struct {
	coll *mongo.Collection
}

func NewBreakGlassRepository(db *mongo.Database) *BreakGlassRepository {
	return &BreakGlassRepository{coll: db.Collection(breakGlassCollection)}
}

type mongoGrant struct {
	ID          string `bson:"_id"`
	TokenDigest string `bson:"token_digest"`
	UserID      string `bson:"user_id"`
	ApproverID  string `bson:"approver_id"`
	Reason      string `bson:"reason"`
	CreatedAt   int64  `bson:"created_at"`
	ExpiresAt   int64  `bson:"expires_at"`
	ConsumedAt  int64  `bson:"consumed_at,omitempty"`
}

func (r *BreakGlassRepository) Create(ctx context.Context, grant *domain.BreakGlassGrant) (*domain.BreakGlassGrant, error) {
	doc := mongoGrant{
		ID:          grant.ID,
		TokenDigest: grant.Token,
		UserID:      grant.UserID,
		ApproverID:  grant.ApproverID,
		Reason:      grant.Reason,
		CreatedAt:   grant.CreatedAt.Unix(),
		ExpiresAt:   grant.ExpiresAt.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("insert break-glass grant: %w", err)
	}
	return grant, nil
}

// Consume marks the grant consumed with a single FindOneAndUpdate, so
// exactly one caller can ever win a given token. The filter includes the
// caller's user ID: a grant issued to someone else does not match, is not
// burned, and surfaces as not-found.
func (r *BreakGlassRepository) Consume(ctx context.Context, tokenDigest, userID string) (*domain.BreakGlassGrant, error) {
	now := time.Now().UTC()

	var mg mongoGrant
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{
			"token_digest": tokenDigest,
			"user_id":      userID,
			"consumed_at":  bson.M{"$in": bson.A{nil, int64(0)}},
			"expires_at":   bson.M{"$gt": now.Unix()},
		},
		bson.M{"$set": bson.M{"consumed_at": now.Unix()}},
	).Decode(&mg)
	if err == nil {
		mg.ConsumedAt = now.Unix()
		return mg.toDomain(), nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("consume break-glass grant: %w", err)
	}

	// No usable grant matched; report why. A grant belonging to another
	// user is indistinguishable from a missing one.
	var existing mongoGrant
	ferr := r.coll.FindOne(ctx, bson.M{"token_digest": tokenDigest}).Decode(&existing)
	switch {
	case ferr == mongo.ErrNoDocuments:
		return nil, domain.ErrGrantNotFound
	case ferr != nil:
		return nil, fmt.Errorf("inspect break-glass grant: %w", ferr)
	case existing.UserID != userID:
		return nil, domain.ErrGrantNotFound
	case existing.ConsumedAt != 0:
		return nil, domain.ErrGrantConsumed
	default:
		return nil, domain.ErrGrantExpired
	}
}

func (mg mongoGrant) toDomain() *domain.BreakGlassGrant {
	return &domain.BreakGlassGrant{
		ID:         mg.ID,
		Token:      mg.TokenDigest,
		UserID:     mg.UserID,
		ApproverID: mg.ApproverID,
		Reason:     mg.Reason,
		CreatedAt:  unixToTime(mg.CreatedAt),
		ExpiresAt:  unixToTime(mg.ExpiresAt),
		ConsumedAt: unixToTime(mg.ConsumedAt),
	}
}
