package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

const apiKeysCollection = "api_keys"

type APIKeyRepository struct {
	coll *mongo.Collection
}

func NewAPIKeyRepository(db *mongo.Database) *APIKeyRepository {
	return &APIKeyRepository{coll: db.Collection(apiKeysCollection)}
}

type mongoAPIKey struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	UserID         string             `bson:"user_id"`
	OrganizationID string             `bson:"organization_id,omitempty"`
	Role           string             `bson:"role"`
	Name           string             `bson:"name"`
	Prefix         string             `bson:"prefix"`
	Digest         string             `bson:"digest"`
	CreatedAt      int64              `bson:"created_at"`
	RevokedAt      int64              `bson:"revoked_at,omitempty"`
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) (*domain.APIKey, error) {
	doc := mongoAPIKey{
		UserID:         key.UserID,
		OrganizationID: key.OrganizationID,
		Role:           string(key.Role),
		Name:           key.Name,
		Prefix:         key.Prefix,
		Digest:         key.Digest,
		CreatedAt:      key.CreatedAt.Unix(),
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("insert api key: %w", err)
	}
	created := *key
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *APIKeyRepository) FindByDigest(ctx context.Context, digest string) (*domain.APIKey, error) {
	var mk mongoAPIKey
	if err := r.coll.FindOne(ctx, bson.M{"digest": digest}).Decode(&mk); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("find api key by digest: %w", err)
	}
	return mk.toDomain(), nil
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id string) (*domain.APIKey, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAPIKeyNotFound
	}
	var mk mongoAPIKey
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&mk); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("find api key: %w", err)
	}
	return mk.toDomain(), nil
}

func (r *APIKeyRepository) ListByUser(ctx context.Context, userID string) ([]domain.APIKey, error) {
	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer cur.Close(ctx)

	var keys []domain.APIKey
	for cur.Next(ctx) {
		var mk mongoAPIKey
		if err := cur.Decode(&mk); err != nil {
			return nil, fmt.Errorf("decode api key: %w", err)
		}
		keys = append(keys, *mk.toDomain())
	}
	return keys, cur.Err()
}

// Revoke sets revoked_at only when the key is not yet revoked, so two
// concurrent revocations cannot both succeed.
func (r *APIKeyRepository) Revoke(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAPIKeyNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "revoked_at": bson.M{"$in": bson.A{nil, int64(0)}}},
		bson.M{"$set": bson.M{"revoked_at": nowUnix()}},
	)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if res.MatchedCount == 0 {
		// Either missing or already revoked; disambiguate for the caller.
		if _, ferr := r.FindByID(ctx, id); ferr != nil {
			return ferr
		}
		return domain.ErrAPIKeyRevoked
	}
	return nil
}

func (mk mongoAPIKey) toDomain() *domain.APIKey {
	return &domain.APIKey{
		ID:             mk.ID.Hex(),
		UserID:         mk.UserID,
		OrganizationID: mk.OrganizationID,
		Role:           domain.Role(mk.Role),
		Name:           mk.Name,
		Prefix:         mk.Prefix,
		Digest:         mk.Digest,
		CreatedAt:      unixToTime(mk.CreatedAt),
		RevokedAt:      unixToTime(mk.RevokedAt),
	}
}
