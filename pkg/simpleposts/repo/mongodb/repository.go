package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/tendant/simple-posts/pkg/simpleposts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Default collection names.
const (
	MediaCollection = "mediaresources"
	PostCollection  = "posts"
)

// Connect opens a client for uri and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// mediaIndexes lists the media collection indexes. Keys are unique across
// the whole collection since claims and deletes address records by key alone.
func mediaIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "subtype", Value: 1}, {Key: "typeId", Value: 1}}},
	}
}

// EnsureIndexes creates the unique key index and the owner lookup index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(MediaCollection).Indexes().CreateMany(ctx, mediaIndexes())
	if err != nil {
		return fmt.Errorf("failed to create media indexes: %w", err)
	}
	return nil
}

func handleMongoError(operation string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("duplicate entry in %s: %w", operation, err)
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// searchFilter matches the term literally and case-insensitively in the
// title or the short description.
func searchFilter(search string) bson.M {
	if search == "" {
		return bson.M{}
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"title": pattern},
		bson.M{"shortDescription": pattern},
	}}
}

func nonNil(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}

// MediaRepository implements simpleposts.MediaRepository on a MongoDB collection
type MediaRepository struct {
	coll *mongo.Collection
}

// NewMediaRepository creates a media repository on the default collection of db
func NewMediaRepository(db *mongo.Database) *MediaRepository {
	return &MediaRepository{coll: db.Collection(MediaCollection)}
}

func (r *MediaRepository) Create(ctx context.Context, media *simpleposts.MediaResource) error {
	if _, err := r.coll.InsertOne(ctx, toMediaDocument(media)); err != nil {
		return handleMongoError("create media", err)
	}
	return nil
}

func (r *MediaRepository) GetByID(ctx context.Context, id string) (*simpleposts.MediaResource, error) {
	return r.findOne(ctx, "get media", bson.M{"_id": id})
}

func (r *MediaRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return handleMongoError("delete media", err)
	}
	if res.DeletedCount == 0 {
		return simpleposts.ErrMediaNotFound
	}
	return nil
}

func (r *MediaRepository) FindOne(ctx context.Context, mediaType, subtype, key string) (*simpleposts.MediaResource, error) {
	return r.findOne(ctx, "find media", bson.M{"type": mediaType, "subtype": subtype, "key": key})
}

func (r *MediaRepository) FindByKeys(ctx context.Context, mediaType, subtype string, keys []string) ([]*simpleposts.MediaResource, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return r.find(ctx, "find media by keys", bson.M{
		"type":    mediaType,
		"subtype": subtype,
		"key":     bson.M{"$in": keys},
	})
}

func (r *MediaRepository) FindByTypeIDAndNotKeys(ctx context.Context, mediaType, subtype, typeID string, excludeKeys []string) ([]*simpleposts.MediaResource, error) {
	return r.find(ctx, "find superseded media", bson.M{
		"type":    mediaType,
		"subtype": subtype,
		"typeId":  typeID,
		"key":     bson.M{"$nin": nonNil(excludeKeys)},
	})
}

func (r *MediaRepository) FindByTypeIDs(ctx context.Context, mediaType string, typeIDs []string) ([]*simpleposts.MediaResource, error) {
	if len(typeIDs) == 0 {
		return nil, nil
	}
	return r.find(ctx, "find owned media", bson.M{
		"type":   mediaType,
		"typeId": bson.M{"$in": typeIDs},
	})
}

func (r *MediaRepository) UpdateTypeID(ctx context.Context, keys []string, typeID string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"key": bson.M{"$in": keys}},
		bson.M{
			"$set":         bson.M{"typeId": typeID},
			"$currentDate": bson.M{"updatedAt": true},
		})
	if err != nil {
		return handleMongoError("claim media", err)
	}
	return nil
}

func (r *MediaRepository) DeleteByKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := r.coll.DeleteMany(ctx, bson.M{"key": bson.M{"$in": keys}}); err != nil {
		return handleMongoError("delete media by keys", err)
	}
	return nil
}

func (r *MediaRepository) findOne(ctx context.Context, op string, filter bson.M) (*simpleposts.MediaResource, error) {
	var doc mediaDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, simpleposts.ErrMediaNotFound
		}
		return nil, handleMongoError(op, err)
	}
	return doc.toMedia(), nil
}

func (r *MediaRepository) find(ctx context.Context, op string, filter bson.M) ([]*simpleposts.MediaResource, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, handleMongoError(op, err)
	}
	var docs []mediaDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, handleMongoError(op, err)
	}

	result := make([]*simpleposts.MediaResource, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.toMedia())
	}
	return result, nil
}

// PostRepository implements simpleposts.PostRepository on a MongoDB collection
type PostRepository struct {
	coll *mongo.Collection
}

// NewPostRepository creates a post repository on the default collection of db
func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{coll: db.Collection(PostCollection)}
}

func (r *PostRepository) Insert(ctx context.Context, post *simpleposts.Post) error {
	if _, err := r.coll.InsertOne(ctx, toPostDocument(post)); err != nil {
		return handleMongoError("insert post", err)
	}
	return nil
}

func (r *PostRepository) Update(ctx context.Context, post *simpleposts.Post) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": post.ID}, toPostDocument(post))
	if err != nil {
		return handleMongoError("update post", err)
	}
	if res.MatchedCount == 0 {
		return simpleposts.ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*simpleposts.Post, error) {
	var doc postDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, simpleposts.ErrPostNotFound
		}
		return nil, handleMongoError("find post", err)
	}
	return doc.toPost()
}

func (r *PostRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return handleMongoError("delete post", err)
	}
	return nil
}

func (r *PostRepository) Count(ctx context.Context, filter simpleposts.PostFilter) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, searchFilter(filter.Search))
	if err != nil {
		return 0, handleMongoError("count posts", err)
	}
	return count, nil
}

func (r *PostRepository) List(ctx context.Context, filter simpleposts.PostFilter, skip, limit int64) ([]*simpleposts.Post, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, searchFilter(filter.Search), opts)
	if err != nil {
		return nil, handleMongoError("list posts", err)
	}
	var docs []postDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, handleMongoError("list posts", err)
	}

	posts := make([]*simpleposts.Post, 0, len(docs))
	for _, doc := range docs {
		post, err := doc.toPost()
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}
