package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// cartDocument is the stored shape of a cart. Prices are kept as strings so
// they survive the round trip without float conversion.
type cartDocument struct {
	SessionID string         `bson:"session_id"`
	Lines     []lineDocument `bson:"lines"`
	PromoCode string         `bson:"promo_code,omitempty"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type lineDocument struct {
	Key         string            `bson:"key"`
	ProductID   int64             `bson:"product_id"`
	VariationID *int64            `bson:"variation_id,omitempty"`
	Name        string            `bson:"name"`
	Image       string            `bson:"image"`
	Quantity    int               `bson:"quantity"`
	UnitPrice   string            `bson:"unit_price"`
	Attributes  map[string]string `bson:"attributes,omitempty"`
}

type MongoStore struct {
	collection *mongo.Collection
	ttl        time.Duration
}

func NewMongoStore(db *mongo.Database, ttl time.Duration) *MongoStore {
	return &MongoStore{
		collection: db.Collection("carts"),
		ttl:        ttl,
	}
}

func (m *MongoStore) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	cart := domain.NewCart(doc.SessionID)
	cart.PromoCode = doc.PromoCode
	cart.UpdatedAt = doc.UpdatedAt
	for _, l := range doc.Lines {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid unit price for line %s: %w", l.Key, err)
		}
		cart.Lines[l.Key] = domain.CartLine{
			Key:         l.Key,
			ProductID:   l.ProductID,
			VariationID: l.VariationID,
			Name:        l.Name,
			Image:       l.Image,
			Quantity:    l.Quantity,
			UnitPrice:   price,
			Attributes:  l.Attributes,
		}
	}
	return cart, nil
}

func (m *MongoStore) Save(ctx context.Context, cart *domain.Cart) error {
	doc := cartDocument{
		SessionID: cart.SessionID,
		Lines:     make([]lineDocument, 0, len(cart.Lines)),
		PromoCode: cart.PromoCode,
		UpdatedAt: time.Now().UTC(),
	}
	for _, l := range cart.Lines {
		doc.Lines = append(doc.Lines, lineDocument{
			Key:         l.Key,
			ProductID:   l.ProductID,
			VariationID: l.VariationID,
			Name:        l.Name,
			Image:       l.Image,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.String(),
			Attributes:  l.Attributes,
		})
	}

	filter := bson.M{"session_id": cart.SessionID}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"session_id": sessionID}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// CreateIndexes adds the unique session index and the TTL index that lets
// MongoDB expire abandoned carts.
func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(m.ttl.Seconds())),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}
