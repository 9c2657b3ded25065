package override

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection is the Firestore collection holding article overrides.
const DefaultCollection = "klara_article_overrides"

// FirestoreConfig holds configuration for the Firestore override store.
type FirestoreConfig struct {
	ProjectID      string
	CollectionName string
}

// overrideDoc is the Firestore document shape. Decimals are stored as strings
// because Firestore cannot map decimal.Decimal's unexported fields.
type overrideDoc struct {
	CustomName        *string        `firestore:"customName"`
	CustomDescription *string        `firestore:"customDescription"`
	CustomPrice       *string        `firestore:"customPrice"`
	CustomImages      []string       `firestore:"customImages"`
	CustomData        *customDataDoc `firestore:"customData"`
	IsActive          *bool          `firestore:"isActive"`
	UpdatedAt         time.Time      `firestore:"updatedAt"`
}

type customDataDoc struct {
	GrapeVarieties     []string   `firestore:"grapeVarieties"`
	AromaNotes         []string   `firestore:"aromaNotes"`
	FoodPairing        []string   `firestore:"foodPairing"`
	ServingTemperature string     `firestore:"servingTemperature"`
	AlcoholContent     string     `firestore:"alcoholContent"`
	BarrelAging        string     `firestore:"barrelAging"`
	Sweetness          *int       `firestore:"sweetness"`
	Acidity            *int       `firestore:"acidity"`
	Tannin             *int       `firestore:"tannin"`
	Body               *int       `firestore:"body"`
	Fruitiness         *int       `firestore:"fruitiness"`
	NewItemUntil       *time.Time `firestore:"newItemUntil"`
	DiscountPercentage *string    `firestore:"discountPercentage"`
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func toDoc(ov *Override) overrideDoc {
	doc := overrideDoc{
		CustomName:        ov.CustomName,
		CustomDescription: ov.CustomDescription,
		CustomPrice:       decimalString(ov.CustomPrice),
		CustomImages:      ov.CustomImages,
		IsActive:          ov.IsActive,
		UpdatedAt:         ov.UpdatedAt,
	}
	if d := ov.CustomData; d != nil {
		doc.CustomData = &customDataDoc{
			GrapeVarieties:     d.GrapeVarieties,
			AromaNotes:         d.AromaNotes,
			FoodPairing:        d.FoodPairing,
			ServingTemperature: d.ServingTemperature,
			AlcoholContent:     d.AlcoholContent,
			BarrelAging:        d.BarrelAging,
			Sweetness:          d.Sweetness,
			Acidity:            d.Acidity,
			Tannin:             d.Tannin,
			Body:               d.Body,
			Fruitiness:         d.Fruitiness,
			NewItemUntil:       d.NewItemUntil,
			DiscountPercentage: decimalString(d.DiscountPercentage),
		}
	}
	return doc
}

func fromDoc(id string, doc overrideDoc) (*Override, error) {
	price, err := parseDecimal(doc.CustomPrice)
	if err != nil {
		return nil, fmt.Errorf("customPrice: %w", err)
	}
	ov := &Override{
		ArticleID:         id,
		CustomName:        doc.CustomName,
		CustomDescription: doc.CustomDescription,
		CustomPrice:       price,
		CustomImages:      doc.CustomImages,
		IsActive:          doc.IsActive,
		UpdatedAt:         doc.UpdatedAt,
	}
	if d := doc.CustomData; d != nil {
		discount, err := parseDecimal(d.DiscountPercentage)
		if err != nil {
			return nil, fmt.Errorf("discountPercentage: %w", err)
		}
		ov.CustomData = &CustomData{
			GrapeVarieties:     d.GrapeVarieties,
			AromaNotes:         d.AromaNotes,
			FoodPairing:        d.FoodPairing,
			ServingTemperature: d.ServingTemperature,
			AlcoholContent:     d.AlcoholContent,
			BarrelAging:        d.BarrelAging,
			Sweetness:          d.Sweetness,
			Acidity:            d.Acidity,
			Tannin:             d.Tannin,
			Body:               d.Body,
			Fruitiness:         d.Fruitiness,
			NewItemUntil:       d.NewItemUntil,
			DiscountPercentage: discount,
		}
	}
	return ov, nil
}

// FirestoreStore persists overrides in a Firestore collection, one document
// per KLARA article id.
type FirestoreStore struct {
	client         *firestore.Client
	collectionName string
	logger         zerolog.Logger
}

// NewFirestoreStore creates a FirestoreStore. The client's lifecycle is managed by the caller.
func NewFirestoreStore(
	cfg *FirestoreConfig,
	client *firestore.Client,
	logger zerolog.Logger,
) (*FirestoreStore, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}
	collection := cfg.CollectionName
	if collection == "" {
		collection = DefaultCollection
	}

	logger.Info().Str("project_id", cfg.ProjectID).Str("collection", collection).Msg("FirestoreStore initialized.")

	return &FirestoreStore{
		client:         client,
		collectionName: collection,
		logger:         logger.With().Str("component", "FirestoreStore").Logger(),
	}, nil
}

// Get retrieves the override document for id.
func (s *FirestoreStore) Get(ctx context.Context, id string) (*Override, error) {
	docSnap, err := s.client.Collection(s.collectionName).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		s.logger.Error().Err(err).Str("article_id", id).Msg("Failed to get override from Firestore.")
		return nil, fmt.Errorf("firestore get for %s: %w", id, err)
	}
	return s.decode(docSnap)
}

// GetMany fetches all requested documents in one round trip.
func (s *FirestoreStore) GetMany(ctx context.Context, ids []string) (map[string]*Override, error) {
	out := make(map[string]*Override, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, s.client.Collection(s.collectionName).Doc(id))
	}
	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		s.logger.Error().Err(err).Int("article_count", len(ids)).Msg("Failed to batch-get overrides from Firestore.")
		return nil, fmt.Errorf("firestore get all: %w", err)
	}
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		ov, err := s.decode(snap)
		if err != nil {
			// One bad document must not take the whole batch down. Its
			// visibility flag is kept when it can still be read.
			isActive, _ := snap.DataAt("isActive")
			ov = visibilityOnly(snap.Ref.ID, isActive)
			s.logger.Warn().Err(err).Str("article_id", snap.Ref.ID).Bool("visibility_kept", ov != nil).Msg("Skipping undecodable override document.")
			if ov == nil {
				continue
			}
		}
		out[ov.ArticleID] = ov
	}
	return out, nil
}

// visibilityOnly builds the override left over from a document that could
// not be decoded. It is nil unless the raw isActive field is a bool.
func visibilityOnly(id string, isActive any) *Override {
	active, ok := isActive.(bool)
	if !ok {
		return nil
	}
	return &Override{ArticleID: id, IsActive: &active}
}

func (s *FirestoreStore) decode(snap *firestore.DocumentSnapshot) (*Override, error) {
	var doc overrideDoc
	if err := snap.DataTo(&doc); err != nil {
		s.logger.Error().Err(err).Str("article_id", snap.Ref.ID).Msg("Failed to map Firestore document data.")
		return nil, fmt.Errorf("firestore DataTo for %s: %w", snap.Ref.ID, err)
	}
	ov, err := fromDoc(snap.Ref.ID, doc)
	if err != nil {
		return nil, fmt.Errorf("decode override %s: %w", snap.Ref.ID, err)
	}
	return ov, nil
}

// Save replaces the override document.
func (s *FirestoreStore) Save(ctx context.Context, ov *Override) error {
	if ov == nil || ov.ArticleID == "" {
		return fmt.Errorf("%w: articleId is required", ErrInvalidOverride)
	}
	_, err := s.client.Collection(s.collectionName).Doc(ov.ArticleID).Set(ctx, toDoc(ov))
	if err != nil {
		s.logger.Error().Err(err).Str("article_id", ov.ArticleID).Msg("Failed to write override to Firestore.")
		return fmt.Errorf("firestore set for %s: %w", ov.ArticleID, err)
	}
	s.logger.Debug().Str("article_id", ov.ArticleID).Msg("Successfully wrote override to Firestore.")
	return nil
}

// Delete removes the override document. Deleting a missing document succeeds.
func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.collectionName).Doc(id).Delete(ctx); err != nil {
		s.logger.Error().Err(err).Str("article_id", id).Msg("Failed to delete override from Firestore.")
		return fmt.Errorf("firestore delete for %s: %w", id, err)
	}
	return nil
}
