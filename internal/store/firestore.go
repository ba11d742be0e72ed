// internal/store/firestore.go
//
// Cloud Firestore implementation of Store.
// Responsibilities:
//   - Opening a Firestore client through the Firebase Admin SDK.
//   - `players` documents keyed by address, updated by field path.
//   - `scores` documents with auto ids, read back with ordered queries.

package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	playersCollection = "players"
	scoresCollection  = "scores"
)

// Firestore is a Store backed by Cloud Firestore: one `players` document per
// address (document id = address) and an auto-id `scores` collection.
type Firestore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Firebase app for projectID and opens its Firestore client.
// credentialsFile may be empty to use application default credentials.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %v", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firestore client: %v", err)
	}
	return &Firestore{client: client}, nil
}

func (f *Firestore) GetPlayerRecord(ctx context.Context, address string) (PlayerRecord, error) {
	ref := f.client.Collection(playersCollection).Doc(address)
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		r := NewPlayerRecord(address)
		if _, err := ref.Set(ctx, r); err != nil {
			return PlayerRecord{}, fmt.Errorf("create player: %w", err)
		}
		return r, nil
	}
	if err != nil {
		return PlayerRecord{}, fmt.Errorf("load player: %w", err)
	}

	var r PlayerRecord
	if err := snap.DataTo(&r); err != nil {
		return PlayerRecord{}, fmt.Errorf("decode player: %w", err)
	}
	return r, nil
}

func (f *Firestore) UpdatePlayerRecord(ctx context.Context, address string, u PlayerUpdate) error {
	ref := f.client.Collection(playersCollection).Doc(address)
	fs := u.fields()
	if len(fs) == 0 {
		_, err := ref.Get(ctx)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return err
	}

	updates := make([]firestore.Update, len(fs))
	for i, fl := range fs {
		updates[i] = firestore.Update{Path: fl.path, Value: fl.value}
	}
	// Update fails with NotFound when the document is missing.
	if _, err := ref.Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("update player: %w", err)
	}
	return nil
}

func (f *Firestore) AppendScoreEntry(ctx context.Context, e ScoreEntry) error {
	if _, _, err := f.client.Collection(scoresCollection).Add(ctx, e); err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (f *Firestore) QueryTopScores(ctx context.Context, n int) ([]ScoreEntry, error) {
	q := f.client.Collection(scoresCollection).
		OrderBy("score", firestore.Desc).
		OrderBy("difficulty", firestore.Desc).
		OrderBy("moves", firestore.Asc).
		Limit(limitOrDefault(n))
	return collect(ctx, q)
}

func (f *Firestore) QueryScoresByAddress(ctx context.Context, address string, n int) ([]ScoreEntry, error) {
	q := f.client.Collection(scoresCollection).
		Where("address", "==", address).
		OrderBy("score", firestore.Desc).
		Limit(limitOrDefault(n))
	return collect(ctx, q)
}

func collect(ctx context.Context, q firestore.Query) ([]ScoreEntry, error) {
	it := q.Documents(ctx)
	defer it.Stop()

	out := []ScoreEntry{}
	for {
		doc, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query scores: %w", err)
		}
		var e ScoreEntry
		if err := doc.DataTo(&e); err != nil {
			return nil, fmt.Errorf("decode score: %w", err)
		}
		e.ID = doc.Ref.ID
		out = append(out, e)
	}
	return out, nil
}

func (f *Firestore) Close(ctx context.Context) error { return f.client.Close() }
