package state

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
)

// DefaultBoltTimeout bounds waiting for the database file lock.
const DefaultBoltTimeout = 5 * time.Second

var (
	bucketSecurity = []byte("security")
	keyState       = []byte("state")
)

// BoltRepository persists the state in a bbolt database.
type BoltRepository struct {
	db *bolt.DB
}

// NewBoltRepository opens or creates the database at path.
func NewBoltRepository(path string) (*BoltRepository, error) {
	db, err := bolt.Open(path, DefaultFilePermissions, &bolt.Options{Timeout: DefaultBoltTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSecurity)

		return err
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltRepository{db: db}, nil
}

// Load reads the state from the database.
func (r *BoltRepository) Load(_ context.Context) (*security.State, error) {
	var data []byte

	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSecurity)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSecurity)
		}

		// The value is only valid inside the transaction.
		if value := b.Get(keyState); value != nil {
			data = append([]byte(nil), value...)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	if data == nil {
		return nil, ErrNotFound
	}

	return decode(data)
}

// Save writes the state to the database.
func (r *BoltRepository) Save(_ context.Context, state *security.State) error {
	data, err := encode(state)
	if err != nil {
		return err
	}

	err = r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSecurity)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSecurity)
		}

		return b.Put(keyState, data)
	})
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}

	return nil
}

// Close closes the database.
func (r *BoltRepository) Close() error {
	return r.db.Close()
}
