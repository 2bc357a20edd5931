package scanning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

const textBucketName = "texts"

// cachedText is the stored form of a recognized Text
type cachedText struct {
	Content    string    `json:"content"`
	Pages      int       `json:"pages"`
	Method     string    `json:"method"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// Cache implements the Recognizer interface by remembering the text another
// Recognizer produced, keyed by engine and the SHA-256 of the input. Only
// recognized text is stored, never extracted records.
type Cache struct {
	db   *bbolt.DB
	next Recognizer
}

// OpenCache opens (or creates) the cache database at path in front of next
func OpenCache(path string, next Recognizer) (*Cache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(textBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Cache{db: db, next: next}, nil
}

// Name returns the name of the wrapped engine
func (c *Cache) Name() string {
	return c.next.Name()
}

// Recognize returns the cached text for data, or recognizes it with the
// wrapped engine and stores the result.
func (c *Cache) Recognize(ctx context.Context, data []byte, contentType string) (Text, error) {
	key := c.key(data)

	cached, ok, err := c.get(key)
	if err != nil {
		slog.Warn("Reading OCR cache failed", "error", err)
	}
	if ok {
		slog.Debug("OCR cache hit", "key", key)
		return Text{
			Content:    cached.Content,
			Pages:      cached.Pages,
			Method:     MethodCache,
			Confidence: cached.Confidence,
		}, nil
	}

	text, err := c.next.Recognize(ctx, data, contentType)
	if err != nil {
		return Text{}, err
	}

	if err := c.put(key, text); err != nil {
		slog.Warn("Writing OCR cache failed", "error", err)
	}
	return text, nil
}

func (c *Cache) key(data []byte) string {
	sum := sha256.Sum256(data)
	return c.next.Name() + ":" + hex.EncodeToString(sum[:])
}

func (c *Cache) get(key string) (cachedText, bool, error) {
	var (
		cached cachedText
		found  bool
	)
	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(textBucketName))
		data := bucket.Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &cached)
	})
	if err != nil {
		return cachedText{}, false, fmt.Errorf("reading %s: %w", key, err)
	}
	return cached, found, nil
}

func (c *Cache) put(key string, text Text) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(textBucketName))
		data, err := json.Marshal(cachedText{
			Content:    text.Content,
			Pages:      text.Pages,
			Method:     text.Method,
			Confidence: text.Confidence,
			CreatedAt:  time.Now(),
		})
		if err != nil {
			return fmt.Errorf("marshaling text: %w", err)
		}
		return bucket.Put([]byte(key), data)
	})
}

// Len returns the number of cached texts
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(textBucketName)).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the cache database and the wrapped engine
func (c *Cache) Close() error {
	dbErr := c.db.Close()
	if err := c.next.Close(); err != nil {
		return err
	}
	return dbErr
}
