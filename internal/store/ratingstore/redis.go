// Package ratingstore provides the shared Redis implementation of the
// rating persistence port.
package ratingstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "beautymatch/internal/common/errors"
	"beautymatch/internal/common/logger"
	"beautymatch/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rating:"

// RedisStore keeps one JSON rating record per stylist. CompareAndSwap uses
// WATCH/MULTI so concurrent writers of the same key serialize through
// optimistic locking instead of a shared lock.
type RedisStore struct {
	client *redis.Client
	logger logger.Logger
}

func NewRedisStore(client *redis.Client, log logger.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "rating-store"}),
	}
}

func ratingKey(stylistID string) string {
	return keyPrefix + stylistID
}

func (s *RedisStore) Load(ctx context.Context, stylistID string) (models.RatingRecord, bool, error) {
	raw, err := s.client.Get(ctx, ratingKey(stylistID)).Result()
	if errors.Is(err, redis.Nil) {
		return models.RatingRecord{}, false, nil
	}
	if err != nil {
		return models.RatingRecord{}, false, apperrors.NewQueryExecutionFailedError("rating load", err)
	}

	var rec models.RatingRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return models.RatingRecord{}, false, apperrors.NewQueryExecutionFailedError("rating decode", err)
	}
	return rec, true, nil
}

func (s *RedisStore) Init(ctx context.Context, stylistID string, rating int) (models.RatingRecord, error) {
	rec := models.RatingRecord{
		StylistID: stylistID,
		Rating:    rating,
		UpdatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return models.RatingRecord{}, apperrors.NewQueryExecutionFailedError("rating encode", err)
	}

	set, err := s.client.SetNX(ctx, ratingKey(stylistID), payload, 0).Result()
	if err != nil {
		return models.RatingRecord{}, apperrors.NewQueryExecutionFailedError("rating init", err)
	}
	if set {
		return rec, nil
	}

	// Lost the race: another initializer won, return its record.
	current, found, err := s.Load(ctx, stylistID)
	if err != nil {
		return models.RatingRecord{}, err
	}
	if !found {
		return models.RatingRecord{}, apperrors.NewQueryExecutionFailedError("rating init",
			errors.New("record vanished after losing SETNX race"))
	}
	return current, nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, stylistID string, expected, next int) (bool, error) {
	key := ratingKey(stylistID)
	swapped := false

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil // missing record reports false, not error
		}
		if err != nil {
			return err
		}

		var rec models.RatingRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return err
		}
		if rec.Rating != expected {
			return nil
		}

		rec.Rating = next
		rec.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			swapped = true
		}
		return err
	}

	err := s.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		// The watched key changed under us; the caller retries with a
		// fresh read.
		s.logger.Debug("rating swap lost optimistic lock", map[string]interface{}{
			"stylistId": stylistID,
		})
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewQueryExecutionFailedError("rating swap", err)
	}
	return swapped, nil
}
