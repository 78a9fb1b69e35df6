// Package redisstore provides a redis-backed job.Store so the in-memory
// registry can be swapped for a shared backend without touching the
// orchestration logic. It relies on the orchestrator's single-writer-per-job
// contract; multi-writer deployments would need WATCH-based transactions.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
	"github.com/fluxaudio/fluxaudio/internal/job"
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// NewFromClient is used by tests to share a client.
func NewFromClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func jobKey(id string) string    { return "job:" + id }
func ownerKey(uid string) string { return "jobs:owner:" + uid }

func (s *Store) Put(ctx context.Context, j *job.Job) error {
	now := time.Now()
	j.CreatedAt = now
	j.UpdatedAt = now
	if j.Metadata == nil {
		j.Metadata = make(map[string]any)
	}

	b, err := json.Marshal(j)
	if err != nil {
		return err
	}

	set, err := s.rdb.SetNX(ctx, jobKey(j.ID), b, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: redis set: %v", apperr.ErrUpstream, err)
	}
	if !set {
		return fmt.Errorf("%w: job %s already exists", apperr.ErrInvalidArgument, j.ID)
	}
	if err := s.rdb.SAdd(ctx, ownerKey(j.UserID), j.ID).Err(); err != nil {
		return fmt.Errorf("%w: redis sadd: %v", apperr.ErrUpstream, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*job.Job, error) {
	b, err := s.rdb.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: job %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: redis get: %v", apperr.ErrUpstream, err)
	}
	var j job.Job
	if err := json.Unmarshal(b, &j); err != nil {
		return nil, err
	}
	if j.Metadata == nil {
		j.Metadata = make(map[string]any)
	}
	return &j, nil
}

func (s *Store) ListByOwner(ctx context.Context, userID string) ([]*job.Job, error) {
	ids, err := s.rdb.SMembers(ctx, ownerKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis smembers: %v", apperr.ErrUpstream, err)
	}
	out := make([]*job.Job, 0, len(ids))
	for _, id := range ids {
		j, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.transition(ctx, id, job.StatusProcessing, "", nil)
}

func (s *Store) Complete(ctx context.Context, id string, outputPath string, meta map[string]any) error {
	return s.transition(ctx, id, job.StatusCompleted, outputPath, meta)
}

func (s *Store) Fail(ctx context.Context, id string, errMsg string) error {
	return s.transition(ctx, id, job.StatusFailed, "", map[string]any{job.MetaError: errMsg})
}

func (s *Store) transition(ctx context.Context, id string, next job.Status, outputPath string, meta map[string]any) error {
	j, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := job.CheckTransition(j.Status, next); err != nil {
		return err
	}

	j.Status = next
	if outputPath != "" {
		j.OutputAudioPath = outputPath
	}
	for k, v := range meta {
		j.Metadata[k] = v
	}
	j.UpdatedAt = time.Now()

	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, jobKey(id), b, 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", apperr.ErrUpstream, err)
	}
	return nil
}
