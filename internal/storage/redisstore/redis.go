// Package redisstore provides a Redis-backed implementation of the storage.AccountStore interface.
//
// Each account is one hash. Creation and section updates run as Lua scripts
// so the existence check and the write happen in one server-side step.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/profilekeeper/internal/models"
	"github.com/mmynk/profilekeeper/internal/storage"
)

var _ storage.AccountStore = (*RedisStore)(nil)

const defaultKeyPrefix = "profilekeeper:account:"

const (
	fieldPrincipal = "principal"
	fieldCreatedAt = "created_at"
	fieldStats     = "stats"
)

var accountFields = []string{
	fieldPrincipal,
	fieldCreatedAt,
	string(models.SectionPersonal),
	string(models.SectionSocial),
	string(models.SectionJob),
	fieldStats,
}

// createScript writes the default account only if the key is absent and
// returns the stored fields in accountFields order.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	redis.call('HSET', KEYS[1],
		'principal', ARGV[1],
		'created_at', ARGV[2],
		'personal', ARGV[3],
		'social', ARGV[4],
		'job', ARGV[5],
		'stats', ARGV[6])
end
return redis.call('HMGET', KEYS[1], 'principal', 'created_at', 'personal', 'social', 'job', 'stats')
`)

// updateScript sets one section field if the account exists. Returns 1 on write, 0 otherwise.
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// RedisStore implements storage.AccountStore on a Redis server.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

// Options configures the connection made by New.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// New connects to the server described by opts and checks it answers.
func New(ctx context.Context, opts Options) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", opts.Addr, err)
	}
	return NewWithClient(client, opts.KeyPrefix), nil
}

// NewWithClient wraps an existing client. An empty prefix selects the default.
func NewWithClient(client redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, now: time.Now}
}

func (s *RedisStore) key(p models.Principal) string {
	return s.keyPrefix + p.String()
}

func (s *RedisStore) GetOrCreate(ctx context.Context, p models.Principal) (*models.UserAccount, error) {
	rec, err := storage.EncodeAccount(models.NewUserAccount(p, s.now()))
	if err != nil {
		return nil, err
	}

	values, err := createScript.Run(ctx, s.client, []string{s.key(p)},
		rec.Principal,
		rec.CreatedAt,
		rec.Personal,
		rec.Social,
		rec.Job,
		rec.Stats,
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return decodeFields(values)
}

func (s *RedisStore) GetComplete(ctx context.Context, p models.Principal) (*models.UserAccount, error) {
	values, err := s.client.HMGet(ctx, s.key(p), accountFields...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return decodeFields(values)
}

func (s *RedisStore) GetPersonal(ctx context.Context, p models.Principal) (models.PersonalInfo, error) {
	return getSection[models.PersonalInfo](ctx, s, p, models.SectionPersonal)
}

func (s *RedisStore) GetSocial(ctx context.Context, p models.Principal) (models.SocialLinks, error) {
	return getSection[models.SocialLinks](ctx, s, p, models.SectionSocial)
}

func (s *RedisStore) GetJob(ctx context.Context, p models.Principal) (models.JobPreferences, error) {
	return getSection[models.JobPreferences](ctx, s, p, models.SectionJob)
}

func (s *RedisStore) UpdatePersonal(ctx context.Context, p models.Principal, info models.PersonalInfo) error {
	return s.updateSection(ctx, p, models.SectionPersonal, info)
}

func (s *RedisStore) UpdateSocial(ctx context.Context, p models.Principal, links models.SocialLinks) error {
	return s.updateSection(ctx, p, models.SectionSocial, links)
}

func (s *RedisStore) UpdateJob(ctx context.Context, p models.Principal, prefs models.JobPreferences) error {
	return s.updateSection(ctx, p, models.SectionJob, prefs)
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) updateSection(ctx context.Context, p models.Principal, section models.Section, value any) error {
	doc, err := storage.EncodeSection(value)
	if err != nil {
		return err
	}

	written, err := updateScript.Run(ctx, s.client, []string{s.key(p)}, string(section), doc).Int()
	if err != nil {
		return fmt.Errorf("failed to update %s section: %w", section, err)
	}
	if written == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func getSection[T any](ctx context.Context, s *RedisStore, p models.Principal, section models.Section) (T, error) {
	var zero T
	doc, err := s.client.HGet(ctx, s.key(p), string(section)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, storage.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to get %s section: %w", section, err)
	}
	return storage.DecodeSection[T](doc)
}

// decodeFields turns an HMGET reply in accountFields order into an account.
func decodeFields(values []any) (*models.UserAccount, error) {
	if len(values) != len(accountFields) {
		return nil, fmt.Errorf("unexpected reply with %d fields", len(values))
	}
	if values[0] == nil {
		return nil, storage.ErrNotFound
	}

	strs := make([]string, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: unexpected type %T", accountFields[i], v)
		}
		strs[i] = s
	}

	createdAt, err := strconv.ParseInt(strs[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	rec := storage.Record{
		Principal: []byte(strs[0]),
		CreatedAt: createdAt,
		Personal:  []byte(strs[2]),
		Social:    []byte(strs[3]),
		Job:       []byte(strs[4]),
		Stats:     []byte(strs[5]),
	}
	return rec.Decode()
}
