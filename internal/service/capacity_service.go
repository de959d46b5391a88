package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hospital-booking/internal/domain/entity"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrSlotFull is returned when every place of a slot is taken
var ErrSlotFull = errors.New("slot capacity is full")

// reserveSlotScript seeds the counter from the database count on first use,
// then takes one place unless that would exceed the capacity.
//
// KEYS[1] counter, ARGV[1] seed, ARGV[2] capacity, ARGV[3] ttl seconds
var reserveSlotScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[3])
	end
	local booked = redis.call('INCR', KEYS[1])
	if booked > tonumber(ARGV[2]) then
		redis.call('DECR', KEYS[1])
		return -1
	end
	return booked
`)

// releaseSlotScript gives one place back, never going below zero.
// A missing counter is left missing so the next reservation reseeds it.
var releaseSlotScript = redis.NewScript(`
	local current = redis.call('GET', KEYS[1])
	if not current then
		return 0
	end
	if tonumber(current) <= 0 then
		return 0
	end
	return redis.call('DECR', KEYS[1])
`)

const (
	RedisSlotKeyPrefix = "appointment:slot:"

	// Counters for past days get a short TTL so they disappear quickly
	pastSlotTTL = 1 * time.Minute
)

// SlotCapacityService keeps a per-slot booked counter in Redis so that
// concurrent appointment requests cannot overbook a slot.
//
// The counter is a cache of the database count: it is seeded from the
// database when missing and expires one day after the slot's date.
type SlotCapacityService struct {
	redisClient *redis.Client
	log         *logrus.Logger
	now         func() time.Time
}

func NewSlotCapacityService(redisClient *redis.Client, log *logrus.Logger) *SlotCapacityService {
	return &SlotCapacityService{
		redisClient: redisClient,
		log:         log,
		now:         time.Now,
	}
}

// Reserve atomically takes one place of the slot.
// bookedInDB is used to seed the counter when Redis has no value yet.
//
// Returns: the booked count including this reservation, or ErrSlotFull
func (s *SlotCapacityService) Reserve(ctx context.Context, slot entity.SlotKey, capacity int, bookedInDB int64, slotDate time.Time) (int, error) {
	key := SlotCounterKey(slot)
	ttl := s.calculateTTL(slotDate)

	result, err := reserveSlotScript.Run(ctx, s.redisClient, []string{key}, bookedInDB, capacity, int64(ttl/time.Second)).Int()
	if err != nil {
		s.log.Warnf("Failed Lua script ReserveSlot for %s: %+v", key, err)
		return 0, fmt.Errorf("lua reserve slot %s: %w", key, err)
	}

	if result == -1 {
		return 0, ErrSlotFull
	}

	s.log.Debugf("Reserved slot %s: booked=%d/%d", key, result, capacity)
	return result, nil
}

// Release gives back a place taken by Reserve.
//
// Called by: CancelAppointment, and CreateAppointment when the insert fails
func (s *SlotCapacityService) Release(ctx context.Context, slot entity.SlotKey) error {
	key := SlotCounterKey(slot)

	if err := releaseSlotScript.Run(ctx, s.redisClient, []string{key}).Err(); err != nil {
		s.log.Warnf("Failed to release slot %s: %+v", key, err)
		return fmt.Errorf("release slot %s: %w", key, err)
	}

	s.log.Debugf("Released slot %s", key)
	return nil
}

// Forget drops the counter so the next reservation reseeds it from the database.
func (s *SlotCapacityService) Forget(ctx context.Context, slot entity.SlotKey) error {
	key := SlotCounterKey(slot)
	if err := s.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete slot counter %s: %w", key, err)
	}
	return nil
}

// SlotCounterKey returns the Redis key of a slot counter
func SlotCounterKey(slot entity.SlotKey) string {
	return fmt.Sprintf("%s%s:%s:%s", RedisSlotKeyPrefix, slot.DoctorID, slot.Date, slot.StartTime)
}

// calculateTTL returns TTL: 24 hours after the slot date
func (s *SlotCapacityService) calculateTTL(slotDate time.Time) time.Duration {
	expireAt := slotDate.AddDate(0, 0, 1)
	ttl := expireAt.Sub(s.now())

	if ttl < time.Second {
		return pastSlotTTL
	}

	return ttl
}
