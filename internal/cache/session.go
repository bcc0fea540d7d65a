// Package cache implements the Login Session Cache: an encrypted,
// self-describing bearer-token facility backed by a short-TTL
// in-memory memoization layer. The cache is a performance artifact
// only — it is never the authority on session validity, which remains
// the job of the authorization layer sitting above SessionRecord.Status.
package cache

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jrschumacher/rpkica/internal/crypto"
	"github.com/jrschumacher/rpkica/internal/logger"
)

// DefaultTTLSeconds is the cache-residency TTL used when none is
// configured. It is unrelated to session lifetime.
const DefaultTTLSeconds = 30

const tagSize = crypto.TagSize

// SessionStatus is the ternary classification of a session's age
// against its declared lifetime.
type SessionStatus int

const (
	StatusActive SessionStatus = iota
	StatusNeedsRefresh
	StatusExpired
)

func (s SessionStatus) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusNeedsRefresh:
		return "NeedsRefresh"
	case StatusExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// SessionRecord is the immutable in-memory description of one
// authenticated principal embedded in a token. Records are never
// mutated in place: encode constructs one, the cache clones it on
// insert, and decode clones it back out.
type SessionRecord struct {
	StartTime  int64             `json:"start_time"`
	ExpiresIn  *int64            `json:"expires_in,omitempty"`
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes"`
	Secrets    []string          `json:"secrets"`
}

// Clone returns a deep copy of the record.
func (s SessionRecord) Clone() SessionRecord {
	out := SessionRecord{
		StartTime: s.StartTime,
		ID:        s.ID,
	}
	if s.ExpiresIn != nil {
		v := *s.ExpiresIn
		out.ExpiresIn = &v
	}
	out.Attributes = make(map[string]string, len(s.Attributes))
	for k, v := range s.Attributes {
		out.Attributes[k] = v
	}
	out.Secrets = append([]string(nil), s.Secrets...)
	return out
}

// Status classifies the record against the current wall-clock time.
// With no lifetime set, status is always Active. The tie-break at the
// halfway point uses integer division, preserved from the original
// implementation: for a one-second lifetime, NeedsRefresh is
// unreachable (ageSecs > 0 already implies Expired at maxAge=1).
func (s SessionRecord) Status(now Clock) SessionStatus {
	if s.ExpiresIn == nil {
		return StatusActive
	}
	nowSecs, err := now.NowUnix()
	if err != nil {
		logger.Warn("session status check: unable to determine current time", "error", err)
		return StatusActive
	}
	maxAge := *s.ExpiresIn
	curAge := nowSecs - s.StartTime

	var status SessionStatus
	switch {
	case curAge >= maxAge:
		status = StatusExpired
	case curAge > maxAge/2:
		status = StatusNeedsRefresh
	default:
		status = StatusActive
	}

	logger.Trace("session status check", "id", s.ID, "status", status.String(), "max_age_secs", maxAge, "cur_age_secs", curAge)
	return status
}

// Clock abstracts wall-clock access so encode/sweep can fail the way
// they must when the wall clock is unavailable, and so tests can
// advance time deterministically.
type Clock interface {
	NowUnix() (int64, error)
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) NowUnix() (int64, error) {
	return time.Now().Unix(), nil
}

// cachedEntry pairs a SessionRecord with the absolute timestamp after
// which it becomes eligible for sweeping.
type cachedEntry struct {
	evictAfter int64
	record     SessionRecord
}

// ErrInvalidCredentials is returned by Decode for every failure on the
// decode path — base64, length, cipher, or deserialization. Only the
// structural faults visible in the token itself (malformed base64, too
// short) get their own reason; a cipher failure and a deserialization
// failure share one reason, so the error is no decryption oracle.
type ErrInvalidCredentials struct {
	reason string
}

func (e *ErrInvalidCredentials) Error() string {
	return fmt.Sprintf("invalid credentials: %s", e.reason)
}

func invalidCredentials(reason string) error {
	return &ErrInvalidCredentials{reason: reason}
}

// SessionCache is the token<->record translator described in the
// spec's §4.1. It is protected by a single readers-writer lock; decode
// fast-paths (cache hit) look the entry up under a read lock and then
// re-store it under the write lock to extend its residency, and
// cache_session/remove/sweep take a write lock. No I/O, cryptography, or allocation-heavy
// work happens under the write lock besides the map insertion itself.
type SessionCache struct {
	mu         sync.RWMutex
	entries    map[string]cachedEntry
	cipher     crypto.Cipher
	clock      Clock
	ttlSeconds int64
}

// Option configures a SessionCache at construction time.
type Option func(*SessionCache)

// WithCipher overrides the AEAD adapter. Default: crypto.ChaCha20Poly1305Cipher.
func WithCipher(c crypto.Cipher) Option {
	return func(sc *SessionCache) { sc.cipher = c }
}

// WithClock overrides the wall clock. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(sc *SessionCache) { sc.clock = c }
}

// WithTTLSeconds overrides the cache residency TTL. Default: DefaultTTLSeconds.
func WithTTLSeconds(ttl int64) Option {
	return func(sc *SessionCache) { sc.ttlSeconds = ttl }
}

// NewSessionCache constructs a cache ready for use.
func NewSessionCache(opts ...Option) *SessionCache {
	sc := &SessionCache{
		entries:    make(map[string]cachedEntry),
		cipher:     crypto.ChaCha20Poly1305Cipher{},
		clock:      SystemClock{},
		ttlSeconds: DefaultTTLSeconds,
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// lookup acquires a read lock and returns a clone of the cached
// record, if any. A panic surfacing from within the critical section
// (Go's sync.RWMutex has no poisoning analog to guard against; this
// recover stands in for it) is logged and treated as a miss, never
// propagated — the cache is advisory, not an authority.
func (sc *SessionCache) lookup(token string) (record SessionRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("session cache: unexpected panic during lookup, treating as miss", "panic", r)
			record, ok = SessionRecord{}, false
		}
	}()

	sc.mu.RLock()
	defer sc.mu.RUnlock()
	entry, found := sc.entries[token]
	if !found {
		return SessionRecord{}, false
	}
	return entry.record.Clone(), true
}

func (sc *SessionCache) store(token string, record SessionRecord) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("session cache: unexpected panic during insert, dropping entry", "panic", r)
		}
	}()

	now, err := sc.clock.NowUnix()
	if err != nil {
		logger.Warn("session cache: unable to cache decrypted session, clock unavailable", "error", err)
		return
	}
	sc.mu.Lock()
	sc.entries[token] = cachedEntry{evictAfter: now + sc.ttlSeconds, record: record.Clone()}
	sc.mu.Unlock()
}

// Encode constructs a SessionRecord with start_time=now, serializes it
// canonically, authenticated-encrypts it under key, and base64-encodes
// ciphertext||tag into a token. The token is inserted into the cache.
func (sc *SessionCache) Encode(id string, attributes map[string]string, secrets []string, key []byte, expiresIn *int64) (string, error) {
	nowSecs, err := sc.clock.NowUnix()
	if err != nil {
		return "", fmt.Errorf("session cache: clock unavailable: %w", err)
	}

	record := SessionRecord{
		StartTime:  nowSecs,
		ExpiresIn:  expiresIn,
		ID:         id,
		Attributes: attributes,
		Secrets:    secrets,
	}
	if record.Attributes == nil {
		record.Attributes = map[string]string{}
	}

	logger.Debug("creating token for session", "id", record.ID)

	plaintext, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("session cache: serializing session data: %w", err)
	}

	tag := make([]byte, tagSize)
	ciphertext, err := sc.cipher.Encrypt(key, plaintext, tag)
	if err != nil {
		return "", fmt.Errorf("session cache: cipher failure: %w", err)
	}

	sealed := append(ciphertext, tag...)
	token := base64.StdEncoding.EncodeToString(sealed)

	sc.store(token, record)
	return token, nil
}

// Decode returns the SessionRecord embedded in token. On a cache hit it
// returns a clone without touching the cipher. On a miss it
// base64-decodes, splits off the trailing tag, decrypts, deserializes,
// and inserts the result into the cache before returning it.
//
// Every failure on this path surfaces as ErrInvalidCredentials; a tag or
// key mismatch and an undecodable payload produce the same reason.
func (sc *SessionCache) Decode(token string, key []byte) (SessionRecord, error) {
	if record, ok := sc.lookup(token); ok {
		logger.Trace("session cache hit", "id", record.ID)
		// A hit still "touches" the entry, extending its residency
		// window by another TTL: the cache is meant to amortize cost
		// across a burst of requests, so continued access should keep
		// the entry resident rather than let it expire mid-burst. This
		// is cache-residency bookkeeping only — it has no bearing on
		// the session's own lifetime, which Status() evaluates
		// independently of cache state.
		sc.store(token, record)
		return record, nil
	}
	logger.Trace("session cache miss, decrypting")

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return SessionRecord{}, invalidCredentials("malformed token")
	}

	if len(raw) <= tagSize {
		return SessionRecord{}, invalidCredentials("token too short")
	}

	ciphertext, tag := raw[:len(raw)-tagSize], raw[len(raw)-tagSize:]
	plaintext, err := sc.cipher.Decrypt(key, ciphertext, tag)
	if err != nil {
		return SessionRecord{}, invalidCredentials("decryption failed")
	}

	var record SessionRecord
	if err := json.Unmarshal(plaintext, &record); err != nil {
		return SessionRecord{}, invalidCredentials("decryption failed")
	}

	sc.store(token, record)
	return record, nil
}

// Remove unconditionally evicts token from the cache. Absence is not
// an error.
func (sc *SessionCache) Remove(token string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("session cache: unexpected panic during remove, ignoring", "panic", r)
		}
	}()
	sc.mu.Lock()
	delete(sc.entries, token)
	sc.mu.Unlock()
}

// Size returns an advisory snapshot of the current entry count.
func (sc *SessionCache) Size() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.entries)
}

// Sweep retains only entries whose evictAfter is still in the future.
// Intended to be driven periodically by an external housekeeping task.
func (sc *SessionCache) Sweep() error {
	now, err := sc.clock.NowUnix()
	if err != nil {
		return fmt.Errorf("session cache: purge: clock unavailable: %w", err)
	}

	sc.mu.Lock()
	sizeBefore := len(sc.entries)
	for token, entry := range sc.entries {
		if entry.evictAfter <= now {
			delete(sc.entries, token)
		}
	}
	sizeAfter := len(sc.entries)
	sc.mu.Unlock()

	logger.Debug("login session cache purge", "size_before", sizeBefore, "size_after", sizeAfter)
	return nil
}
