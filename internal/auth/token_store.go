package auth

import (
	"sync"
	"time"
)

// tokenEntry は発行済みトークン1件の状態。
type tokenEntry struct {
	expiresAt time.Time
	timer     *time.Timer
}

// TokenStore はトークンと有効期限の対応を保持するプロセス内ストア。
// 各トークンは発行時に1回だけ実行される削除タイマーを持つ。
// 永続化しないため、プロセス再起動で全トークンが無効になる。
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]*tokenEntry
	now    func() time.Time
}

// NewTokenStore はTokenStoreを生成する。nowがnilの場合はtime.Nowを使用する。
func NewTokenStore(now func() time.Time) *TokenStore {
	if now == nil {
		now = time.Now
	}
	return &TokenStore{
		tokens: make(map[string]*tokenEntry),
		now:    now,
	}
}

// Add はトークンを登録し、ttl経過後に削除するタイマーを設定する。
func (s *TokenStore) Add(token string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tokens[token]; ok {
		old.timer.Stop()
	}

	entry := &tokenEntry{expiresAt: s.now().Add(ttl)}
	entry.timer = time.AfterFunc(ttl, func() {
		s.expire(token, entry)
	})
	s.tokens[token] = entry
}

// Valid はトークンが登録済みかつ期限内であるかを返す。
func (s *TokenStore) Valid(token string) bool {
	if token == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return false
	}
	return s.now().Before(entry.expiresAt)
}

// Remove はトークンを即座に削除し、削除タイマーを停止する。
// 登録されていなかった場合はfalseを返す。
func (s *TokenStore) Remove(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(s.tokens, token)
	return true
}

// Len は保持しているトークン数を返す。
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// expire はタイマーから呼ばれる。同じトークンが再登録されていた場合は削除しない。
func (s *TokenStore) expire(token string, entry *tokenEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.tokens[token]; ok && current == entry {
		delete(s.tokens, token)
	}
}
