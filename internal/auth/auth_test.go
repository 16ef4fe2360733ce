package auth

import (
	"strings"
	"testing"
	"time"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	ok, err := VerifyPassword("correct horse battery staple", hash)
	if err != nil || !ok {
		t.Fatalf("verify correct password: ok=%v err=%v", ok, err)
	}

	ok, err = VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("verify wrong password: %v", err)
	}
	if ok {
		t.Fatalf("wrong password verified")
	}
}

func TestVerifyPassword_BadHash(t *testing.T) {
	t.Parallel()

	if _, err := VerifyPassword("pw", "not-a-hash"); err == nil {
		t.Fatalf("expected error for malformed hash")
	}
	if _, err := VerifyPassword("pw", "$bcrypt$v=19$m=1,t=1,p=1$a$b"); err == nil {
		t.Fatalf("expected error for non-argon2id hash")
	}
}

func TestSessionStore(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(time.Hour)
	token := store.Create("user-1")

	sess, ok := store.Get(token)
	if !ok || sess.UserID != "user-1" {
		t.Fatalf("get session: ok=%v sess=%+v", ok, sess)
	}
	if _, ok := store.Get("unknown-token"); ok {
		t.Fatalf("unknown token resolved")
	}

	store.Delete(token)
	if _, ok := store.Get(token); ok {
		t.Fatalf("deleted token still resolves")
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(-time.Minute) // already expired on creation
	token := store.Create("user-1")
	if _, ok := store.Get(token); ok {
		t.Fatalf("expired token resolved")
	}
}

func TestSessionStore_DeleteForUser(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(time.Hour)
	t1 := store.Create("user-1")
	t2 := store.Create("user-1")
	t3 := store.Create("user-2")

	store.DeleteForUser("user-1")
	if _, ok := store.Get(t1); ok {
		t.Fatalf("t1 still resolves")
	}
	if _, ok := store.Get(t2); ok {
		t.Fatalf("t2 still resolves")
	}
	if _, ok := store.Get(t3); !ok {
		t.Fatalf("t3 should survive")
	}
}
