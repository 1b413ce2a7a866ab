package directory

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func TestStaticQueryUsersWithEmail(t *testing.T) {
	d := NewStatic(map[string]User{
		"u1": {ID: "u1", Name: "Alice", Email: "alice@example.com"},
		"u2": {ID: "u2", Name: "Bob"},
		"u3": {ID: "u3", Name: "Carol", Email: "carol@example.com"},
	})

	users, err := d.QueryUsersWithEmail(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var emails []string
	for _, u := range users {
		emails = append(emails, u.Email)
	}
	sort.Strings(emails)
	want := []string{"alice@example.com", "carol@example.com"}
	if len(emails) != len(want) {
		t.Fatalf("expected %v, got %v", want, emails)
	}
	for i := range want {
		if emails[i] != want[i] {
			t.Errorf("expected %v, got %v", want, emails)
		}
	}
}

func TestStaticLookup(t *testing.T) {
	d := NewStatic(map[string]User{
		"u1": {ID: "u1", Email: "alice@example.com"},
	})

	t.Run("known user", func(t *testing.T) {
		u, err := d.Lookup(context.Background(), "u1", "tok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.Email != "alice@example.com" {
			t.Errorf("unexpected user: %+v", u)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := d.Lookup(context.Background(), "nope", "tok")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStaticCopiesInput(t *testing.T) {
	src := map[string]User{"u1": {ID: "u1", Email: "a@x"}}
	d := NewStatic(src)
	delete(src, "u1")

	if _, err := d.Lookup(context.Background(), "u1", ""); err != nil {
		t.Error("directory shares backing map with caller")
	}
}

func TestStaticToken(t *testing.T) {
	ts := StaticToken("secret")
	tok, err := ts.ServiceToken(context.Background(), "directory")
	if err != nil || tok != "secret" {
		t.Errorf("expected secret token, got %q err=%v", tok, err)
	}
}
