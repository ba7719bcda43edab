package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
)

func TestClientCacheKeyNormalization(t *testing.T) {
	m := NewManager("", "", "")
	k1 := m.clientKey("aliasA", []string{"scope2", "scope1"})
	k2 := m.clientKey("aliasA", []string{"scope1", "scope2"})
	if k1 != k2 {
		t.Fatalf("expected normalized keys to be equal, got %q vs %q", k1, k2)
	}
}

func TestClientReturnsCachedInstance(t *testing.T) {
	m := NewManager("", "", "")
	alias := "acc"
	scopes := []string{"s1", "s2"}
	key := m.clientKey(alias, scopes)
	want := &msgraphsdk.GraphServiceClient{}
	m.mu.Lock()
	m.clients[key] = want
	m.mu.Unlock()

	got, err := m.Client(context.Background(), alias, []string{"s2", "s1"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected cached client to be returned")
	}
}

func TestHasAuthRecord(t *testing.T) {
	dir := t.TempDir()
	m := NewManager("client", "tenant", dir)
	ctx := context.Background()
	if m.HasAuthRecord(ctx, "acc") {
		t.Fatalf("expected no auth record before sign-in")
	}
	record := filepath.Join(dir, "acc_auth_record.json")
	if err := os.WriteFile(record, []byte("{}"), 0o600); err != nil {
		t.Fatalf("write record: %v", err)
	}
	if !m.HasAuthRecord(ctx, "acc") {
		t.Fatalf("expected auth record at %s to be detected", record)
	}
}

func TestQualifyScopes(t *testing.T) {
	got := QualifyScopes([]string{"Calendars.Read", "offline_access", "", "https://graph.microsoft.com/.default"})
	want := []string{
		"https://graph.microsoft.com/Calendars.Read",
		"offline_access",
		"https://graph.microsoft.com/.default",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestPrincipal(t *testing.T) {
	// header {"alg":"none"} . {"preferred_username":"user@example.com"} . empty sig
	token := "eyJhbGciOiJub25lIn0.eyJwcmVmZXJyZWRfdXNlcm5hbWUiOiJ1c2VyQGV4YW1wbGUuY29tIn0."
	if got := Principal(token); got != "user@example.com" {
		t.Fatalf("expected principal user@example.com, got %q", got)
	}
	if got := Principal("not-a-jwt"); got != "" {
		t.Fatalf("expected empty principal for malformed token, got %q", got)
	}
}
