package credential

import (
	"context"
	"testing"
)

func TestMemoryStoreListScopedToService(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "anthropic", "api_key", "sk-ant-test"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "twilio", "auth_token", "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	refs, err := s.List(ctx, "anthropic")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(refs) != 1 || refs[0] != (CredentialRef{Service: "anthropic", Key: "api_key"}) {
		t.Fatalf("expected exactly the anthropic ref, got %v", refs)
	}
}

func TestMemoryStoreListAcrossAllServices(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "anthropic", "api_key", "sk-ant-test"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "twilio", "auth_token", "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	refs, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := map[CredentialRef]bool{
		{Service: "anthropic", Key: "api_key"}:  true,
		{Service: "twilio", Key: "auth_token"}: true,
	}
	if len(refs) != len(want) {
		t.Fatalf("expected %d refs, got %d: %v", len(want), len(refs), refs)
	}
	for _, ref := range refs {
		if !want[ref] {
			t.Fatalf("unexpected ref %v", ref)
		}
	}
}
