package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinCatalogueIsValid(t *testing.T) {
	reg, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, spec := range reg.All() {
		if err := Validate(spec); err != nil {
			t.Errorf("built-in service %q is invalid: %v", spec.Name, err)
		}
	}
}

func TestGetUnknownServiceIsAbsent(t *testing.T) {
	reg, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if reg.Has("not-a-real-service") {
		t.Fatalf("expected unknown service to be absent")
	}
}

func TestHostMapResolvesExactlyOneServicePerPattern(t *testing.T) {
	reg, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	hostMap := reg.HostMap()
	if hostMap["api.anthropic.com"] != "anthropic" {
		t.Fatalf("expected api.anthropic.com to map to anthropic, got %q", hostMap["api.anthropic.com"])
	}
	if hostMap["api.telegram.org"] != "telegram" {
		t.Fatalf("expected api.telegram.org to map to telegram, got %q", hostMap["api.telegram.org"])
	}
}

func TestOverlayOverridesBuiltinByName(t *testing.T) {
	dir := t.TempDir()
	overlay := filepath.Join(dir, "services.yaml")
	yamlContent := `
services:
  - name: anthropic
    upstream: https://proxy.internal.example/anthropic
    auth_mode: header
    auth_header: x-api-key
    credential_key: api_key
    host_patterns: ["api.anthropic.com"]
  - name: custom-service
    upstream: https://custom.example.com
    auth_mode: header
    auth_header: Authorization
    auth_prefix: "Bearer "
    credential_key: api_key
    host_patterns: ["custom.example.com"]
`
	if err := os.WriteFile(overlay, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("writing overlay: %v", err)
	}

	reg, err := New(overlay)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	spec, ok := reg.Get("anthropic")
	if !ok {
		t.Fatalf("expected anthropic to still be registered")
	}
	if spec.Upstream != "https://proxy.internal.example/anthropic" {
		t.Fatalf("expected overlay upstream to win, got %q", spec.Upstream)
	}

	if !reg.Has("custom-service") {
		t.Fatalf("expected overlay-added service to be registered")
	}
}

func TestReloadPublishesNewSnapshotAtomically(t *testing.T) {
	dir := t.TempDir()
	overlay := filepath.Join(dir, "services.yaml")

	reg, err := New(overlay)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	before := reg.snapshotPointer()

	if err := os.WriteFile(overlay, []byte(`
services:
  - name: custom-service
    upstream: https://custom.example.com
    auth_mode: none
`), 0600); err != nil {
		t.Fatalf("writing overlay: %v", err)
	}

	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	after := reg.snapshotPointer()

	if before == after {
		t.Fatalf("expected Reload to publish a new snapshot pointer")
	}
	if !before.byNameHas("anthropic") {
		t.Fatalf("old snapshot should remain usable by whoever still holds it")
	}
}

func (s *snapshot) byNameHas(name string) bool {
	_, ok := s.byName[name]
	return ok
}

func TestInvalidOverlayAuthModeRejectsReload(t *testing.T) {
	dir := t.TempDir()
	overlay := filepath.Join(dir, "services.yaml")
	if err := os.WriteFile(overlay, []byte(`
services:
  - name: broken
    upstream: https://broken.example.com
    auth_mode: not-a-real-mode
`), 0600); err != nil {
		t.Fatalf("writing overlay: %v", err)
	}

	if _, err := New(overlay); err == nil {
		t.Fatalf("expected an error for an invalid auth mode")
	}
}

func TestValidateConfigFileDetectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	overlay := filepath.Join(dir, "services.yaml")
	if err := os.WriteFile(overlay, []byte(`
services:
  - name: dup-service
    upstream: https://one.example.com
    auth_mode: none
  - name: dup-service
    upstream: https://two.example.com
    auth_mode: none
`), 0600); err != nil {
		t.Fatalf("writing overlay: %v", err)
	}

	ok, errs := ValidateConfigFile(overlay)
	if ok {
		t.Fatalf("expected duplicate service names to be rejected")
	}
	if len(errs) != 1 {
		t.Fatalf("expected exactly one duplicate-name error, got %d: %v", len(errs), errs)
	}

	if _, err := New(overlay); err == nil {
		t.Fatalf("expected New to reject an overlay with duplicate service names")
	}
}

func TestValidateConfigFileAcceptsEmptyPath(t *testing.T) {
	ok, errs := ValidateConfigFile("")
	if !ok || errs != nil {
		t.Fatalf("expected an empty path to validate cleanly, got ok=%v errs=%v", ok, errs)
	}
}
