package registry

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// snapshot is the immutable, published view of the registry. reload()
// builds a new snapshot and swaps the pointer atomically so in-flight
// requests that already loaded the old snapshot keep using it — this
// module's resolution of the "registry reload mid-flight" open question.
type snapshot struct {
	byName  map[string]ServiceSpec
	order   []string
	hostMap map[string]string // pattern -> service name
}

// Registry resolves path-prefix service names to ServiceSpecs. The
// built-in catalogue is always present; an optional user-supplied overlay
// file can add services or override built-ins by name.
type Registry struct {
	overlayPath string
	current     atomic.Pointer[snapshot]
}

// New builds a Registry from the built-in catalogue plus an optional YAML
// overlay file (overlayPath may be empty). Call Reload to pick up changes
// to the overlay file later.
func New(overlayPath string) (*Registry, error) {
	r := &Registry{overlayPath: overlayPath}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// overlayFile is the YAML shape of a user-supplied service overlay.
type overlayFile struct {
	Services []overlayService `yaml:"services"`
}

type overlayService struct {
	Name          string            `yaml:"name"`
	Upstream      string            `yaml:"upstream"`
	AuthMode      string            `yaml:"auth_mode"`
	AuthHeader    string            `yaml:"auth_header"`
	AuthPrefix    string            `yaml:"auth_prefix"`
	CredentialKey string            `yaml:"credential_key"`
	ExtraHeaders  map[string]string `yaml:"extra_headers"`
	URLPrefix     string            `yaml:"url_prefix"`
	BasicSIDKey   string            `yaml:"basic_sid_key"`
	BasicTokenKey string            `yaml:"basic_token_key"`
	HostPatterns  []string          `yaml:"host_patterns"`
}

func (o overlayService) toSpec() ServiceSpec {
	spec := ServiceSpec{
		Name:          o.Name,
		Upstream:      o.Upstream,
		AuthMode:      AuthMode(o.AuthMode),
		AuthHeader:    o.AuthHeader,
		AuthPrefix:    o.AuthPrefix,
		CredentialKey: o.CredentialKey,
		URLPrefix:     o.URLPrefix,
		BasicSIDKey:   o.BasicSIDKey,
		BasicTokenKey: o.BasicTokenKey,
		HostPatterns:  o.HostPatterns,
	}
	for header, key := range o.ExtraHeaders {
		spec.ExtraHeaders = append(spec.ExtraHeaders, ExtraHeader{Header: header, CredentialKey: key})
	}
	return spec
}

func loadOverlay(path string) ([]ServiceSpec, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading services overlay %s: %w", path, err)
	}

	var f overlayFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing services overlay %s: %w", path, err)
	}

	specs := make([]ServiceSpec, 0, len(f.Services))
	for _, s := range f.Services {
		specs = append(specs, s.toSpec())
	}
	return specs, nil
}

// ValidateConfigFile parses the overlay file at path and reports every
// structural problem in the file itself, distinct from a single service's
// own field validation (see Validate): currently, duplicate service names
// declared more than once within the same file. A path that does not exist
// is treated as a valid, empty overlay, matching loadOverlay's own
// not-found handling.
func ValidateConfigFile(path string) (bool, []error) {
	if path == "" {
		return true, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, []error{fmt.Errorf("reading services file %s: %w", path, err)}
	}

	var f overlayFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return false, []error{fmt.Errorf("parsing services file %s: %w", path, err)}
	}

	var errs []error
	seen := make(map[string]bool, len(f.Services))
	for _, s := range f.Services {
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("duplicate service name %q in %s", s.Name, path))
			continue
		}
		seen[s.Name] = true
	}
	return len(errs) == 0, errs
}

func buildSnapshot(builtin, overlay []ServiceSpec) (*snapshot, error) {
	byName := make(map[string]ServiceSpec, len(builtin))
	var order []string

	for _, spec := range builtin {
		if err := Validate(spec); err != nil {
			return nil, fmt.Errorf("built-in catalogue: %w", err)
		}
		byName[spec.Name] = spec
		order = append(order, spec.Name)
	}

	for _, spec := range overlay {
		if err := Validate(spec); err != nil {
			return nil, fmt.Errorf("services overlay: %w", err)
		}
		if _, exists := byName[spec.Name]; !exists {
			order = append(order, spec.Name)
		}
		byName[spec.Name] = spec
	}

	hostMap := make(map[string]string)
	for _, name := range order {
		for _, pattern := range byName[name].HostPatterns {
			key := strings.ToLower(pattern)
			hostMap[key] = name
		}
	}

	return &snapshot{byName: byName, order: order, hostMap: hostMap}, nil
}

// Reload re-reads the overlay file (if configured), validates the merged
// catalogue, and atomically publishes a new snapshot. Requests already in
// flight keep using the snapshot they loaded.
func (r *Registry) Reload() error {
	if ok, errs := ValidateConfigFile(r.overlayPath); !ok {
		return fmt.Errorf("services overlay %s has %d error(s): %w", r.overlayPath, len(errs), errors.Join(errs...))
	}

	overlay, err := loadOverlay(r.overlayPath)
	if err != nil {
		return err
	}
	snap, err := buildSnapshot(Builtin(), overlay)
	if err != nil {
		return err
	}
	r.current.Store(snap)
	return nil
}

// Get returns the ServiceSpec registered under name.
func (r *Registry) Get(name string) (ServiceSpec, bool) {
	snap := r.current.Load()
	spec, ok := snap.byName[name]
	return spec, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// All returns every registered ServiceSpec, built-in catalogue order first
// then overlay-added services, in deterministic order.
func (r *Registry) All() []ServiceSpec {
	snap := r.current.Load()
	out := make([]ServiceSpec, 0, len(snap.order))
	for _, name := range snap.order {
		out = append(out, snap.byName[name])
	}
	return out
}

// HostMap returns the pattern -> service name mapping used by the fetch
// interceptor, built from every registered service's HostPatterns. Each
// pattern resolves to exactly one service; an overlay service's patterns
// override a built-in's on conflict because the overlay is merged last.
func (r *Registry) HostMap() map[string]string {
	snap := r.current.Load()
	out := make(map[string]string, len(snap.hostMap))
	for k, v := range snap.hostMap {
		out[k] = v
	}
	return out
}

// Generation-style accessor for tests that want to assert the in-flight
// snapshot did not change out from under a request.
func (r *Registry) snapshotPointer() *snapshot {
	return r.current.Load()
}
