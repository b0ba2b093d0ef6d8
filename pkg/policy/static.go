package policy

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/notifykit/notifyd/pkg/notifications"
)

// Document is the YAML policy file.
type Document struct {
	Packages      map[string]PackageConfig `yaml:"packages"`
	Zen           ZenPolicy                `yaml:"zen"`
	ProfileGroups [][]int                  `yaml:"profile_groups"`
	CallPackages  []string                 `yaml:"call_packages"`
}

// PackageConfig holds the settings of one package.
type PackageConfig struct {
	// UID, when non-zero, is the only non-system uid allowed to post for
	// the package.
	UID           int                      `yaml:"uid"`
	Importance    notifications.Importance `yaml:"importance"`
	Suspended     bool                     `yaml:"suspended"`
	LaunchIntent  string                   `yaml:"launch_intent"`
	Bubbles       bool                     `yaml:"bubbles"`
	Badge         bool                     `yaml:"badge"`
	BlockedGroups []string                 `yaml:"blocked_groups"`
	Channels      []ChannelConfig          `yaml:"channels"`
}

// DefaultPackageConfig returns the settings used for omitted fields.
func DefaultPackageConfig() PackageConfig {
	return PackageConfig{
		Importance: notifications.ImportanceUnspecified,
		Bubbles:    true,
		Badge:      true,
	}
}

func (p *PackageConfig) UnmarshalYAML(n *yaml.Node) error {
	type plain PackageConfig
	v := plain(DefaultPackageConfig())
	if err := n.Decode(&v); err != nil {
		return err
	}
	*p = PackageConfig(v)
	return nil
}

// ChannelConfig is a channel declared in the policy file.
type ChannelConfig notifications.Channel

func (c *ChannelConfig) UnmarshalYAML(n *yaml.Node) error {
	type plain notifications.Channel
	v := plain{
		Importance:           notifications.ImportanceDefault,
		ShowBadge:            true,
		AllowBubbles:         true,
		LockscreenVisibility: notifications.VisibilityNoOverride,
	}
	if err := n.Decode(&v); err != nil {
		return err
	}
	*c = ChannelConfig(v)
	return nil
}

func (d Document) validate() error {
	for name, pkg := range d.Packages {
		if name == "" {
			return fmt.Errorf("%w: empty package name", ErrInvalidPolicy)
		}
		seen := make(map[string]struct{}, len(pkg.Channels))
		for _, ch := range pkg.Channels {
			if ch.ID == "" {
				return fmt.Errorf("%w: package %s: channel without id", ErrInvalidPolicy, name)
			}
			if _, dup := seen[ch.ID]; dup {
				return fmt.Errorf("%w: package %s: duplicate channel %s", ErrInvalidPolicy, name, ch.ID)
			}
			seen[ch.ID] = struct{}{}
		}
	}
	for _, g := range d.ProfileGroups {
		if len(g) < 2 {
			return fmt.Errorf("%w: profile group needs at least two users", ErrInvalidPolicy)
		}
	}
	return nil
}

// Static serves every oracle from an in-memory Document. It is safe for
// concurrent use and may be updated at runtime.
type Static struct {
	mu  sync.RWMutex
	doc Document
}

var (
	_ Zen         = (*Static)(nil)
	_ Preferences = (*Static)(nil)
	_ Packages    = (*Static)(nil)
	_ Profiles    = (*Static)(nil)
	_ Authorizer  = (*Static)(nil)
)

// NewStatic returns a Static serving doc.
func NewStatic(doc Document) (*Static, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	if doc.Packages == nil {
		doc.Packages = make(map[string]PackageConfig)
	}
	return &Static{doc: doc}, nil
}

// Parse reads a YAML policy document.
func Parse(r io.Reader) (*Static, error) {
	doc := Document{Zen: DefaultZenPolicy()}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	return NewStatic(doc)
}

// LoadFile reads a YAML policy file.
func LoadFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("policy: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// SetPackage replaces the settings of one package.
func (s *Static) SetPackage(name string, cfg PackageConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkgs := maps.Clone(s.doc.Packages)
	pkgs[name] = cfg
	s.doc.Packages = pkgs
}

// SetSuspended toggles a package's suspension.
func (s *Static) SetSuspended(name string, suspended bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkgs := maps.Clone(s.doc.Packages)
	cfg, ok := pkgs[name]
	if !ok {
		cfg = DefaultPackageConfig()
	}
	cfg.Suspended = suspended
	pkgs[name] = cfg
	s.doc.Packages = pkgs
}

// SetZen replaces the do-not-disturb policy.
func (s *Static) SetZen(p ZenPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Zen = p
}

func (s *Static) pkg(name string) (PackageConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.doc.Packages[name]
	return cfg, ok
}

func (s *Static) ShouldIntercept(c Candidate) bool {
	return s.ConsolidatedPolicy().Intercepts(c)
}

func (s *Static) ConsolidatedPolicy() ZenPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Zen
}

// IsCall reports whether c is an incoming call, either by category or
// because it comes from a dialer package.
func (s *Static) IsCall(c Candidate) bool {
	if c.Category != notifications.CategoryCall {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.doc.CallPackages) == 0 || slices.Contains(s.doc.CallPackages, c.Package)
}

func (s *Static) Importance(pkg string, _ int) notifications.Importance {
	cfg, ok := s.pkg(pkg)
	if !ok {
		return notifications.ImportanceUnspecified
	}
	return cfg.Importance
}

func (s *Static) Channel(pkg string, _ int, id string) (*notifications.Channel, bool) {
	cfg, ok := s.pkg(pkg)
	if !ok {
		return nil, false
	}
	for _, ch := range cfg.Channels {
		if ch.ID == id {
			c := notifications.Channel(ch)
			return c.Clone(), true
		}
	}
	return nil, false
}

func (s *Static) IsGroupBlocked(pkg string, _ int, group string) bool {
	if group == "" {
		return false
	}
	cfg, _ := s.pkg(pkg)
	return slices.Contains(cfg.BlockedGroups, group)
}

func (s *Static) AreBubblesAllowed(pkg string, _ int) bool {
	cfg, ok := s.pkg(pkg)
	return !ok || cfg.Bubbles
}

func (s *Static) CanShowBadge(pkg string, _ int) bool {
	cfg, ok := s.pkg(pkg)
	return !ok || cfg.Badge
}

func (s *Static) LaunchIntent(pkg string, _ int) string {
	cfg, _ := s.pkg(pkg)
	return cfg.LaunchIntent
}

func (s *Static) IsSuspended(pkg string, _ int) bool {
	cfg, _ := s.pkg(pkg)
	return cfg.Suspended
}

// SameProfileGroup reports whether two users share a profile group. A user
// is always in its own group.
func (s *Static) SameProfileGroup(a, b int) bool {
	if a == b {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.doc.ProfileGroups {
		if slices.Contains(g, a) && slices.Contains(g, b) {
			return true
		}
	}
	return false
}

// Authorize rejects callers whose uid does not own the package.
func (s *Static) Authorize(_ context.Context, c Caller) error {
	if IsSystem(c.Package, c.CallingUID) {
		return nil
	}
	cfg, ok := s.pkg(c.Package)
	if !ok || cfg.UID == 0 || cfg.UID == c.CallingUID {
		return nil
	}
	return fmt.Errorf("%w: uid %d for %s", ErrUIDMismatch, c.CallingUID, c.Package)
}
