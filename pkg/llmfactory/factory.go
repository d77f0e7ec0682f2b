package llmfactory

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/pkg/llms"
	"github.com/effective-security/edxai/pkg/llms/anthropic"
	"github.com/effective-security/edxai/pkg/llms/openai"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/edxai", "llmfactory")

// NewBackend is a wrapper for CreateBackend to allow for overriding the default implementation.
var NewBackend = CreateBackend

// ErrProfileNotFound is returned for unknown profiles
var ErrProfileNotFound = errors.New("profile not found")

// Factory resolves profiles and creates backends for them.
type Factory interface {
	// Profile returns the resolved profile by name,
	// DefaultProfile is used if the name is empty.
	// The resolved profile has the provider, model and API key
	// of its provider applied.
	Profile(name string) (*Profile, error)
	// Backend returns the backend of the profile's provider
	Backend(profile *Profile) (llms.Backend, error)
}

// Load returns the factory configured from the file
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	byProvider map[string]llms.Backend
	lock       sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	return &factory{
		cfg:        cfg,
		byProvider: make(map[string]llms.Backend),
	}
}

// CreateBackend returns a new backend for the provider
func CreateBackend(cfg *ProviderConfig) (llms.Backend, error) {
	provType := strings.ToUpper(cfg.OpenAI.APIType)
	switch provType {
	case "OPENAI", "OPEN_AI", "":
		return newOpenAI(cfg, openai.ProviderOpenAI)
	case "AZURE":
		return newOpenAI(cfg, openai.ProviderAzure)
	case "AZURE_AD":
		return newOpenAI(cfg, openai.ProviderAzureAD)
	case "ANTHROPIC":
		return newAnthropic(cfg)
	}
	return nil, errors.Errorf("unsupported provider type: %s", provType)
}

func newOpenAI(cfg *ProviderConfig, provider openai.ProviderType) (llms.Backend, error) {
	opts := []openai.Option{
		openai.WithProvider(provider),
		openai.WithModel(cfg.DefaultModel),
	}
	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	if cfg.OpenAI.APIVersion != "" {
		opts = append(opts, openai.WithAPIVersion(cfg.OpenAI.APIVersion))
	}
	if cfg.OpenAI.OrgID != "" {
		opts = append(opts, openai.WithOrganization(cfg.OpenAI.OrgID))
	}
	return openai.New(opts...)
}

func newAnthropic(cfg *ProviderConfig) (llms.Backend, error) {
	opts := []anthropic.Option{
		anthropic.WithModel(cfg.DefaultModel),
	}
	if cfg.Token != "" {
		opts = append(opts, anthropic.WithToken(cfg.Token))
	}
	opts = append(opts,
		anthropic.WithBaseURL(values.StringsCoalesce(cfg.Anthropic.BaseURL, cfg.OpenAI.BaseURL)),
		anthropic.WithMCPBeta(cfg.Anthropic.MCPBeta),
	)
	return anthropic.New(opts...)
}

func (f *factory) Profile(name string) (*Profile, error) {
	name = values.StringsCoalesce(name, DefaultProfile)
	p, ok := f.cfg.Profiles[name]
	if !ok || p == nil {
		return nil, errors.WithMessagef(ErrProfileNotFound, "profile %s", name)
	}

	res := *p
	res.Name = name
	if err := res.Validate(); err != nil {
		return nil, err
	}

	prov := f.cfg.provider(p.Provider)
	if prov == nil {
		return nil, errors.Errorf("profile %s: provider not found: %s", name, p.Provider)
	}
	res.Provider = prov.Name

	model, err := prov.ResolveModel(p.Model)
	if err != nil {
		return nil, errors.WithMessagef(err, "profile %s", name)
	}
	res.Model = model
	res.APIKey = values.StringsCoalesce(p.APIKey, prov.Token)
	return &res, nil
}

func (f *factory) Backend(profile *Profile) (llms.Backend, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	prov := f.cfg.provider(profile.Provider)
	if prov == nil {
		return nil, errors.Errorf("provider not found: %s", profile.Provider)
	}
	if b, ok := f.byProvider[prov.Name]; ok {
		return b, nil
	}

	b, err := NewBackend(prov)
	if err != nil {
		return nil, err
	}

	logger.KV(xlog.DEBUG,
		"status", "created_llm",
		"type", prov.OpenAI.APIType,
		"version", prov.OpenAI.APIVersion,
		"name", prov.Name)

	f.byProvider[prov.Name] = b
	return b, nil
}
