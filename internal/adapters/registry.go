package adapters

import (
	"github.com/zgpcy/cost-console/internal/azure"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/provider"
)

// Registry identities
var (
	RailwayMeta      = provider.Meta{ID: "railway", Name: "Railway", Category: provider.CategoryInfrastructure, HasBillingAPI: true}
	OpenAIMeta       = provider.Meta{ID: "openai", Name: "OpenAI", Category: provider.CategoryAI, HasBillingAPI: true}
	AnthropicMeta    = provider.Meta{ID: "anthropic", Name: "Anthropic", Category: provider.CategoryAI, HasBillingAPI: true}
	StripeMeta       = provider.Meta{ID: "stripe", Name: "Stripe", Category: provider.CategoryPayments, HasBillingAPI: true}
	LemonSqueezyMeta = provider.Meta{ID: "lemonsqueezy", Name: "LemonSqueezy", Category: provider.CategoryPayments, HasBillingAPI: true}
	ElevenLabsMeta   = provider.Meta{ID: "elevenlabs", Name: "ElevenLabs", Category: provider.CategoryAI, HasBillingAPI: true}
	GitHubMeta       = provider.Meta{ID: "github", Name: "GitHub", Category: provider.CategoryPlatform, HasBillingAPI: true}
	GroqMeta         = provider.Meta{ID: "groq", Name: "Groq", Category: provider.CategoryAI}
	DeepSeekMeta     = provider.Meta{ID: "deepseek", Name: "DeepSeek", Category: provider.CategoryAI, HasBillingAPI: true}
	SupabaseMeta     = provider.Meta{ID: "supabase", Name: "Supabase", Category: provider.CategoryInfrastructure, HasBillingAPI: true}
	HuggingFaceMeta  = provider.Meta{ID: "huggingface", Name: "Hugging Face", Category: provider.CategoryAI}
	GeminiMeta       = provider.Meta{ID: "google-gemini", Name: "Google/Gemini", Category: provider.CategoryAI}
	BraveSearchMeta  = provider.Meta{ID: "brave-search", Name: "Brave Search", Category: provider.CategorySearch}
	AtlasMeta        = provider.Meta{ID: "mongodb-atlas", Name: "MongoDB Atlas", Category: provider.CategoryInfrastructure, HasBillingAPI: true}
)

// Entries builds every registry entry from cfg, in display order
func Entries(cfg *config.Config, opts Options) []provider.Entry {
	return []provider.Entry{
		{Meta: RailwayMeta, EnvKey: "RAILWAY_API_TOKEN", Adapter: NewRailway(cfg, opts)},
		{Meta: OpenAIMeta, EnvKey: "OPENAI_API_KEY", Adapter: NewOpenAI(cfg, opts)},
		{Meta: AnthropicMeta, EnvKey: "ANTHROPIC_API_KEY", Adapter: NewAnthropic(cfg, opts)},
		{Meta: StripeMeta, EnvKey: "STRIPE_SECRET_KEY", Adapter: NewStripe(cfg, opts)},
		{Meta: LemonSqueezyMeta, EnvKey: "LEMONSQUEEZY_API_KEY", Adapter: NewLemonSqueezy(cfg, opts)},
		{Meta: ElevenLabsMeta, EnvKey: "ELEVENLABS_API_KEY", Adapter: NewElevenLabs(cfg, opts)},
		{Meta: GitHubMeta, EnvKey: "GITHUB_TOKEN", Adapter: NewGitHub(cfg, opts)},
		{Meta: GroqMeta, EnvKey: "GROQ_API_KEY", Adapter: NewPlaceholder(GroqMeta)},
		{Meta: DeepSeekMeta, EnvKey: "DEEPSEEK_API_KEY", Adapter: NewDeepSeek(cfg, opts)},
		{Meta: SupabaseMeta, EnvKey: "SUPABASE_ACCESS_TOKEN", Adapter: NewSupabase(cfg, opts)},
		{Meta: HuggingFaceMeta, EnvKey: "HF_TOKEN", Adapter: NewPlaceholder(HuggingFaceMeta)},
		{Meta: GeminiMeta, EnvKey: "GOOGLE_APPLICATION_CREDENTIALS", Adapter: NewPlaceholder(GeminiMeta)},
		{Meta: BraveSearchMeta, EnvKey: "BRAVE_SEARCH_API_KEY", Adapter: NewPlaceholder(BraveSearchMeta)},
		{Meta: azure.Meta, EnvKey: azure.EnvKey, Adapter: azure.NewAdapter(cfg, opts.MaxRetries, opts.Logger)},
		{Meta: AtlasMeta, EnvKey: "ATLAS_PUBLIC_KEY", Adapter: NewAtlas(cfg, opts)},
	}
}

// NewRegistry builds the validated default registry
func NewRegistry(cfg *config.Config, opts Options) (*provider.Registry, error) {
	return provider.NewRegistry(Entries(cfg, opts)...)
}
