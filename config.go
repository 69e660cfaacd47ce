package mealsuggest

import "time"

// PoolConfig describes the two generation backend pools. Pool A is the
// Bedrock Converse endpoint, pool B an OpenAI-compatible chat endpoint; each
// has its own rate-limit budget.
type PoolConfig struct {
	BedrockModelID string        `env:"BEDROCK_MODEL_ID,default=us.anthropic.claude-3-7-sonnet-20250219-v1:0"`
	CompatEndpoint string        `env:"COMPAT_BASE_ENDPOINT,default=http://localhost:11434"`
	CompatModelID  string        `env:"COMPAT_MODEL_ID,default=llama3.1"`
	MaxTokens      int32         `env:"MAX_TOKENS,default=2048"`
	Temperature    float32       `env:"TEMPERATURE,default=0.2"`
	TopP           float32       `env:"TOP_P,default=0.9"`
	ClientTTL      time.Duration `env:"CLIENT_POOL_TTL,default=30m"`
	ClientPoolSize int           `env:"CLIENT_POOL_SIZE,default=4"`
}

// PipelineConfig tunes the three-phase generation protocol.
type PipelineConfig struct {
	NameTimeout      time.Duration `env:"NAME_TIMEOUT,default=12s"`
	RecipeTimeout    time.Duration `env:"RECIPE_TIMEOUT,default=20s"`
	TranslateTimeout time.Duration `env:"TRANSLATE_TIMEOUT,default=15s"`
	MinAcceptable    int           `env:"MIN_ACCEPTABLE_SUGGESTIONS,default=2"`
}

// StoreConfig locates the session store and the user profile source.
type StoreConfig struct {
	DBPath        string `env:"SUGGEST_DB_PATH,default=suggest.db"`
	ProfilePath   string `env:"PROFILES_PATH,default=artifacts/profiles.json"`
	ProfileBucket string `env:"PROFILES_S3_BUCKET,default="`
	ProfileKey    string `env:"PROFILES_S3_KEY,default=profiles.json"`
	NotifyWebhook string `env:"NOTIFY_WEBHOOK_URL,default="`
	NotifyChannel string `env:"NOTIFY_CHANNEL,default=#meal-suggestions"`
}
