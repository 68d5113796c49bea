// Package oracle talks to the external language model that classifies and
// extracts structured data from fragments.
//
// # Providers
//
//   - anthropic: Anthropic Messages API (ANTHROPIC_API_KEY)
//   - openai: any OpenAI-compatible chat completion endpoint (OPENAI_API_KEY)
//   - gemini: Google Gemini through the GenAI SDK (GEMINI_API_KEY)
//   - mock: scripted replies, for tests and offline runs
//
// # Basic Usage
//
//	o, err := oracle.New(ctx, oracle.Config{
//	    Provider:     oracle.ProviderAnthropic,
//	    AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    MaxRetries:   3,
//	})
//	text, err := o.Complete(ctx, oracle.Request{
//	    Capability: "eval_criteria_identifier",
//	    Prompt:     prompt,
//	})
//
// # Resilience
//
// Providers make exactly one HTTP call per Complete. WithRetry adds
// exponential backoff and WithCache serves repeated prompts from an LRU.
// Both are opt-in. New adds WithRetry only when Config.MaxRetries asks for
// it and never adds a cache: callers wrap WithCache around one run so cached
// replies never outlive it.
//
// # Reply store
//
// Config.ReplyStorePath keeps successful replies in a bbolt file across runs:
//
//	o, err := oracle.New(ctx, oracle.Config{Provider: "openai", ReplyStorePath: "/var/cache/proposal/replies.db"})
//	defer oracle.Close(o)
package oracle
