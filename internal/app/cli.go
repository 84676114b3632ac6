package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys for SSE transport (comma-separated)")
	flags.StringP("data-dir", "d", "", "Base directory for the store and search index")
	flags.IntP("max-results", "n", 0, "Maximum search results per page")
	flags.String("llm-model", "", "Language model used by the batch pipelines")
	flags.Int("page-size", 0, "Batch page size")
	flags.Bool("auto-apply", false, "Write high-confidence batch changes through directly")
}
