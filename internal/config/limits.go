package config

const (
	// MaxPostTitleLength is the maximum length for post titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxPostTitleLength = 255

	// MaxGenerationInputLength is the maximum number of runes sent to the
	// text generation provider in one request.
	MaxGenerationInputLength = 20000

	// MaxGenerationOutputTokens caps the provider's response length.
	MaxGenerationOutputTokens = 1024

	// DefaultAutosaveDelayMs is the quiet period after the last edit before
	// the editor persists a post.
	DefaultAutosaveDelayMs = 2000

	// MaxSearchQueryLength bounds post search queries, in runes.
	MaxSearchQueryLength = 200

	// SearchResultLimit is the number of hits returned by a post search.
	SearchResultLimit = 20
)
