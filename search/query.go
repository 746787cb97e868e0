package search

import (
	"strconv"
	"strings"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

// Query is a history search parsed from command arguments.
type Query struct {
	RawInput  string            // The arguments as typed
	Terms     string            // Free text matched against message content
	ChannelID *domain.ChannelID // Restricts the search to one channel
	Limit     int
}

// NewSearchQuery parses command-line style arguments.
// Example: /search "invoice" --channel 2 --limit 5
func NewSearchQuery(input string) Query {
	query := Query{
		RawInput: input,
		Limit:    defaultLimit,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		// Flags like --channel 4 or --limit 20
		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val, err := strconv.Atoi(parts[i+1])
			if err == nil {
				switch key {
				case "channel":
					ch := domain.ChannelID(val)
					query.ChannelID = &ch
				case "limit":
					query.Limit = min(max(val, 1), maxLimit)
				}
			}
			i++
			continue
		}

		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, strings.Trim(part, `"`))
		}
	}

	query.Terms = strings.TrimSpace(strings.Join(textTerms, " "))
	return query
}
