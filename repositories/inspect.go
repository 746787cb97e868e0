package repositories

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/mama165/sdk-go/database"
)

// InspectRecord renders Badger records for the debug inspector.
func InspectRecord(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	kind, _, _ := strings.Cut(key, ":")

	switch kind {
	case "msg":
		var m domain.Message
		if err := json.Unmarshal(val, &m); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "MESSAGE"
		row.Detail = fmt.Sprintf("[#%d] %s", m.ChannelID, m.ResolvedContent)
		if m.SenderPersonaID != nil {
			row.Detail = fmt.Sprintf("[#%d] %s: %s", m.ChannelID, *m.SenderPersonaID, m.ResolvedContent)
		}
	case "persona":
		var p domain.Persona
		if err := json.Unmarshal(val, &p); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "PERSONA"
		row.Detail = p.DisplayName
		if p.IsAutomated && p.Automated != nil {
			row.Type = "RESPONDER"
			row.Detail = fmt.Sprintf("%s (%s)", p.DisplayName, p.Automated.Provider)
		}
	case "channel":
		var c domain.Channel
		if err := json.Unmarshal(val, &c); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "CHANNEL"
		row.Detail = c.Name
	case "personaidx":
		row.Type = "INDEX"
		row.Detail = string(val)
	case "front":
		row.Type = "FRONT"
	}
	return row
}
