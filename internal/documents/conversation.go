package documents

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout renders turn timestamps as local "HH:MM:SS DD.MM.YYYY".
const TimestampLayout = "15:04:05 02.01.2006"

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// UnmarshalJSON rejects unknown roles so a stored log is always well formed.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	role := Role(raw)
	if !role.Valid() {
		return fmt.Errorf("unknown conversation role %q", raw)
	}
	*r = role
	return nil
}

// Turn is one message in a conversation log.
type Turn struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// NewTurn stamps a turn with now in local time.
func NewTurn(role Role, content string, now time.Time) Turn {
	return Turn{Role: role, Content: content, Timestamp: now.Local().Format(TimestampLayout)}
}

// EncodeConversation serializes a log for storage. A nil log encodes to nil.
func EncodeConversation(turns []Turn) ([]byte, error) {
	if turns == nil {
		return nil, nil
	}
	return json.Marshal(turns)
}

// DecodeConversation parses a stored log. Empty input means no log.
func DecodeConversation(raw []byte) ([]Turn, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	turns := []Turn{}
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return turns, nil
}
