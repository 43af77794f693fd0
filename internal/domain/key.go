package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParticipantID identifies a chat-platform member. The platform hands these
// out; the engine never mints them.
type ParticipantID int64

// QueueKey identifies the one queue a channel may carry.
type QueueKey struct {
	GuildID   int64 `json:"guild_id"`
	ChannelID int64 `json:"channel_id"`
}

func (k QueueKey) String() string {
	return fmt.Sprintf("%d-%d", k.GuildID, k.ChannelID)
}

// ParseQueueKey parses the "<guild>-<channel>" form used for record names.
func ParseQueueKey(s string) (QueueKey, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return QueueKey{}, fmt.Errorf("invalid queue key %q", s)
	}
	gID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return QueueKey{}, fmt.Errorf("invalid guild id in queue key %q: %w", s, err)
	}
	cID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return QueueKey{}, fmt.Errorf("invalid channel id in queue key %q: %w", s, err)
	}
	return QueueKey{GuildID: gID, ChannelID: cID}, nil
}

// LocationRef points at a joinable voice location. The engine stores and
// forwards these; only the platform layer can act on them.
type LocationRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// MessageRef is an opaque handle to a rendered chat message.
type MessageRef struct {
	ChannelID int64 `json:"channel_id"`
	MessageID int64 `json:"message_id"`
}

// IsZero reports whether the handle has been set.
func (m MessageRef) IsZero() bool {
	return m.MessageID == 0
}
