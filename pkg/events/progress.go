package events

import (
	"context"

	"github.com/google/uuid"
)

// ProgressKind discriminates the progress frames pushed to a connected client.
type ProgressKind string

const (
	// ProgressIngestLog is a transient status line during document indexing
	// ("Processing batch 2 of 5...").
	ProgressIngestLog ProgressKind = "ingestLog"

	// ProgressChatLog is a transient status line during answer generation
	// ("Searching the document...").
	ProgressChatLog ProgressKind = "chatLog"

	// ProgressChatMessage carries a finished assistant message.
	ProgressChatMessage ProgressKind = "chatMessage"

	// ProgressNewConversation announces a conversation that just became
	// queryable, so clients can refresh their sidebar.
	ProgressNewConversation ProgressKind = "newConversation"
)

// ProgressEvent is one frame addressed to a single user.
type ProgressEvent struct {
	UserId         uuid.UUID              `json:"user_id"`
	ConversationId uuid.UUID              `json:"conversation_id"`
	Kind           ProgressKind           `json:"kind"`
	Message        string                 `json:"message"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

// ProgressNotifier publishes progress frames toward whatever transport
// delivers them to the user (in-process bus, websocket, ...). Implementations
// must be safe for concurrent use and must not block indexing on slow
// consumers.
type ProgressNotifier interface {
	Notify(ctx context.Context, event ProgressEvent) error
}

// NopNotifier discards every frame. Useful where progress reporting is
// optional, e.g. CLI tools and tests.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, event ProgressEvent) error {
	return nil
}
