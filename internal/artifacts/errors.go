package artifacts

import (
	"fmt"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// ErrNoHistory is returned when a session has no messages to derive from.
// It carries the validation kind so HTTP handlers map it to a 400.
var ErrNoHistory = fmt.Errorf("no chat history for session: %w", store.ErrValidation)
