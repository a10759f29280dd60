package discord

import "github.com/keshon/server-herald/internal/commandsync"

type SystemEventType string

const (
	SystemEventRefreshCommands SystemEventType = "refresh_commands"
)

// SystemEvent asks the running bot to do something outside an interaction.
// Done, when set, receives the outcome; it is called from a job goroutine.
type SystemEvent struct {
	Type    SystemEventType
	GuildID string
	Done    func(*commandsync.Report, error)
}

var systemEventBus = make(chan SystemEvent, 16)

// PublishSystemEvent reports false when the bus is full and evt was dropped.
func PublishSystemEvent(evt SystemEvent) bool {
	select {
	case systemEventBus <- evt:
		return true
	default:
		return false
	}
}

func SystemEvents() <-chan SystemEvent {
	return systemEventBus
}
