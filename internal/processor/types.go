package processor

import (
	"database/sql"

	"github.com/mauv0809/matchledger/internal/clock"
	"github.com/mauv0809/matchledger/internal/pubsub"
)

// Processor turns domain events into announcements.
type Processor struct {
	store    Store
	pubsub   pubsub.PubSubClient
	notifier Notifier
	clock    clock.Clock
}

type store struct {
	db *sql.DB
}
