// Package inmemdb keeps the core repositories in process memory. It backs the dev server and API tests.
package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/campus/core/chatbot"
	"github.com/trezcool/campus/core/notification"
)

type (
	DB struct {
		conversation *conversationTable
		notification *notificationTable
		portal       *portalTables
	}

	conversationTable struct {
		mutex sync.RWMutex
		pk    int64
		table []chatbot.ConversationTurn
	}

	notificationTable struct {
		mutex    sync.RWMutex
		logPK    int64
		requests map[string]*claimedRequest
		log      []notification.LogEntry
		inApp    []*notification.InAppNotification
	}

	claimedRequest struct {
		notification.Request
		claimToken string
		claimedAt  time.Time
	}

	// portalTables hold the records the assistant only reads.
	portalTables struct {
		mutex       sync.RWMutex
		contacts    map[string]Contact
		fees        map[string][]Fee
		assignments []Assignment
		grades      map[string][]chatbot.Grade
	}
)

func Open() *DB {
	return &DB{
		conversation: &conversationTable{},
		notification: &notificationTable{requests: make(map[string]*claimedRequest)},
		portal: &portalTables{
			contacts: make(map[string]Contact),
			fees:     make(map[string][]Fee),
			grades:   make(map[string][]chatbot.Grade),
		},
	}
}
