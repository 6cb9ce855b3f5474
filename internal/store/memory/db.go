package memory

import (
	"sync"
	"time"

	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// DB is an in-memory implementation of every store interface. All entity
// stores share one lock so cascade deletes stay consistent.
// This implementation is for testing and development only - data is lost on restart.
type DB struct {
	mu sync.RWMutex

	nextID int64
	now    func() time.Time

	organizations map[int64]*models.Organization
	sites         map[int64]*models.Site
	users         map[int64]*models.User
	agents        map[int64]*models.Agent
	cameras       map[int64]*models.Camera
	events        map[int64]*models.Event
	evidence      map[int64]*models.Evidence
	guests        map[int64]*models.Guest
}

// New creates an empty in-memory database.
func New() *DB {
	return &DB{
		now:           time.Now,
		organizations: make(map[int64]*models.Organization),
		sites:         make(map[int64]*models.Site),
		users:         make(map[int64]*models.User),
		agents:        make(map[int64]*models.Agent),
		cameras:       make(map[int64]*models.Camera),
		events:        make(map[int64]*models.Event),
		evidence:      make(map[int64]*models.Evidence),
		guests:        make(map[int64]*models.Guest),
	}
}

// Stores returns the store bundle backed by this database.
func (db *DB) Stores() store.Stores {
	return store.Stores{
		Organizations: &OrganizationStore{db: db},
		Sites:         &SiteStore{db: db},
		Users:         &UserStore{db: db},
		Agents:        &AgentStore{db: db},
		Cameras:       &CameraStore{db: db},
		Events:        &EventStore{db: db},
		Evidence:      &EvidenceStore{db: db},
		Guests:        &GuestStore{db: db},
	}
}

// id hands out a process-unique id. Callers hold mu.
func (db *DB) id() int64 {
	db.nextID++
	return db.nextID
}

// Cascade helpers. Callers hold mu for writing.

func (db *DB) deleteOrganization(id int64) {
	for siteID, s := range db.sites {
		if s.OrgID == id {
			db.deleteSite(siteID)
		}
	}
	for userID, u := range db.users {
		if u.OrgID == id {
			delete(db.users, userID)
		}
	}
	delete(db.organizations, id)
}

func (db *DB) deleteSite(id int64) {
	for camID, c := range db.cameras {
		if c.SiteID == id {
			db.deleteCamera(camID)
		}
	}
	for agentID, a := range db.agents {
		if a.SiteID == id {
			delete(db.agents, agentID)
		}
	}
	for guestID, g := range db.guests {
		if g.SiteID == id {
			delete(db.guests, guestID)
		}
	}
	for _, u := range db.users {
		if u.SiteID != nil && *u.SiteID == id {
			u.SiteID = nil
		}
	}
	delete(db.sites, id)
}

func (db *DB) deleteCamera(id int64) {
	for eventID, e := range db.events {
		if e.CameraID == id {
			db.deleteEvent(eventID)
		}
	}
	delete(db.cameras, id)
}

func (db *DB) deleteEvent(id int64) {
	for evidenceID, ev := range db.evidence {
		if ev.EventID == id {
			delete(db.evidence, evidenceID)
		}
	}
	delete(db.events, id)
}
