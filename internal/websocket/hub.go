package websocket

import (
	"sort"
	"sync"

	"github.com/peterskelv123-tech/backend-offline/internal/metrics"
	"github.com/rs/zerolog"
)

// Hub is the registry of live connections. It knows which connection
// belongs to which student, which connections are admins, and which
// connections belong to each exam's group.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	admins   map[string]*Client
	students map[string]*Client
	exams    map[int64]map[string]*Client
	log      zerolog.Logger
}

// NewHub creates an empty Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		admins:   make(map[string]*Client),
		students: make(map[string]*Client),
		exams:    make(map[int64]map[string]*Client),
		log:      log.With().Str("component", "ws_hub").Logger(),
	}
}

// Register adds a freshly upgraded connection.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.updateGauges()
}

// Unregister removes a connection from every group. A student mapping is
// only dropped when it still points at this connection.
func (h *Hub) Unregister(c *Client) {
	studentID, examID, _ := c.Identity()

	h.mu.Lock()
	delete(h.clients, c.id)
	delete(h.admins, c.id)
	if studentID != "" && h.students[studentID] == c {
		delete(h.students, studentID)
	}
	h.leaveExamLocked(examID, c.id)
	h.mu.Unlock()

	c.Close()
	h.updateGauges()
}

// JoinAdmins adds a connection to the admin group.
func (h *Hub) JoinAdmins(connID string) bool {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if ok {
		c.markAdmin()
		h.admins[connID] = c
	}
	h.mu.Unlock()
	h.updateGauges()
	return ok
}

// BindStudent maps a student to a connection and moves the connection into
// the exam's group. A newer connection for the same student replaces the
// older one.
func (h *Hub) BindStudent(connID, studentID string, examID int64) bool {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if ok {
		prevStudent, prevExam := c.bindStudent(studentID, examID)
		if prevStudent != "" && prevStudent != studentID && h.students[prevStudent] == c {
			delete(h.students, prevStudent)
		}
		if prevExam != examID {
			h.leaveExamLocked(prevExam, connID)
		}
		h.students[studentID] = c
		group, exists := h.exams[examID]
		if !exists {
			group = make(map[string]*Client)
			h.exams[examID] = group
		}
		group[connID] = c
	}
	h.mu.Unlock()
	h.updateGauges()
	return ok
}

// IsStudentConnected reports whether the student has a live connection.
func (h *Hub) IsStudentConnected(studentID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.students[studentID]
	return ok
}

// StudentIDs returns the connected student ids, sorted.
func (h *Hub) StudentIDs() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.students))
	for id := range h.students {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// AdminCount returns the number of admin connections.
func (h *Hub) AdminCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.admins)
}

// SendTo queues a frame for one connection.
func (h *Hub) SendTo(connID string, event Event, data any) bool {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return c.Send(event, data)
}

// SendToStudent queues a frame for a student's live connection.
func (h *Hub) SendToStudent(studentID string, event Event, data any) bool {
	h.mu.RLock()
	c, ok := h.students[studentID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return c.Send(event, data)
}

// BroadcastAdmins queues a frame for every admin connection.
func (h *Hub) BroadcastAdmins(event Event, data any) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.admins))
	for _, c := range h.admins {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	h.broadcast(targets, event, data)
}

// BroadcastExam queues a frame for every connection in an exam's group.
func (h *Hub) BroadcastExam(examID int64, event Event, data any) {
	h.mu.RLock()
	group := h.exams[examID]
	targets := make([]*Client, 0, len(group))
	for _, c := range group {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	h.broadcast(targets, event, data)
}

func (h *Hub) broadcast(targets []*Client, event Event, data any) {
	if len(targets) == 0 {
		return
	}
	payload, err := Encode(event, data)
	if err != nil {
		h.log.Error().Err(err).Str("event", string(event)).Msg("failed to encode broadcast")
		return
	}
	for _, c := range targets {
		if !c.enqueue(payload) {
			h.log.Warn().Str("conn_id", c.id).Str("event", string(event)).Msg("dropped frame for slow client")
		}
	}
}

func (h *Hub) leaveExamLocked(examID int64, connID string) {
	group, ok := h.exams[examID]
	if !ok {
		return
	}
	delete(group, connID)
	if len(group) == 0 {
		delete(h.exams, examID)
	}
}

func (h *Hub) updateGauges() {
	h.mu.RLock()
	admins, students, total := len(h.admins), len(h.students), len(h.clients)
	h.mu.RUnlock()
	metrics.LiveConnections.WithLabelValues("admin").Set(float64(admins))
	metrics.LiveConnections.WithLabelValues("student").Set(float64(students))
	metrics.LiveConnections.WithLabelValues("all").Set(float64(total))
}
