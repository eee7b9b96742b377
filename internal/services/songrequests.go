package services

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mainstage/backend/internal/models"
)

// Business-rule rejection codes for the song request system. These are
// expected outcomes returned as typed results, never errors.
const (
	CodeRequestsClosed  = "REQUESTS_CLOSED"
	CodeNoLibrary       = "NO_LIBRARY_LOADED"
	CodeSongNotFound    = "SONG_NOT_FOUND"
	CodeDuplicate       = "DUPLICATE"
	CodeSubmitterLimit  = "SUBMITTER_LIMIT"
	CodeEmpty           = "EMPTY"
	CodeCooldownActive  = "COOLDOWN_ACTIVE"
	CodeBlocked         = "BLOCKED"
	CodeAlreadyInTeam   = "ALREADY_REGISTERED"
)

// Broadcaster delivers events to all live subscribers. Satisfied by *hub.Hub.
type Broadcaster interface {
	Broadcast(models.Event)
}

// RequestResult is the outcome of a song request.
type RequestResult struct {
	Success bool
	Code    string
	Message string
	Entry   *models.QueueEntry
}

// RemoveResult is the outcome of removing the head of the queue.
type RemoveResult struct {
	Success bool
	Code    string
	Message string
	Played  *models.QueueEntry
	Next    *models.QueueEntry
}

// ToggleResult is the outcome of opening or closing requests.
type ToggleResult struct {
	Success      bool
	Code         string
	Message      string
	RequestsOpen bool
}

// SongRequestService owns the pending request queue. All mutations run under
// one mutex so the dedup-check-then-insert and the head removal are atomic
// with respect to concurrent callers. The queue is never persisted; it is
// created empty at process start or explicit clear.
type SongRequestService struct {
	library    *LibraryService
	hub        Broadcaster
	maxPerUser int

	mu           sync.Mutex
	queue        []models.QueueEntry
	requestsOpen bool
}

// NewSongRequestService creates the service with an empty queue and requests closed.
func NewSongRequestService(library *LibraryService, hub Broadcaster, maxPerUser int) *SongRequestService {
	if maxPerUser <= 0 {
		maxPerUser = 3
	}
	return &SongRequestService{
		library:    library,
		hub:        hub,
		maxPerUser: maxPerUser,
	}
}

// Request resolves a free-text query against the active library and enqueues
// the match for userName. Rejections (closed, no library, not found,
// duplicate, submitter limit) come back as typed results.
func (s *SongRequestService) Request(query, userName string, avatar *string) RequestResult {
	s.mu.Lock()
	open := s.requestsOpen
	s.mu.Unlock()

	if !open {
		return RequestResult{Code: CodeRequestsClosed, Message: "Requests are not currently open."}
	}

	if s.library.Current() == nil {
		return RequestResult{Code: CodeNoLibrary, Message: "No song library initialized."}
	}

	song := s.library.FindSong(query)
	if song == nil {
		return RequestResult{
			Code:    CodeSongNotFound,
			Message: fmt.Sprintf("Sorry, no songs matched %q. The song you requested may not be in the current library.", query),
		}
	}

	return s.Enqueue(*song, userName, avatar)
}

// Enqueue appends a resolved song for userName. The duplicate check, the
// per-submitter count, and the append are one critical section.
func (s *SongRequestService) Enqueue(song Song, userName string, avatar *string) RequestResult {
	s.mu.Lock()

	for _, queued := range s.queue {
		if queued.ID == song.ID {
			s.mu.Unlock()
			return RequestResult{
				Code:    CodeDuplicate,
				Message: fmt.Sprintf("This song is already in queue: [%s / %s]", song.Title, song.Artist),
			}
		}
	}

	userCount := 0
	for _, queued := range s.queue {
		if queued.User == userName {
			userCount++
		}
	}
	if userCount >= s.maxPerUser {
		max := s.maxPerUser
		s.mu.Unlock()
		return RequestResult{
			Code:    CodeSubmitterLimit,
			Message: fmt.Sprintf("Maximum %d requests per user are allowed at a time, please wait and try again.", max),
		}
	}

	entry := models.QueueEntry{
		ID:     song.ID,
		Title:  song.Title,
		Artist: song.Artist,
		User:   userName,
		Avatar: avatar,
	}
	s.queue = append(s.queue, entry)
	s.mu.Unlock()

	slog.Info("song request added",
		slog.String("song_id", entry.ID),
		slog.String("title", entry.Title),
		slog.String("user", userName))

	song2 := entry
	s.hub.Broadcast(models.Event{Type: models.EventAddSong, Song: &song2})
	s.statusRelay()

	return RequestResult{
		Success: true,
		Message: fmt.Sprintf("Request has been added: [%s / %s]", entry.Title, entry.Artist),
		Entry:   &entry,
	}
}

// Remove pops the head of the queue (the song just played) and reports the
// new head. An empty queue is a typed rejection and broadcasts nothing.
func (s *SongRequestService) Remove() RemoveResult {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return RemoveResult{Code: CodeEmpty, Message: "Queue is empty"}
	}

	played := s.queue[0]
	s.queue = s.queue[1:]
	var next *models.QueueEntry
	if len(s.queue) > 0 {
		n := s.queue[0]
		next = &n
	}
	s.mu.Unlock()

	slog.Info("song request fulfilled", slog.String("song_id", played.ID), slog.String("title", played.Title))

	s.hub.Broadcast(models.Event{Type: models.EventRemoveSong})
	s.statusRelay()

	return RemoveResult{Success: true, Played: &played, Next: next}
}

// Snapshot returns a copy of the queue in play order.
func (s *SongRequestService) Snapshot() []models.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.QueueEntry, len(s.queue))
	copy(out, s.queue)
	return out
}

// Clear empties the queue and relays the new status.
func (s *SongRequestService) Clear() {
	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()

	slog.Info("song request queue cleared")
	s.statusRelay()
}

// SetRequestsOpen toggles request acceptance. Opening requires a loaded library.
func (s *SongRequestService) SetRequestsOpen(open bool) ToggleResult {
	if open && s.library.Current() == nil {
		return ToggleResult{
			Code:    CodeNoLibrary,
			Message: "Cannot open requests without initializing a library.",
		}
	}

	s.mu.Lock()
	s.requestsOpen = open
	s.mu.Unlock()

	eventType := models.EventRequestModeOff
	state := "closed"
	if open {
		eventType = models.EventRequestModeOn
		state = "open"
	}
	s.hub.Broadcast(models.Event{Type: eventType})
	s.statusRelay()

	return ToggleResult{
		Success:      true,
		RequestsOpen: open,
		Message:      fmt.Sprintf("Requests are now %s.", state),
	}
}

// RequestsOpen reports whether requests are currently accepted.
func (s *SongRequestService) RequestsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestsOpen
}

// Status returns the full request-system snapshot.
func (s *SongRequestService) Status() models.QueueStatus {
	lib := s.library.Current()
	queue := s.Snapshot()

	s.mu.Lock()
	open := s.requestsOpen
	s.mu.Unlock()

	if lib == nil {
		return models.QueueStatus{
			Status:  false,
			Message: "No library initialized.",
			Queue:   []models.QueueEntry{},
		}
	}

	id := lib.ID
	return models.QueueStatus{
		Status:       true,
		Message:      fmt.Sprintf("Now playing: %s", lib.Title),
		ID:           &id,
		Title:        lib.Title,
		Year:         lib.Year,
		SongCount:    len(lib.Songs),
		RequestsOpen: open,
		QueueLength:  len(queue),
		Queue:        queue,
	}
}

// statusRelay broadcasts the full status snapshot to all subscribers.
// Skipped when no library is loaded, matching client expectations.
func (s *SongRequestService) statusRelay() {
	if s.library.Current() == nil {
		return
	}
	status := s.Status()
	s.hub.Broadcast(models.Event{Type: models.EventMainframeRelay, SRS: &status})
}
