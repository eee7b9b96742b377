package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mainstage/backend/internal/models"
)

// fakeHub records broadcast events for assertions. Shared by the service
// tests in this package.
type fakeHub struct {
	mu     sync.Mutex
	events []models.Event
}

func (f *fakeHub) Broadcast(e models.Event) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

func (f *fakeHub) eventTypes() []models.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]models.EventType, len(f.events))
	for i, e := range f.events {
		types[i] = e.Type
	}
	return types
}

func (f *fakeHub) count(t models.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func writeTestLibrary(t *testing.T, songs []Song) *LibraryService {
	t.Helper()
	dir := t.TempDir()

	lib := Library{ID: "testlib", Title: "Test Library", Year: 2024, Songs: songs}
	data, err := json.Marshal(lib)
	if err != nil {
		t.Fatalf("failed to marshal library: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "testlib.json"), data, 0o644); err != nil {
		t.Fatalf("failed to write library: %v", err)
	}

	svc := NewLibraryService(dir)
	if _, err := svc.Load("testlib"); err != nil {
		t.Fatalf("failed to load library: %v", err)
	}
	return svc
}

func testSongs() []Song {
	return []Song{
		{ID: "freebird", Title: "Free Bird", Artist: "Lynyrd Skynyrd"},
		{ID: "stairway", Title: "Stairway to Heaven", Artist: "Led Zeppelin"},
		{ID: "gurenge", Title: "Gurenge", Artist: "LiSA", RomanizedTitle: "Gurenge"},
		{ID: "africa", Title: "Africa", Artist: "Toto"},
		{ID: "odyssey", Title: "Odyssey", Artist: "Toto"},
	}
}

func newTestSRS(t *testing.T) (*SongRequestService, *fakeHub) {
	t.Helper()
	hub := &fakeHub{}
	library := writeTestLibrary(t, testSongs())
	srs := NewSongRequestService(library, hub, 3)
	srs.SetRequestsOpen(true)
	return srs, hub
}

func TestRequest_Success(t *testing.T) {
	srs, hub := newTestSRS(t)

	result := srs.Request("free bird", "viewer1", nil)
	if !result.Success {
		t.Fatalf("Request failed: %s (%s)", result.Message, result.Code)
	}
	if result.Entry.ID != "freebird" {
		t.Errorf("Entry.ID = %q, want %q", result.Entry.ID, "freebird")
	}
	if hub.count(models.EventAddSong) != 1 {
		t.Errorf("ADD_SONG broadcasts = %d, want 1", hub.count(models.EventAddSong))
	}
}

func TestRequest_CaseInsensitiveDuplicate(t *testing.T) {
	srs, _ := newTestSRS(t)

	if result := srs.Request("FREE BIRD", "viewer1", nil); !result.Success {
		t.Fatalf("first request failed: %s", result.Message)
	}

	// Different casing and wording still resolve to the same song.
	result := srs.Request("free bird lynyrd", "viewer2", nil)
	if result.Success {
		t.Fatal("expected duplicate rejection")
	}
	if result.Code != CodeDuplicate {
		t.Errorf("Code = %q, want %q", result.Code, CodeDuplicate)
	}
}

func TestRequest_SubmitterLimit(t *testing.T) {
	srs, hub := newTestSRS(t)

	queries := []string{"free bird", "stairway", "gurenge"}
	for _, q := range queries {
		if result := srs.Request(q, "greedy", nil); !result.Success {
			t.Fatalf("request %q failed: %s", q, result.Message)
		}
	}

	result := srs.Request("africa", "greedy", nil)
	if result.Success {
		t.Fatal("expected submitter limit rejection")
	}
	if result.Code != CodeSubmitterLimit {
		t.Errorf("Code = %q, want %q", result.Code, CodeSubmitterLimit)
	}

	// A different submitter is unaffected.
	if result := srs.Request("africa", "other", nil); !result.Success {
		t.Fatalf("other user's request failed: %s", result.Message)
	}

	if got := hub.count(models.EventAddSong); got != 4 {
		t.Errorf("ADD_SONG broadcasts = %d, want 4", got)
	}
}

func TestRequest_ClosedAndNotFound(t *testing.T) {
	srs, _ := newTestSRS(t)

	if result := srs.Request("no such song anywhere", "viewer1", nil); result.Code != CodeSongNotFound {
		t.Errorf("Code = %q, want %q", result.Code, CodeSongNotFound)
	}

	srs.SetRequestsOpen(false)
	if result := srs.Request("free bird", "viewer1", nil); result.Code != CodeRequestsClosed {
		t.Errorf("Code = %q, want %q", result.Code, CodeRequestsClosed)
	}
}

func TestRequest_NoLibrary(t *testing.T) {
	hub := &fakeHub{}
	library := NewLibraryService(t.TempDir())
	srs := NewSongRequestService(library, hub, 3)

	if result := srs.SetRequestsOpen(true); result.Success {
		t.Fatal("expected toggle rejection without a library")
	} else if result.Code != CodeNoLibrary {
		t.Errorf("Code = %q, want %q", result.Code, CodeNoLibrary)
	}
}

func TestRemove_FIFO(t *testing.T) {
	srs, hub := newTestSRS(t)

	srs.Request("free bird", "a", nil)
	srs.Request("stairway", "b", nil)

	result := srs.Remove()
	if !result.Success {
		t.Fatalf("Remove failed: %s", result.Message)
	}
	if result.Played.ID != "freebird" {
		t.Errorf("Played.ID = %q, want %q", result.Played.ID, "freebird")
	}
	if result.Next == nil || result.Next.ID != "stairway" {
		t.Errorf("Next = %+v, want stairway", result.Next)
	}
	if hub.count(models.EventRemoveSong) != 1 {
		t.Errorf("REMOVE_SONG broadcasts = %d, want 1", hub.count(models.EventRemoveSong))
	}

	result = srs.Remove()
	if result.Played.ID != "stairway" {
		t.Errorf("Played.ID = %q, want %q", result.Played.ID, "stairway")
	}
	if result.Next != nil {
		t.Errorf("Next = %+v, want nil", result.Next)
	}
}

func TestRemove_EmptyBroadcastsNothing(t *testing.T) {
	srs, hub := newTestSRS(t)
	before := len(hub.eventTypes())

	result := srs.Remove()
	if result.Success {
		t.Fatal("expected empty-queue rejection")
	}
	if result.Code != CodeEmpty {
		t.Errorf("Code = %q, want %q", result.Code, CodeEmpty)
	}
	if got := len(hub.eventTypes()); got != before {
		t.Errorf("broadcasts after empty remove = %d, want %d", got, before)
	}
}

func TestSetRequestsOpen_Broadcasts(t *testing.T) {
	srs, hub := newTestSRS(t)

	srs.SetRequestsOpen(false)
	if hub.count(models.EventRequestModeOff) != 1 {
		t.Errorf("REQUEST_MODE_OFF broadcasts = %d, want 1", hub.count(models.EventRequestModeOff))
	}

	srs.SetRequestsOpen(true)
	if hub.count(models.EventRequestModeOn) != 2 {
		t.Errorf("REQUEST_MODE_ON broadcasts = %d, want 2", hub.count(models.EventRequestModeOn))
	}
}

func TestStatus_Snapshot(t *testing.T) {
	srs, _ := newTestSRS(t)
	srs.Request("free bird", "a", nil)
	srs.Request("africa", "b", nil)

	status := srs.Status()
	if !status.Status {
		t.Error("Status.Status = false, want true")
	}
	if status.QueueLength != 2 {
		t.Errorf("QueueLength = %d, want 2", status.QueueLength)
	}
	if !status.RequestsOpen {
		t.Error("RequestsOpen = false, want true")
	}
	if status.SongCount != len(testSongs()) {
		t.Errorf("SongCount = %d, want %d", status.SongCount, len(testSongs()))
	}

	// The snapshot is a copy; mutating it must not touch the queue.
	status.Queue[0].User = "tampered"
	if srs.Snapshot()[0].User != "a" {
		t.Error("snapshot mutation leaked into the queue")
	}
}

func TestEnqueue_ConcurrentDuplicates(t *testing.T) {
	hub := &fakeHub{}
	library := writeTestLibrary(t, testSongs())
	srs := NewSongRequestService(library, hub, 100)
	srs.SetRequestsOpen(true)

	var wg sync.WaitGroup
	successes := make(chan struct{}, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			result := srs.Request("gurenge", fmt.Sprintf("user%d", n), nil)
			if result.Success {
				successes <- struct{}{}
			}
		}(i)
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	if count != 1 {
		t.Errorf("concurrent duplicate requests succeeded %d times, want 1", count)
	}
	if len(srs.Snapshot()) != 1 {
		t.Errorf("queue length = %d, want 1", len(srs.Snapshot()))
	}
}
