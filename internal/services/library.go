package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Song is one entry in a loaded song catalog.
type Song struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	RomanizedTitle  string `json:"romanizedTitle,omitempty"`
	RomanizedArtist string `json:"romanizedArtist,omitempty"`
}

// Library is a song catalog for one game, loaded from a JSON file.
type Library struct {
	ID    string `json:"game_id"`
	Title string `json:"game_title"`
	Year  int    `json:"game_year"`
	Songs []Song `json:"songs"`
}

var libraryIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// LibraryService loads song catalogs from disk and resolves free-text queries
// against the currently loaded one. Safe for concurrent use.
type LibraryService struct {
	dir string

	mu      sync.RWMutex
	current *Library
}

// NewLibraryService creates a LibraryService reading catalogs from dir.
func NewLibraryService(dir string) *LibraryService {
	return &LibraryService{dir: dir}
}

// Load reads and activates the catalog with the given id (file <dir>/<id>.json).
func (s *LibraryService) Load(id string) (*Library, error) {
	if !libraryIDPattern.MatchString(id) {
		return nil, fmt.Errorf("invalid library id %q", id)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read library %q: %w", id, err)
	}

	var lib Library
	if err := json.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("failed to parse library %q: %w", id, err)
	}
	if lib.ID == "" {
		lib.ID = id
	}

	s.mu.Lock()
	s.current = &lib
	s.mu.Unlock()

	return &lib, nil
}

// Current returns the active catalog, or nil if none is loaded.
func (s *LibraryService) Current() *Library {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// FindSong resolves a free-text query against the active catalog. Every word
// of the query must appear in the title, artist, romanized title, romanized
// artist, or id of a song (case-insensitive). Returns nil when no library is
// loaded or nothing matches.
func (s *LibraryService) FindSong(query string) *Song {
	lib := s.Current()
	if lib == nil {
		return nil
	}

	words := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(words) == 0 {
		return nil
	}

	for i := range lib.Songs {
		song := &lib.Songs[i]
		title := strings.ToLower(song.Title)
		artist := strings.ToLower(song.Artist)
		romanTitle := strings.ToLower(song.RomanizedTitle)
		romanArtist := strings.ToLower(song.RomanizedArtist)
		id := strings.ToLower(song.ID)

		matched := true
		for _, word := range words {
			if !strings.Contains(title, word) &&
				!strings.Contains(romanTitle, word) &&
				!strings.Contains(artist, word) &&
				!strings.Contains(romanArtist, word) &&
				!strings.Contains(id, word) {
				matched = false
				break
			}
		}
		if matched {
			return song
		}
	}
	return nil
}
