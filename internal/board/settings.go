package board

import (
	"time"

	"github.com/bekirdag/goal/internal/model"
)

// Settings holds per-quadrant subtitle overrides.
type Settings struct {
	subtitles map[model.Quadrant]string
}

func NewSettings() *Settings {
	return &Settings{subtitles: make(map[model.Quadrant]string)}
}

func (s *Settings) Load(subtitles map[model.Quadrant]string) {
	s.subtitles = make(map[model.Quadrant]string, len(subtitles))
	for q, subtitle := range subtitles {
		s.subtitles[q] = subtitle
	}
}

func (s *Settings) Set(q model.Quadrant, subtitle string) {
	s.subtitles[q] = subtitle
}

func (s *Settings) Clear(q model.Quadrant) {
	delete(s.subtitles, q)
}

// Get reports the override for q; ok is false when none is set.
func (s *Settings) Get(q model.Quadrant) (string, bool) {
	subtitle, ok := s.subtitles[q]
	return subtitle, ok
}

func (s *Settings) Effective(q model.Quadrant, now time.Time) string {
	if subtitle, ok := s.Get(q); ok {
		return subtitle
	}
	return model.DefaultSubtitle(q, now)
}
