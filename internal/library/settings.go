package library

import (
	"context"

	"shelfkeep/internal/model"
)

// SettingsPatch is a partial settings update; nil fields are left untouched.
type SettingsPatch struct {
	ColorMode       *string
	Theme           *string
	Locale          *string
	StorageRoot     *string
	DefaultView     *string
	ActiveFilter    *model.FilterState
	FavoriteFolders *[]string
}

// Settings returns a copy of the cached settings document, or nil before
// Initialize.
func (s *Store) Settings() *model.SettingsDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil
	}
	return copySettings(s.settings)
}

// UpdateSettings merges the patch and schedules the settings write.
func (s *Store) UpdateSettings(ctx context.Context, patch SettingsPatch) (*model.SettingsDocument, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if patch.ColorMode != nil {
		s.settings.ColorMode = *patch.ColorMode
	}
	if patch.Theme != nil {
		s.settings.Theme = *patch.Theme
	}
	if patch.Locale != nil {
		s.settings.Locale = *patch.Locale
	}
	if patch.StorageRoot != nil {
		s.settings.StorageRoot = *patch.StorageRoot
	}
	if patch.DefaultView != nil {
		s.settings.DefaultView = *patch.DefaultView
	}
	if patch.ActiveFilter != nil {
		s.settings.ActiveFilter = *patch.ActiveFilter
	}
	if patch.FavoriteFolders != nil {
		s.settings.FavoriteFolders = dedupe(*patch.FavoriteFolders)
	}
	out := copySettings(s.settings)
	s.mu.Unlock()

	s.setScheduler.Schedule()
	return out, nil
}

// RecordRecentFile moves path to the front of the recent-file list, bounded
// by the configured maximum.
func (s *Store) RecordRecentFile(ctx context.Context, path string) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	s.mu.Lock()
	recent := make([]string, 0, len(s.settings.RecentFiles)+1)
	recent = append(recent, path)
	for _, p := range s.settings.RecentFiles {
		if p != path {
			recent = append(recent, p)
		}
	}
	if len(recent) > s.recentMax {
		recent = recent[:s.recentMax]
	}
	s.settings.RecentFiles = recent
	s.mu.Unlock()

	s.setScheduler.Schedule()
	return nil
}
