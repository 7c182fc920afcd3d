package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"thoughtbox/internal/config"
	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models/thought"
)

// Sidebar geometry for the selected-version indicator.
const (
	CoreEntryHeight    = 56
	VersionEntryHeight = 40
	EntryGap           = 4
)

// Indicator is the highlight bar next to the selected version.
type Indicator struct {
	Visible bool    `json:"visible"`
	Top     float64 `json:"top"`
	Height  float64 `json:"height"`
}

type VersionEntry struct {
	ID                  string              `json:"id"`
	Label               string              `json:"label"`
	VersionNumber       int                 `json:"version_number"`
	IsCore              bool                `json:"is_core"`
	Title               string              `json:"title"`
	ChangeLabel         thought.ChangeLabel `json:"change_label,omitempty"`
	ParentVersionNumber *int                `json:"parent_version_number,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
}

type VersionsView struct {
	Entries    []VersionEntry `json:"entries"`
	SelectedID string         `json:"selected_id,omitempty"`
	Indicator  Indicator      `json:"indicator"`
	CanCreate  bool           `json:"can_create"`
}

// VersionController holds the version sidebar: the ordered list (core
// first) and which entry is selected.
type VersionController struct {
	entries    []thought.Version
	selectedID string
	indicator  Indicator
}

func (c *VersionController) set(list []thought.Version, selectedID string) {
	c.entries = make([]thought.Version, len(list))
	copy(c.entries, list)
	c.selectedID = selectedID
	c.reposition()
}

func (c *VersionController) selectID(id string) {
	c.selectedID = id
	c.reposition()
}

// reposition moves the indicator onto the selected entry.
func (c *VersionController) reposition() {
	top := 0.0
	for _, v := range c.entries {
		h := float64(VersionEntryHeight)
		if v.IsCore {
			h = CoreEntryHeight
		}
		if v.ID == c.selectedID {
			c.indicator = Indicator{Visible: true, Top: top, Height: h}
			return
		}
		top += h + EntryGap
	}
	c.indicator = Indicator{}
}

func (c *VersionController) find(id string) (thought.Version, bool) {
	for _, v := range c.entries {
		if v.ID == id {
			return v, true
		}
	}
	return thought.Version{}, false
}

func (c *VersionController) nonCore() int {
	n := 0
	for _, v := range c.entries {
		if !v.IsCore {
			n++
		}
	}
	return n
}

func entryLabel(v thought.Version) string {
	if v.IsCore {
		return "Core"
	}
	return fmt.Sprintf("V%d", v.VersionNumber)
}

func (c *VersionController) View() VersionsView {
	entries := make([]VersionEntry, 0, len(c.entries))
	for _, v := range c.entries {
		entries = append(entries, VersionEntry{
			ID:                  v.ID,
			Label:               entryLabel(v),
			VersionNumber:       v.VersionNumber,
			IsCore:              v.IsCore,
			Title:               v.Title,
			ChangeLabel:         v.ChangeLabel,
			ParentVersionNumber: v.ParentVersionNumber,
			CreatedAt:           v.CreatedAt,
		})
	}
	return VersionsView{
		Entries:    entries,
		SelectedID: c.selectedID,
		Indicator:  c.indicator,
		CanCreate:  len(c.entries) > 0 && c.nonCore() < config.MaxVersionsPerThought,
	}
}

// settled reports whether no store write is pending. Must hold mu.
func (s *Session) settled() bool {
	st := s.status.Status()
	return (st == StatusIdle || st == StatusSaved) && !s.switching && !s.needsReload
}

// SwitchVersion makes another version the selected one. The current
// content is flushed first, then the selection pointer moves, then the
// target's content is loaded. It is refused unless the session is idle or
// freshly saved, and any failed step leaves the session in error.
func (s *Session) SwitchVersion(ctx context.Context, versionID string) error {
	s.mu.Lock()
	if s.thoughtID == "" {
		s.mu.Unlock()
		return domain.Rejected("thought has not been saved yet")
	}
	if !s.settled() {
		s.mu.Unlock()
		return domain.Rejected("cannot switch versions while a save is pending")
	}
	if versionID == s.versions.selectedID {
		s.mu.Unlock()
		return nil
	}
	if _, ok := s.versions.find(versionID); !ok {
		s.mu.Unlock()
		return &domain.NotFoundError{Message: "version not found: " + versionID}
	}
	thoughtID, doc := s.thoughtID, s.doc.Clone()
	s.switching = true
	s.status.Dispatch(ActionSave)
	s.mu.Unlock()

	moved := false
	err := s.store.UpdateThoughtContent(ctx, thoughtID, doc)
	if err == nil {
		err = s.store.SetSelectedVersion(ctx, thoughtID, versionID)
		moved = err == nil
	}
	var target *thought.Version
	if err == nil {
		target, err = s.store.GetSelectedVersion(ctx, thoughtID)
		if err == nil && (target == nil || target.ID != versionID) {
			err = fmt.Errorf("selected version did not change to %s", versionID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.switching = false
	if err != nil {
		if moved {
			// The pointer now names a version whose content we do not
			// hold; saving the old document would overwrite it.
			s.needsReload = true
			s.versions.selectID(versionID)
		}
		s.status.Dispatch(ActionSaveFailed)
		s.logger.Error("switch version failed", "thought_id", thoughtID, "version_id", versionID, "error", err)
		return err
	}
	s.versions.selectID(target.ID)
	s.replaceDoc(target.Content)
	s.status.Dispatch(ActionContentLoaded)
	return nil
}

// CreateVersion snapshots the current document as a new version. It is
// refused while another creation is in flight or the cap is reached.
func (s *Session) CreateVersion(ctx context.Context) (*thought.Version, error) {
	s.mu.Lock()
	switch {
	case s.thoughtID == "":
		s.mu.Unlock()
		return nil, domain.Rejected("thought has not been saved yet")
	case s.creatingVersion:
		s.mu.Unlock()
		return nil, domain.Rejected("version creation already in progress")
	case s.versions.nonCore() >= config.MaxVersionsPerThought:
		s.mu.Unlock()
		return nil, domain.Rejected(fmt.Sprintf("a thought can have at most %d versions", config.MaxVersionsPerThought))
	}
	thoughtID, doc := s.thoughtID, s.doc.Clone()
	s.creatingVersion = true
	s.mu.Unlock()

	v, err := s.store.CreateVersion(ctx, thoughtID, doc)
	var list []thought.Version
	if err == nil {
		list, err = s.store.GetThoughtVersions(ctx, thoughtID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creatingVersion = false
	if err != nil {
		if !errors.Is(err, domain.ErrRejected) {
			s.status.Dispatch(ActionSaveFailed)
			s.logger.Error("create version failed", "thought_id", thoughtID, "error", err)
		}
		return nil, err
	}
	s.versions.set(list, s.versions.selectedID)
	return v, nil
}

// DeleteVersion removes a non-core version. Deleting the selected version
// falls back to core and loads its content.
func (s *Session) DeleteVersion(ctx context.Context, versionID string) error {
	s.mu.Lock()
	if s.thoughtID == "" {
		s.mu.Unlock()
		return domain.Rejected("thought has not been saved yet")
	}
	if !s.settled() {
		s.mu.Unlock()
		return domain.Rejected("cannot delete versions while a save is pending")
	}
	v, ok := s.versions.find(versionID)
	if !ok {
		s.mu.Unlock()
		return &domain.NotFoundError{Message: "version not found: " + versionID}
	}
	if v.IsCore {
		s.mu.Unlock()
		return domain.Rejected("the core version cannot be deleted")
	}
	thoughtID := s.thoughtID
	wasSelected := versionID == s.versions.selectedID
	s.switching = true
	s.mu.Unlock()

	err := s.store.DeleteVersion(ctx, thoughtID, versionID)
	var (
		list     []thought.Version
		selected *thought.Version
	)
	if err == nil {
		list, selected, err = s.fetchVersions(ctx, thoughtID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.switching = false
	if err != nil {
		if !errors.Is(err, domain.ErrRejected) {
			s.status.Dispatch(ActionSaveFailed)
			s.logger.Error("delete version failed", "thought_id", thoughtID, "version_id", versionID, "error", err)
		}
		return err
	}
	s.applyVersions(list, selected)
	if wasSelected && selected != nil {
		s.replaceDoc(selected.Content)
		s.status.Dispatch(ActionContentLoaded)
	}
	return nil
}
