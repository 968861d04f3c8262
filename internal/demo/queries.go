package demo

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/querybar/internal/models"
	"gorm.io/gorm"
)

// NoteRow holds note data for the list views.
type NoteRow struct {
	ID           uint
	Title        string
	Author       string
	CommentCount int64
	CreatedAt    time.Time
}

// ListNotes returns all notes, newest first, with their comment counts.
// Counts are loaded one note at a time on purpose: the list page is the
// panel's N+1 example.
func ListNotes(db *gorm.DB) ([]NoteRow, error) {
	if db == nil {
		return []NoteRow{}, nil
	}
	var notes []models.Note
	if err := db.Order("created_at DESC, id DESC").Find(&notes).Error; err != nil {
		return nil, err
	}
	rows := make([]NoteRow, len(notes))
	for i, n := range notes {
		var count int64
		if err := db.Model(&models.Comment{}).Where("note_id = ?", n.ID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("count comments for note %d: %w", n.ID, err)
		}
		rows[i] = NoteRow{ID: n.ID, Title: n.Title, Author: n.Author, CommentCount: count, CreatedAt: n.CreatedAt}
	}
	return rows, nil
}

// GetNote loads one note with its comments.
func GetNote(db *gorm.DB, id uint) (*models.Note, error) {
	var note models.Note
	if err := db.Preload("Comments").First(&note, id).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

// SearchNotes matches q against titles and bodies. An empty query matches
// nothing.
func SearchNotes(db *gorm.DB, q string) ([]NoteRow, error) {
	q = strings.TrimSpace(q)
	if db == nil || q == "" {
		return []NoteRow{}, nil
	}
	var rows []NoteRow
	pattern := "%" + q + "%"
	err := db.Model(&models.Note{}).
		Select("notes.id, notes.title, notes.author, notes.created_at, count(comments.id) as comment_count").
		Joins("LEFT JOIN comments ON comments.note_id = notes.id").
		Where("notes.title LIKE ? OR notes.body LIKE ?", pattern, pattern).
		Group("notes.id, notes.title, notes.author, notes.created_at").
		Order("notes.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TimeAgo renders t relative to now, e.g. "5m ago".
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
