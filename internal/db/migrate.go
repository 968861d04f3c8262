package db

import (
	"fmt"

	"github.com/zulandar/querybar/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the GORM models used by the demo app.
func AllModels() []interface{} {
	return []interface{}{
		&models.Note{},
		&models.Comment{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedNote is the fixture form of a note and its comments.
type SeedNote struct {
	Title    string
	Author   string
	Body     string
	Comments []string
}

// DefaultSeed is written by SeedNotes when no fixtures are given.
var DefaultSeed = []SeedNote{
	{
		Title:  "Indexes first",
		Author: "alice",
		Body:   "Check the query plan before adding a cache.",
		Comments: []string{
			"EXPLAIN saved my afternoon.",
			"Composite index order matters.",
		},
	},
	{
		Title:    "N+1 in the list view",
		Author:   "bob",
		Body:     "The note list loads comments one note at a time.",
		Comments: []string{"Preload fixes it.", "Visible in the query panel right away."},
	},
	{
		Title:  "Quoting 'strings' safely",
		Author: "carol",
		Body:   "Bound parameters keep <markup> and quotes out of SQL text.",
	},
}

// SeedNotes upserts notes by title and replaces their comments.
func SeedNotes(db *gorm.DB, seed []SeedNote) error {
	if seed == nil {
		seed = DefaultSeed
	}
	for _, s := range seed {
		note := models.Note{Title: s.Title, Author: s.Author, Body: s.Body}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "title"}},
			DoUpdates: clause.AssignmentColumns([]string{"author", "body", "updated_at"}),
		}).Create(&note)
		if result.Error != nil {
			return fmt.Errorf("db: seed note %q: %w", s.Title, result.Error)
		}
		if err := db.Where("title = ?", s.Title).First(&note).Error; err != nil {
			return fmt.Errorf("db: reload note %q: %w", s.Title, err)
		}
		if err := db.Where("note_id = ?", note.ID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("db: clear comments for %q: %w", s.Title, err)
		}
		for _, body := range s.Comments {
			c := models.Comment{NoteID: note.ID, Author: s.Author, Body: body}
			if err := db.Create(&c).Error; err != nil {
				return fmt.Errorf("db: seed comment for %q: %w", s.Title, err)
			}
		}
	}
	return nil
}
