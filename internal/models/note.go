package models

import "time"

// Note is a short text entry shown by the demo app.
type Note struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Title     string    `gorm:"size:200;not null;uniqueIndex"`
	Body      string    `gorm:"type:text"`
	Author    string    `gorm:"size:64;index"`
	Comments  []Comment `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Comment is a reply attached to a Note.
type Comment struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	NoteID    uint   `gorm:"not null;index"`
	Author    string `gorm:"size:64"`
	Body      string `gorm:"type:text"`
	CreatedAt time.Time
}
