package models

import "time"

// Post represents a text entry published by an author, optionally in a group and with an image.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"not null;index:idx_posts_created" json:"created_at"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID   *uint     `gorm:"index" json:"group_id,omitempty"`
	Group     *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	// Image is the storage key of the attached picture, empty when there is none.
	Image string `gorm:"size:255;not null;default:''" json:"image,omitempty"`
	// ImageURL is resolved from Image by the service layer; never persisted.
	ImageURL     string `gorm:"-" json:"image_url,omitempty"`
	ThumbnailURL string `gorm:"-" json:"thumbnail_url,omitempty"`
}

// TableName specifies the table name for GORM.
func (Post) TableName() string {
	return "posts"
}

// String returns the first 15 characters of the post text.
func (p Post) String() string {
	r := []rune(p.Text)
	if len(r) > 15 {
		return string(r[:15])
	}
	return p.Text
}
