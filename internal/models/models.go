package models

import (
	"strings"
	"time"
)

// User represents an account within the Metube platform. Password holds a
// bcrypt hash and stays empty for accounts created through social login.
type User struct {
	ID         string
	Name       string
	Username   string
	Email      string
	Password   string
	AvatarURL  string
	Location   string
	SocialOnly bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Video is an uploaded video together with its stored asset references.
// OwnerName is denormalized by list queries for display and is never written.
type Video struct {
	ID          string
	Title       string
	Description string
	Hashtags    []string
	FileURL     string
	ThumbURL    string
	OwnerID     string
	OwnerName   string
	Views       int64
	CreatedAt   time.Time
}

// Comment belongs to a video. Author and video references are fixed at
// creation. AuthorName is denormalized by list queries for display.
type Comment struct {
	ID         string
	Text       string
	AuthorID   string
	AuthorName string
	VideoID    string
	CreatedAt  time.Time
}

// FormatHashtags normalizes a comma separated hashtag string into a slice
// where every entry carries exactly one leading '#'.
func FormatHashtags(raw string) []string {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, "#") {
			part = "#" + part
		}
		tags = append(tags, part)
	}
	return tags
}
