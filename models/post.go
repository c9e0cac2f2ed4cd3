package models

import "time"

// Post represents a blog post published inside a community.
// LikeCount and CommentCount are derived per query and never stored.
type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"index;not null" json:"user_id"`
	CommunityID   *uint      `gorm:"index" json:"community_id"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Slug          string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	CoverImageURL string     `gorm:"size:512" json:"cover_image_url"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	User          User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Community     *Community `json:"community,omitempty"`
	Tags          []Tag      `gorm:"many2many:post_tags;" json:"tags"`
	Comments      []Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	LikeCount    int64 `gorm:"->;-:migration" json:"like_count"`
	CommentCount int64 `gorm:"->;-:migration" json:"comment_count"`
	Liked        bool  `gorm:"-" json:"liked"`
	Saved        bool  `gorm:"-" json:"saved"`
}

// Tag is a free-text label attached to posts. Rows are get-or-create.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}

// PostTag is the join row between posts and tags. It maps onto the same
// table gorm manages for the Post.Tags association and exists for direct
// queries against the join set.
type PostTag struct {
	PostID uint `gorm:"primaryKey" json:"post_id"`
	TagID  uint `gorm:"primaryKey" json:"tag_id"`
}

// TableName keeps PostTag on the association table.
func (PostTag) TableName() string { return "post_tags" }
