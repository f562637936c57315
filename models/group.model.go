package models

import (
	"time"

	"gorm.io/gorm"
)

// Group is a study group attached to a course. Joining a group is what
// provisions a learner's enrollment and progress rows.
type Group struct {
	gorm.Model
	CourseID  uint   `json:"course_id" gorm:"index;not null"`
	Title     string `json:"title"`
	IsActive  bool   `json:"is_active" gorm:"default:true"`
	IsDeleted bool   `gorm:"default:false"`
}

// GroupMembership links a learner to a group. One active membership per
// (user, group); leaving keeps the row with LeftAt set.
type GroupMembership struct {
	gorm.Model
	UserID   uint       `json:"user_id" gorm:"index;not null;uniqueIndex:idx_member_group"`
	GroupID  uint       `json:"group_id" gorm:"index;not null;uniqueIndex:idx_member_group"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at"`
}
