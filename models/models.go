package models

import (
	"fmt"
	"time"
)

type User struct {
	ID           uint       `json:"id" gorm:"primarykey"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Username     string     `json:"username" gorm:"size:150;not null;uniqueIndex"`
	Email        string     `json:"email" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	FirstName    string     `json:"first_name" gorm:"size:150"`
	LastName     string     `json:"last_name" gorm:"size:150"`
	IsActive     bool       `json:"is_active" gorm:"not null"`
	IsActivated  bool       `json:"is_activated" gorm:"not null;index"`
	SendMessages bool       `json:"send_messages" gorm:"not null"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Rubric is a category. A rubric without a parent is a super-rubric, one with
// a parent is a sub-rubric. Only sub-rubrics carry listings.
type Rubric struct {
	ID            uint    `json:"id" gorm:"primarykey"`
	Name          string  `json:"name" gorm:"size:20;not null;uniqueIndex"`
	SortOrder     int16   `json:"order" gorm:"not null;index"`
	SuperRubricID *uint   `json:"super_rubric_id,omitempty" gorm:"index"`
	SuperRubric   *Rubric `json:"super_rubric,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
}

func (r Rubric) IsSuper() bool { return r.SuperRubricID == nil }

func (r Rubric) String() string {
	if r.SuperRubric != nil {
		return fmt.Sprintf("%s - %s", r.SuperRubric.Name, r.Name)
	}
	return r.Name
}

type Listing struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	RubricID  uint      `json:"rubric_id" gorm:"not null;index"`
	Rubric    *Rubric   `json:"rubric,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	Title     string    `json:"title" gorm:"size:40;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Price     float64   `json:"price"`
	Contacts  string    `json:"contacts" gorm:"type:text;not null"`
	Image     string    `json:"image,omitempty" gorm:"size:255"`
	AuthorID  uint      `json:"author_id" gorm:"not null;index"`
	Author    *User     `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	IsActive  bool      `json:"is_active" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

type AdditionalImage struct {
	ID        uint     `json:"id" gorm:"primarykey"`
	ListingID uint     `json:"listing_id" gorm:"not null;index"`
	Listing   *Listing `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Image     string   `json:"image" gorm:"size:255;not null"`
}

// Comment authors are display names, not user references, so guests can comment.
type Comment struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	ListingID uint      `json:"listing_id" gorm:"not null;index"`
	Listing   *Listing  `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Author    string    `json:"author" gorm:"size:30;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	IsActive  bool      `json:"is_active" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// All lists the models in migration order.
func All() []any {
	return []any{&User{}, &Rubric{}, &Listing{}, &AdditionalImage{}, &Comment{}}
}
