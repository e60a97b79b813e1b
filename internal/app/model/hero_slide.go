package model

import "time"

type HeroMediaType string

const (
	HeroMediaImage HeroMediaType = "image"
	HeroMediaVideo HeroMediaType = "video"
)

// HeroSlide is one entry of the storefront hero carousel.
// Exactly one of Image or Video is set.
type HeroSlide struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	Video       string    `json:"video,omitempty"`
	Link        string    `json:"link,omitempty"`
	ButtonText  string    `json:"button_text,omitempty"`
	IsActive    bool      `gorm:"index" json:"is_active"`
	IsMobile    bool      `json:"is_mobile"`
	Order       int       `gorm:"column:display_order;default:0;index" json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (HeroSlide) TableName() string {
	return "hero_slides"
}

func (s *HeroSlide) MediaType() HeroMediaType {
	if s.Video != "" {
		return HeroMediaVideo
	}
	return HeroMediaImage
}
