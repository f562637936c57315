package course

import "gorm.io/gorm"

// Course represents a learning course
type Course struct {
	gorm.Model
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Status      string `json:"status" gorm:"default:'DRAFT'"` // DRAFT, ACTIVE, INACTIVE
	Price       int64  `json:"price" gorm:"default:0"`        // in minor currency units
	IsPublished bool   `json:"is_published" gorm:"default:false"`
	IsDeleted   bool   `gorm:"default:false"`
}
