package domain

import (
	"strconv"
	"strings"
	"time"
)

// Size is a garment size label
type Size string

const (
	SizeXS Size = "XS"
	SizeS  Size = "S"
	SizeM  Size = "M"
	SizeL  Size = "L"
	SizeXL Size = "XL"
)

// Sizes lists every size label in display order
var Sizes = []Size{SizeXS, SizeS, SizeM, SizeL, SizeXL}

// Categories lists the categories accepted by the product form
var Categories = []string{"Dresses", "Tops", "Bottoms", "Outerwear"}

// ParseSize returns the size matching label, if any
func ParseSize(label string) (Size, bool) {
	for _, s := range Sizes {
		if string(s) == label {
			return s, true
		}
	}
	return "", false
}

// IsValidCategory reports whether name is one of the known categories
func IsValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// NormalizeSizes drops unknown labels and duplicates and returns the rest in display order
func NormalizeSizes(sizes []Size) []Size {
	seen := make(map[Size]bool, len(sizes))
	for _, s := range sizes {
		if _, ok := ParseSize(string(s)); ok {
			seen[s] = true
		}
	}

	out := make([]Size, 0, len(seen))
	for _, s := range Sizes {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out
}

// Product represents a product in the catalog
type Product struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	ImageData   string    `json:"image_data,omitempty" db:"image_data"`
	Category    string    `json:"category" db:"category"`
	Collection  *string   `json:"collection,omitempty" db:"collection"`
	Sizes       []Size    `json:"sizes" db:"sizes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayImage returns the inline image when present, otherwise the fallback URL
func (p *Product) DisplayImage() string {
	if p.ImageData != "" {
		return p.ImageData
	}
	return p.ImageURL
}

// ProductInput holds the client-settable fields written on create and update.
// ID and timestamps are owned by the database.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	ImageURL    string
	ImageData   string
	Category    string
	Collection  *string
	Sizes       []Size
}

// Draft is the unsaved, editable copy of a product held by the admin form.
// Price stays as typed text until validation.
type Draft struct {
	ID          *int64 `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url"`
	ImageData   string `json:"image_data"`
	Category    string `json:"category"`
	Collection  string `json:"collection"`
	Sizes       []Size `json:"sizes"`
}

// NewDraft seeds a draft from an existing product
func NewDraft(p *Product) Draft {
	id := p.ID
	d := Draft{
		ID:          &id,
		Name:        p.Name,
		Description: p.Description,
		Price:       strconv.FormatFloat(p.Price, 'f', -1, 64),
		ImageURL:    p.ImageURL,
		ImageData:   p.ImageData,
		Category:    p.Category,
		Sizes:       append([]Size(nil), p.Sizes...),
	}
	if p.Collection != nil {
		d.Collection = *p.Collection
	}
	if d.Sizes == nil {
		d.Sizes = []Size{}
	}
	return d
}

// EmptyDraft returns the defaults used when creating a product
func EmptyDraft() Draft {
	return Draft{Sizes: []Size{}}
}

// IsNew reports whether the draft will be inserted rather than updated
func (d Draft) IsNew() bool {
	return d.ID == nil
}

// HasSize reports whether size is selected
func (d Draft) HasSize(size Size) bool {
	for _, s := range d.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// CollectionValue maps an empty collection to NULL
func CollectionValue(collection string) *string {
	trimmed := strings.TrimSpace(collection)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
