package catalog

import (
	"time"

	"zarab-collections/internal/domain"
)

type sample struct {
	name, description, category, collection string
	price                                    float64
}

var samples = []sample{
	{"Floral Print Dress", "Beautiful floral print dress for any occasion", "Dresses", "Summer Collection", 4990},
	{"Silk Blouse", "Elegant silk blouse for professional wear", "Tops", "Professional", 3490},
	{"Tailored Pants", "Perfect fit tailored pants", "Bottoms", "Professional", 3990},
	{"Embroidered Top", "Handcrafted embroidered top", "Tops", "Traditional", 2990},
}

// SampleProducts is the placeholder catalog the shop shows when the backend
// cannot be read. It is never persisted.
func SampleProducts() []domain.Product {
	products := make([]domain.Product, len(samples))
	for i, s := range samples {
		collection := s.collection
		created := time.Date(2023, time.January, i+1, 0, 0, 0, 0, time.UTC)
		products[i] = domain.Product{
			ID:          int64(i + 1),
			Name:        s.name,
			Description: s.description,
			Price:       s.price,
			ImageURL:    "/images/product-1.jpeg",
			Category:    s.category,
			Collection:  &collection,
			Sizes:       append([]domain.Size(nil), domain.Sizes...),
			CreatedAt:   created,
			UpdatedAt:   created,
		}
	}
	return products
}
