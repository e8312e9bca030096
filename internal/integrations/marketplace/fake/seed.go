package fake

import (
	"fmt"
	"hash/fnv"

	"github.com/BearBump/BrickSync/internal/models"
)

// Seed fills m with n demo orders. Statuses are derived from a hash of the id
// so every sandbox start sees the same mix.
func Seed(m *Marketplace, n int, statuses ...string) {
	if len(statuses) == 0 {
		statuses = m.policy.Ready.Values()
	}
	if len(statuses) == 0 {
		return
	}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("%d", 1000+i)

		h := fnv.New32a()
		_, _ = h.Write([]byte(m.source))
		_, _ = h.Write([]byte("|"))
		_, _ = h.Write([]byte(id))
		v := h.Sum32()

		m.Put(models.OrderRecord{
			NativeID: id,
			Address: models.Address{
				FirstName:   "Sandbox",
				LastName:    fmt.Sprintf("Buyer %d", i),
				CountryCode: "US",
				PostalCode:  "62701",
				Street1:     fmt.Sprintf("%d Main St", i),
				City:        "Springfield",
				State:       "IL",
			},
			Status:     statuses[int(v)%len(statuses)],
			CreatedAt:  "2022-01-10 17:35:09",
			Weight:     fmt.Sprintf("%d.%03d", v%40, v%1000),
			WeightUnit: models.WeightUnitOunce,
			Items: []models.LineItem{{
				Title:      "Brick 2 x 4",
				Quantity:   int(v%20) + 1,
				SKU:        "3001",
				Weight:     "0.327",
				WeightUnit: models.WeightUnitOunce,
			}},
		})
	}
}
