package repository

import (
	"github.com/go-playground/validator/v10"
	"github.com/medflow/medstock/pkg/httputil"
)

// Category groups stock items. Values are the storage keys used by the front end.
type Category string

const (
	CategoryPPE                 Category = "PPE"
	CategoryDiagnostics         Category = "Diagnostics"
	CategoryAirway              Category = "Airway"
	CategoryCirculation         Category = "Circulation"
	CategoryEmergencyMedication Category = "Emergency_Medication"
	CategoryBurnsDressings      Category = "Burns_Dressings"
)

var categoryDisplay = map[Category]string{
	CategoryPPE:                 "PPE",
	CategoryDiagnostics:         "Diagnostics",
	CategoryAirway:              "Airway",
	CategoryCirculation:         "Circulation",
	CategoryEmergencyMedication: "Emergency Medication",
	CategoryBurnsDressings:      "Burns/Dressings",
}

// Categories returns every category in display order
func Categories() []Category {
	return []Category{
		CategoryPPE,
		CategoryDiagnostics,
		CategoryAirway,
		CategoryCirculation,
		CategoryEmergencyMedication,
		CategoryBurnsDressings,
	}
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	_, ok := categoryDisplay[c]
	return ok
}

// DisplayName returns the human-readable label
func (c Category) DisplayName() string {
	if name, ok := categoryDisplay[c]; ok {
		return name
	}
	return string(c)
}

func init() {
	err := httputil.RegisterCustomValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})
	if err != nil {
		panic(err)
	}
}
