package entities

import "time"

type Area struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	NameAr      string    `json:"name_ar"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type UnitType struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	NameAr    string    `json:"name_ar"`
	CreatedAt time.Time `json:"created_at"`
}

// Unit statuses
const (
	UnitAvailable = "available"
	UnitReserved  = "reserved"
	UnitSold      = "sold"
)

type Unit struct {
	ID         int       `json:"id"`
	AreaID     int       `json:"area_id"`
	UnitTypeID int       `json:"unit_type_id"`
	Title      string    `json:"title"`
	Price      float64   `json:"price"`
	Bedrooms   int       `json:"bedrooms"`
	Bathrooms  int       `json:"bathrooms"`
	SizeSqm    float64   `json:"size_sqm"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func ValidUnitStatus(s string) bool {
	return s == UnitAvailable || s == UnitReserved || s == UnitSold
}

// UnitFilter narrows unit listings; zero values are ignored
type UnitFilter struct {
	AreaID     int
	UnitTypeID int
	Status     string
	MinPrice   float64
	MaxPrice   float64
	Bedrooms   int
	Limit      int
	Offset     int
}

type Customer struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Notes     string    `json:"notes"`
	CreatedBy *int      `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
