package domain

// Supplier owns one or more sites orders ship from.
type Supplier struct {
	ID                     int
	ManufacturerSupplierID int
	Name                   string
}

// Site is a supplier location orders dispatch from. The location name
// matches the supplier-site vertex name in the supply chain graph.
type Site struct {
	ID           int
	SupplierID   int
	LocationName string
	Coordinates  Coordinates
}

// Carrier moves shipments between graph vertices.
type Carrier struct {
	ID   int
	Name string
}

// Manufacturer is the single delivery destination of the supply chain.
type Manufacturer struct {
	ID           int
	Name         string
	LocationName string
	Coordinates  Coordinates
}

// Location is a resolved intermediate stop, unified to the canonical
// name used by graph vertices.
type Location struct {
	ID          int
	Name        string
	City        string
	State       string
	CountryCode string
	Coordinates Coordinates
}
