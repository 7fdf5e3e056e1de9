package domain

// Actor identifies who is making a request into the core. The interface is
// sealed so the variant set stays closed: policy code type-switches over the
// four concrete types and a new role cannot slip in without updating every
// switch.
type Actor interface {
	actor()
}

// Guest is an unidentified visitor. Guests may place orders but own none.
type Guest struct{}

// Customer is an identified buyer acting on their own orders.
type Customer struct {
	ID string
}

// Vendor is an identified seller fulfilling orders that contain its products.
type Vendor struct {
	ID string
}

// Administrator is a platform operator with unrestricted order access.
type Administrator struct{}

func (Guest) actor()         {}
func (Customer) actor()      {}
func (Vendor) actor()        {}
func (Administrator) actor() {}
