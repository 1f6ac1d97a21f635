package model

// Apartment and Device mirror the access API's browse payloads.

type Apartment struct {
	ID         int64             `json:"id"`
	PaidBefore string            `json:"paid_before"`
	Location   ApartmentLocation `json:"location"`
	Tenants    []ApartmentTenant `json:"tenants"`
}

type ApartmentLocation struct {
	ReadableAddress  string `json:"readable_address"`
	ApartmentsNumber string `json:"apartments_number"`
}

type ApartmentTenant struct {
	Name   string       `json:"name"`
	Phone  string       `json:"phone"`
	Status TenantStatus `json:"status"`
}

type TenantStatus struct {
	Role int `json:"role"` // 1 = owner
}

func (t ApartmentTenant) Owner() bool { return t.Status.Role == 1 }

type Device struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
