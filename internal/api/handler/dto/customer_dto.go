package dto

import (
	"time"

	"lender-ledger/internal/domain/customer"
)

type CustomerRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Phone      string `json:"phone" validate:"required,len=10,numeric"`
	TrustScore *int   `json:"trustScore,omitempty" validate:"omitempty,min=0,max=100"`
}

func (r *CustomerRequest) Validate() error {
	return validateStruct(r)
}

func (r *CustomerRequest) Input() customer.Input {
	return customer.Input{Name: r.Name, Phone: r.Phone, TrustScore: r.TrustScore}
}

type CustomerResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	TrustScore int       `json:"trustScore"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func NewCustomerResponse(c *customer.Customer) CustomerResponse {
	if c == nil {
		return CustomerResponse{}
	}
	return CustomerResponse{
		ID:         c.ID.String(),
		Name:       c.Name,
		Phone:      c.Phone,
		TrustScore: c.TrustScore,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func NewCustomerListResponse(customers []*customer.Customer) []CustomerResponse {
	resp := make([]CustomerResponse, len(customers))
	for i, c := range customers {
		resp[i] = NewCustomerResponse(c)
	}
	return resp
}

type CustomerEnvelope struct {
	Message  string           `json:"message"`
	Customer CustomerResponse `json:"customer"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
