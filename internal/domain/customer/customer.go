package customer

import (
	"strings"
	"time"

	"lender-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
)

const (
	DefaultTrustScore = 50
	MinTrustScore     = 0
	MaxTrustScore     = 100
	PhoneLength       = 10
)

type Customer struct {
	ID         uuid.UUID `json:"id"`
	TenantID   string    `json:"-"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	TrustScore int       `json:"trustScore"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Input carries the user-editable fields. A nil TrustScore means
// "default" on create and "unchanged" on update.
type Input struct {
	Name       string
	Phone      string
	TrustScore *int
}

func NewCustomer(tenantID string, in Input) (*Customer, error) {
	now := time.Now().UTC()
	c := &Customer{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Name:       strings.TrimSpace(in.Name),
		Phone:      strings.TrimSpace(in.Phone),
		TrustScore: DefaultTrustScore,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.TrustScore != nil {
		c.TrustScore = *in.TrustScore
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply overwrites the editable fields and revalidates. The receiver is left
// untouched when validation fails.
func (c *Customer) Apply(in Input) error {
	next := *c
	next.Name = strings.TrimSpace(in.Name)
	next.Phone = strings.TrimSpace(in.Phone)
	if in.TrustScore != nil {
		next.TrustScore = *in.TrustScore
	}
	if err := next.Validate(); err != nil {
		return err
	}
	next.UpdatedAt = time.Now().UTC()
	*c = next
	return nil
}

func (c *Customer) Validate() error {
	if c.Name == "" {
		return apperrors.NewValidationError("name", "must not be empty")
	}
	if !isPhone(c.Phone) {
		return apperrors.NewValidationError("phone", "must be exactly 10 digits")
	}
	if c.TrustScore < MinTrustScore || c.TrustScore > MaxTrustScore {
		return apperrors.NewValidationError("trustScore", "must be between 0 and 100")
	}
	return nil
}

func isPhone(s string) bool {
	if len(s) != PhoneLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
