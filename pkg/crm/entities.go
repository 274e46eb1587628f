// Package crm provides typed entity adapters for the CRM objects workflows react to.
// Each adapter resolves an explicit allow-list of paths; anything else is unresolved.
package crm

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/spf13/cast"
)

const (
	DealEntityType    = "deal"
	ContactEntityType = "contact"
)

type Stage struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Pipeline    string  `json:"pipeline"`
	Probability float64 `json:"probability"`
}

func (s *Stage) Label() string {
	return s.Name
}

func (s *Stage) get(path string) (any, bool) {
	switch path {
	case "":
		return s, true
	case "id":
		return s.ID, true
	case "name":
		return s.Name, true
	case "pipeline":
		return s.Pipeline, true
	case "probability":
		return s.Probability, true
	default:
		return nil, false
	}
}

type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
}

func (a *Account) Label() string {
	return a.Name
}

func (a *Account) get(path string) (any, bool) {
	switch path {
	case "":
		return a, true
	case "id":
		return a.ID, true
	case "name":
		return a.Name, true
	case "industry":
		return a.Industry, true
	default:
		return nil, false
	}
}

type Deal struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	Amount    float64    `json:"amount"`
	Currency  string     `json:"currency"`
	OwnerID   string     `json:"owner_id"`
	CloseDate *time.Time `json:"close_date,omitempty"`
	Stage     *Stage     `json:"stage,omitempty"`
	Account   *Account   `json:"account,omitempty"`
}

func (d *Deal) Ref() models.EntityRef {
	return models.EntityRef{Type: DealEntityType, ID: d.ID, TenantID: d.TenantID}
}

func (d *Deal) Label() string {
	return d.Name
}

func (d *Deal) Get(path string) (any, bool) {
	head, rest, _ := strings.Cut(path, ".")

	switch head {
	case "stage":
		if d.Stage == nil {
			return nil, false
		}

		return d.Stage.get(rest)
	case "account":
		if d.Account == nil {
			return nil, false
		}

		return d.Account.get(rest)
	}

	// Scalars have no nested paths.
	if rest != "" {
		return nil, false
	}

	switch head {
	case "id":
		return d.ID, true
	case "name":
		return d.Name, true
	case "status":
		return d.Status, true
	case "amount":
		return d.Amount, true
	case "currency":
		return d.Currency, true
	case "owner_id":
		return d.OwnerID, d.OwnerID != ""
	case "close_date":
		if d.CloseDate == nil {
			return nil, false
		}

		return d.CloseDate.Format(time.DateOnly), true
	default:
		return nil, false
	}
}

func (d *Deal) Clone() models.MutableEntity {
	clone := *d

	return &clone
}

func (d *Deal) Set(field string, value any) error {
	switch field {
	case "name":
		d.Name = cast.ToString(value)
	case "status":
		d.Status = cast.ToString(value)
	case "currency":
		d.Currency = cast.ToString(value)
	case "owner_id":
		d.OwnerID = cast.ToString(value)
	case "amount":
		amount, err := cast.ToFloat64E(value)
		if err != nil {
			return fmt.Errorf("%w: amount: %w", models.ErrFieldNotWritable, err)
		}

		d.Amount = amount
	default:
		return fmt.Errorf("%w: deal.%s", models.ErrFieldNotWritable, field)
	}

	return nil
}

type Contact struct {
	ID        string   `json:"id"`
	TenantID  string   `json:"tenant_id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Status    string   `json:"status"`
	Source    string   `json:"source"`
	OwnerID   string   `json:"owner_id"`
	Account   *Account `json:"account,omitempty"`
}

func (c *Contact) Ref() models.EntityRef {
	return models.EntityRef{Type: ContactEntityType, ID: c.ID, TenantID: c.TenantID}
}

func (c *Contact) Label() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c *Contact) Get(path string) (any, bool) {
	head, rest, _ := strings.Cut(path, ".")

	if head == "account" {
		if c.Account == nil {
			return nil, false
		}

		return c.Account.get(rest)
	}

	if rest != "" {
		return nil, false
	}

	switch head {
	case "id":
		return c.ID, true
	case "first_name":
		return c.FirstName, true
	case "last_name":
		return c.LastName, true
	case "name":
		return c.Label(), true
	case "email":
		return c.Email, true
	case "phone":
		return c.Phone, true
	case "status":
		return c.Status, true
	case "source":
		return c.Source, true
	case "owner_id":
		return c.OwnerID, c.OwnerID != ""
	default:
		return nil, false
	}
}

func (c *Contact) Clone() models.MutableEntity {
	clone := *c

	return &clone
}

func (c *Contact) Set(field string, value any) error {
	text := cast.ToString(value)

	switch field {
	case "first_name":
		c.FirstName = text
	case "last_name":
		c.LastName = text
	case "email":
		c.Email = text
	case "phone":
		c.Phone = text
	case "status":
		c.Status = text
	case "source":
		c.Source = text
	case "owner_id":
		c.OwnerID = text
	default:
		return fmt.Errorf("%w: contact.%s", models.ErrFieldNotWritable, field)
	}

	return nil
}
