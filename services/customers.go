package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"smartcrm/models"
	"smartcrm/utils"
)

type CustomerInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"max=20"`
	Company string `json:"company" validate:"max=100"`
}

func (in CustomerInput) normalize() CustomerInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Company = strings.TrimSpace(in.Company)
	return in
}

func (in CustomerInput) validate() error {
	if err := utils.ValidateStruct(in); err != nil {
		return invalid(err)
	}
	if err := utils.ValidateEmailFormat(in.Email); err != nil {
		return invalid(err)
	}
	return nil
}

// CreateCustomer stores a new customer. A blank company is filled in by the
// company lookup.
func (s *CRMService) CreateCustomer(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := ensureUniqueCustomer(db, in.Name, in.Email, 0); err != nil {
		return nil, err
	}

	if in.Company == "" && s.companies != nil {
		company, err := s.companies.Company(ctx, in.Name)
		if err != nil {
			return nil, fmt.Errorf("lookup company: %w", err)
		}
		in.Company = company
	}

	customer := models.Customer{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   in.Phone,
		Company: in.Company,
	}
	if err := db.Create(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid(ErrDuplicateCustomer)
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"customer_id": customer.ID,
		"company":     customer.Company,
	}).Info("Customer created")
	return &customer, nil
}

// UpdateCustomer replaces the editable fields of a customer.
func (s *CRMService) UpdateCustomer(ctx context.Context, id uint, in CustomerInput) (*models.Customer, error) {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var customer models.Customer
	if err := findByID(db, &customer, id, "customer"); err != nil {
		return nil, err
	}
	if err := ensureUniqueCustomer(db, in.Name, in.Email, id); err != nil {
		return nil, err
	}

	err := db.Model(&customer).Updates(map[string]interface{}{
		"name":    in.Name,
		"email":   in.Email,
		"phone":   in.Phone,
		"company": in.Company,
	}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid(ErrDuplicateCustomer)
		}
		return nil, fmt.Errorf("update customer %d: %w", id, err)
	}

	var updated models.Customer
	if err := findByID(db, &updated, id, "customer"); err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetCustomer loads a customer together with its leads, newest first.
func (s *CRMService) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	db := s.db.WithContext(ctx).Preload("Leads", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at DESC").Order("id DESC")
	})
	if err := findByID(db, &customer, id, "customer"); err != nil {
		return nil, err
	}
	return &customer, nil
}

// DeleteCustomer removes a customer and every lead it owns.
func (s *CRMService) DeleteCustomer(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ?", id).Delete(&models.Lead{}).Error; err != nil {
			return fmt.Errorf("delete leads of customer %d: %w", id, err)
		}
		res := tx.Delete(&models.Customer{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete customer %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("customer", id)
		}
		return nil
	})
}

// DeleteAllCustomers removes every customer and, with them, every lead. It
// returns the number of customers removed.
func (s *CRMService) DeleteAllCustomers(ctx context.Context) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Lead{}).Error; err != nil {
			return err
		}
		res := tx.Where("1 = 1").Delete(&models.Customer{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, &BulkError{Op: "delete all customers", Err: err}
	}

	s.logger.WithField("count", removed).Warn("All customers deleted")
	return removed, nil
}

// SearchCustomers matches query case-insensitively against name, email and
// company. An empty query lists everyone.
func (s *CRMService) SearchCustomers(ctx context.Context, query string, page int) (Page[models.Customer], error) {
	base := s.db.WithContext(ctx).Model(&models.Customer{})
	if query = strings.TrimSpace(query); query != "" {
		pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
		base = base.Where(
			`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(company) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}

	result, err := paginate[models.Customer](base, page, func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	})
	if err != nil {
		return Page[models.Customer]{}, fmt.Errorf("search customers: %w", err)
	}
	return result, nil
}

// ensureUniqueCustomer rejects a (name, email) pair used by another customer.
func ensureUniqueCustomer(db *gorm.DB, name, email string, exceptID uint) error {
	query := db.Model(&models.Customer{}).Where("name = ? AND email = ?", name, email)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check duplicate customer: %w", err)
	}
	if count > 0 {
		return invalid(ErrDuplicateCustomer)
	}
	return nil
}

func findByID(db *gorm.DB, dest interface{}, id uint, entity string) error {
	if err := db.First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(entity, id)
		}
		return fmt.Errorf("load %s %d: %w", entity, id, err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
