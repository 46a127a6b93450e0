package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"smartcrm/models"
	"smartcrm/utils"
)

type LeadInput struct {
	CustomerID   uint         `json:"customer_id" validate:"required"`
	Title        string       `json:"title" validate:"required,max=100"`
	Status       string       `json:"status" validate:"omitempty,lead_status"`
	AssignedToID *uint        `json:"assigned_to_id"`
	FollowUpDate *models.Date `json:"follow_up_date"`
	Notes        string       `json:"notes"`
}

// DefaultLeadSort is used whenever the requested sort key is not allowed.
const DefaultLeadSort = "follow_up_date"

var leadSortOrders = map[string]string{
	"follow_up_date":  "follow_up_date ASC",
	"-follow_up_date": "follow_up_date DESC",
	"created_at":      "created_at ASC",
	"-created_at":     "created_at DESC",
	"title":           "title ASC",
	"-title":          "title DESC",
}

// NormalizeLeadSort returns key when it is an allowed sort key and
// DefaultLeadSort otherwise.
func NormalizeLeadSort(key string) string {
	if _, ok := leadSortOrders[key]; ok {
		return key
	}
	return DefaultLeadSort
}

func (in LeadInput) prepare() (LeadInput, models.LeadStatus, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := utils.ValidateStruct(in); err != nil {
		return in, "", invalid(err)
	}
	status, _ := models.ParseLeadStatus(in.Status)
	return in, status, nil
}

// CreateLead stores a lead for an existing customer.
func (s *CRMService) CreateLead(ctx context.Context, in LeadInput) (*models.Lead, error) {
	in, status, err := in.prepare()
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := s.checkLeadReferences(db, in); err != nil {
		return nil, err
	}

	lead := models.Lead{
		CustomerID:   in.CustomerID,
		Title:        in.Title,
		Status:       status,
		AssignedToID: in.AssignedToID,
		FollowUpDate: in.FollowUpDate,
		Notes:        in.Notes,
	}
	if err := db.Create(&lead).Error; err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"lead_id":     lead.ID,
		"customer_id": lead.CustomerID,
		"status":      lead.Status,
	}).Info("Lead created")
	return &lead, nil
}

// UpdateLead replaces the editable fields of a lead. A blank status keeps the
// current one. With strict transitions enabled the status change must follow
// the pipeline.
func (s *CRMService) UpdateLead(ctx context.Context, id uint, in LeadInput) (*models.Lead, error) {
	in, status, err := in.prepare()
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var lead models.Lead
	if err := findByID(db, &lead, id, "lead"); err != nil {
		return nil, err
	}

	// An edit without a status keeps the current one.
	if strings.TrimSpace(in.Status) == "" {
		status = lead.Status
	}
	if s.cfg.StrictTransitions && !models.CanTransition(lead.Status, status) {
		return nil, invalidf("cannot move lead from %s to %s", lead.Status, status)
	}
	if err := s.checkLeadReferences(db, in); err != nil {
		return nil, err
	}

	var followUp interface{}
	if in.FollowUpDate != nil {
		followUp = *in.FollowUpDate
	}
	var assignee interface{}
	if in.AssignedToID != nil {
		assignee = *in.AssignedToID
	}

	err = db.Model(&lead).Updates(map[string]interface{}{
		"customer_id":    in.CustomerID,
		"title":          in.Title,
		"status":         status,
		"assigned_to_id": assignee,
		"follow_up_date": followUp,
		"notes":          in.Notes,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update lead %d: %w", id, err)
	}

	if status != lead.Status {
		s.logger.WithFields(logrus.Fields{"lead_id": id, "status": status}).Info("Lead status changed")
	}
	return s.GetLead(ctx, id)
}

// GetLead loads a lead with its customer and assignee.
func (s *CRMService) GetLead(ctx context.Context, id uint) (*models.Lead, error) {
	var lead models.Lead
	db := s.db.WithContext(ctx).Preload("Customer").Preload("AssignedTo")
	if err := findByID(db, &lead, id, "lead"); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (s *CRMService) DeleteLead(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Lead{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete lead %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("lead", id)
	}
	return nil
}

// DeleteAllLeads removes every lead in one transaction and returns how many
// were removed.
func (s *CRMService) DeleteAllLeads(ctx context.Context) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("1 = 1").Delete(&models.Lead{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, &BulkError{Op: "delete all leads", Err: err}
	}

	s.logger.WithField("count", removed).Warn("All leads deleted")
	return removed, nil
}

// ListLeads pages through all leads ordered by an allowed sort key. Ties are
// broken by id so pages are stable.
func (s *CRMService) ListLeads(ctx context.Context, sortKey string, page int) (Page[models.Lead], error) {
	order := leadSortOrders[NormalizeLeadSort(sortKey)]
	base := s.db.WithContext(ctx).Model(&models.Lead{})

	result, err := paginate[models.Lead](base, page, func(tx *gorm.DB) *gorm.DB {
		return tx.Preload("Customer").Order(order).Order("id ASC")
	})
	if err != nil {
		return Page[models.Lead]{}, fmt.Errorf("list leads: %w", err)
	}
	return result, nil
}

func (s *CRMService) checkLeadReferences(db *gorm.DB, in LeadInput) error {
	var customer models.Customer
	if err := findByID(db.Select("id"), &customer, in.CustomerID, "customer"); err != nil {
		return err
	}
	if in.AssignedToID != nil {
		var user models.User
		if err := findByID(db.Select("id"), &user, *in.AssignedToID, "user"); err != nil {
			return err
		}
	}
	return nil
}
