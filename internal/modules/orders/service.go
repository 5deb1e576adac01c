package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service drives the order status state machine:
// placed -> accepted -> processing -> shipped -> delivered,
// with cancel allowed from any state before delivered.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

type TransitionInput struct {
	OrderID     string
	ActorUserID string // admin user id
	Action      string // accept|process|ship|deliver|cancel
	Note        string
}

func (s *Service) Transition(ctx context.Context, in TransitionInput) (string, error) {
	if in.OrderID == "" || in.ActorUserID == "" || in.Action == "" {
		return "", ErrNotActionable
	}

	var to string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o Order

		// row lock
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		from := o.Status
		next, err := nextStatus(from, in.Action)
		if err != nil {
			return err
		}
		to = next

		now := time.Now()
		if err := tx.WithContext(ctx).
			Model(&Order{}).
			Where("id = ? AND status = ?", o.ID, from). // optimistic guard
			Updates(map[string]any{
				"status":     to,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		var notePtr *string
		if n := strings.TrimSpace(in.Note); n != "" {
			notePtr = &n
		}

		ev := OrderEvent{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			ActorUserID: in.ActorUserID,
			Action:      in.Action,
			FromStatus:  from,
			ToStatus:    to,
			Note:        notePtr,
			CreatedAt:   now,
		}
		return tx.WithContext(ctx).Create(&ev).Error
	})
	return to, err
}

// UpdatePaymentStatus flips the payment status column only; payment
// identity is immutable after reconciliation.
func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID, paymentStatus string) error {
	switch paymentStatus {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
	default:
		return ErrNotActionable
	}
	res := s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"payment_status": paymentStatus,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func nextStatus(from, action string) (string, error) {
	if action == "cancel" {
		switch from {
		case StatusPlaced, StatusAccepted, StatusProcessing, StatusShipped:
			return StatusCancelled, nil
		}
		return "", ErrInvalidTransition
	}

	switch action {
	case "accept":
		if from == StatusPlaced {
			return StatusAccepted, nil
		}
	case "process":
		if from == StatusAccepted {
			return StatusProcessing, nil
		}
	case "ship":
		if from == StatusProcessing {
			return StatusShipped, nil
		}
	case "deliver":
		if from == StatusShipped {
			return StatusDelivered, nil
		}
	}
	return "", ErrInvalidTransition
}
