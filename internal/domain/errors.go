package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// InsufficientStockError names the product a reservation could not be
// satisfied for, with the requested and actually available quantities.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (%s): requested %d, available %d",
		e.ProductName, e.ProductID, e.Requested, e.Available)
}

// InvalidStateTransitionError reports a rejected status change on an order or
// a payment, keeping both endpoints of the attempted transition.
type InvalidStateTransitionError struct {
	Entity string
	ID     uuid.UUID
	From   string
	To     string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s %s: invalid transition %s -> %s", e.Entity, e.ID, e.From, e.To)
}

// ValidationError flags an out-of-bounds amount or an unknown enumerated
// value in a request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ImmutableRecordError reports an attempt to alter a record that has been
// frozen: a settled payment, or a shipped order's lines.
type ImmutableRecordError struct {
	Entity string
	ID     uuid.UUID
	Reason string
}

func (e *ImmutableRecordError) Error() string {
	return fmt.Sprintf("%s %s is immutable: %s", e.Entity, e.ID, e.Reason)
}

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
