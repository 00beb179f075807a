package services

import (
	"errors"
	"fmt"
)

// ValidationError -> input salah, tidak ada yang disimpan
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConflictError -> request valid tapi bertabrakan dengan state sekarang
// (transisi ilegal, over-payment, edit item saat order bukan NEW)
type ConflictError struct {
	Reason    string `json:"reason"`
	Current   string `json:"current,omitempty"`
	Requested string `json:"requested,omitempty"`
}

func (e *ConflictError) Error() string {
	if e.Current != "" || e.Requested != "" {
		return fmt.Sprintf("conflict: %s (current=%s, requested=%s)", e.Reason, e.Current, e.Requested)
	}
	return "conflict: " + e.Reason
}

type NotFoundError struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Field  string `json:"field,omitempty"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// PersistenceError wraps store failures. Retryable is set for serialization and
// lock failures; the operation had no partial effect.
type PersistenceError struct {
	Op        string `json:"op"`
	Retryable bool   `json:"retryable"`
	Err       error  `json:"-"`
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func conflictErr(reason, current, requested string) error {
	return &ConflictError{Reason: reason, Current: current, Requested: requested}
}

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func notFoundField(entity, id, field string) error {
	return &NotFoundError{Entity: entity, ID: id, Field: field}
}

// IsValidation, IsConflict, IsNotFound dan IsPersistence dipakai controller
// untuk mapping ke HTTP status.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
