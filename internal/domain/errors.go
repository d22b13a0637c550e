package domain

import (
	"errors"
	"fmt"
)

// Recoverable conditions surfaced to the caller. None of these are fatal:
// the caller can retry, adjust the quantity or re-fetch the cart.
var (
	ErrOutOfStock             = errors.New("product is out of stock")
	ErrInvalidQuantity        = errors.New("quantity must be at least 1")
	ErrLineNotFound           = errors.New("line not found in cart")
	ErrEmptyCart              = errors.New("cart is empty, nothing to checkout")
	ErrStockChanged           = errors.New("stock changed since the cart was assembled")
	ErrConcurrentModification = errors.New("cart was modified concurrently")
	ErrOrderFinalized         = errors.New("order status is terminal")
	ErrInvalidTransition      = errors.New("illegal status transition")
)

// StockError carries the product and the stock level that made a cart
// mutation impossible.
type StockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("product %d: requested %d, available %d: %v",
		e.ProductID, e.Requested, e.Available, ErrOutOfStock)
}

func (e *StockError) Unwrap() error { return ErrOutOfStock }

// StockChangedError lists every product whose stock no longer covers the
// cart at checkout time. Checkout never partially succeeds, so all
// offenders are collected before failing.
type StockChangedError struct {
	ProductIDs []int64
}

func (e *StockChangedError) Error() string {
	return fmt.Sprintf("products %v: %v", e.ProductIDs, ErrStockChanged)
}

func (e *StockChangedError) Unwrap() error { return ErrStockChanged }

// TransitionError reports a rejected edge on either status axis.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s: %v", e.From, e.To, ErrInvalidTransition)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
