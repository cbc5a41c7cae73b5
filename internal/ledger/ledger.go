// Package ledger writes the append-only record of completed sales and
// drives the status transitions (void, refund) allowed after creation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/crypto/bcrypt"

	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/store"
)

// Pricing carries the cart-level pricing configuration. Amounts are integer
// minor units; the tax rate is a percent (10 means 10%).
type Pricing struct {
	TaxEnabled     bool
	TaxRatePercent float64
}

// StockCache is the slice of the domain cache the writer needs: dropping
// the cached products blob after a write changes stock behind it.
type StockCache interface {
	Invalidate(ctx context.Context, key string) error
}

type Writer struct {
	repo           store.Repository
	pricing        Pricing
	managerPINHash string
	stockCache     StockCache
}

// NewWriter builds a ledger writer. managerPINHash is a bcrypt hash; when
// empty, void and refund are refused. stockCache may be nil when no read
// cache sits in front of master data.
func NewWriter(repo store.Repository, pricing Pricing, managerPINHash string, stockCache StockCache) *Writer {
	return &Writer{repo: repo, pricing: pricing, managerPINHash: managerPINHash, stockCache: stockCache}
}

// invalidateStock drops the cached products blob. Sales, voids and refunds
// change stock through the repository directly; a cached pre-sale count
// must not outlive the write.
func (w *Writer) invalidateStock(ctx context.Context) {
	if w.stockCache == nil {
		return
	}
	if err := w.stockCache.Invalidate(ctx, domain.DomainProducts); err != nil {
		log.Printf("[ledger] products cache invalidate failed: %v", err)
	}
}

// SaleInput is what checkout hands over: captured line items, the tendered
// payments, the cart-level discount, and optionally the promotion the
// cashier selected. A promotion's discount is derived here, on top of any
// manual discount.
type SaleInput struct {
	Items    []domain.LineItem
	Payments []domain.PaymentEntry
	Discount int64
	Promo    *domain.Promotion
}

// CreateTransaction derives the normalized totals, verifies payment covers
// them, and delegates to the store's atomic sale operation: stock check and
// decrement, ledger append, and sync enqueue all commit together or not at
// all. This is the only path that decrements stock for a sale.
func (w *Writer) CreateTransaction(ctx context.Context, in SaleInput) (*domain.Transaction, error) {
	if len(in.Items) == 0 || in.Discount < 0 {
		return nil, store.ErrInvalidTransaction
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 || item.UnitPrice < 0 || item.LineDiscount < 0 {
			return nil, store.ErrInvalidTransaction
		}
	}
	if len(in.Payments) == 0 {
		return nil, store.ErrInsufficientPayment
	}
	paid := int64(0)
	for _, p := range in.Payments {
		if p.Amount <= 0 {
			return nil, store.ErrInvalidTransaction
		}
		paid += p.Amount
	}

	discount := in.Discount
	if in.Promo != nil {
		cartTotal := lineSubtotal(in.Items)
		ok, reason := CheckPromoEligibility(*in.Promo, cartTotal, time.Now())
		if !ok {
			return nil, fmt.Errorf("promotion %q: %s: %w", in.Promo.Name, reason, store.ErrInvalidTransaction)
		}
		discount += ApplyPromotion(*in.Promo, cartTotal)
	}

	subtotal, tax, total := w.price(in.Items, discount)
	if paid < total {
		return nil, fmt.Errorf("paid %d of %d: %w", paid, total, store.ErrInsufficientPayment)
	}

	created, err := w.repo.CreateSale(ctx, domain.Transaction{
		Items:     in.Items,
		Payments:  in.Payments,
		Subtotal:  subtotal,
		Discount:  discount,
		Tax:       tax,
		Total:     total,
		Status:    domain.TxStatusCompleted,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	w.invalidateStock(ctx)

	log.Printf("[ledger] sale %d recorded: total=%d items=%d change=%d",
		created.ID, created.Total, len(created.Items), paid-created.Total)
	return created, nil
}

// lineSubtotal is the clamped sum of line amounts, the base both pricing
// and promotion eligibility work from.
func lineSubtotal(items []domain.LineItem) int64 {
	var subtotal int64
	for _, item := range items {
		subtotal += item.UnitPrice*item.Quantity - item.LineDiscount
	}
	if subtotal < 0 {
		subtotal = 0
	}
	return subtotal
}

// price computes subtotal, tax and total per the cart formulas: tax rounds
// half-up on the discounted base when enabled, total never goes below zero.
func (w *Writer) price(items []domain.LineItem, discount int64) (subtotal, tax, total int64) {
	subtotal = lineSubtotal(items)

	if w.pricing.TaxEnabled {
		taxBase := subtotal - discount
		tax = int64(math.Round(float64(taxBase) * w.pricing.TaxRatePercent / 100))
		if tax < 0 {
			tax = 0
		}
	}

	total = subtotal - discount + tax
	if total < 0 {
		total = 0
	}
	return subtotal, tax, total
}

// Void reverses a completed sale: status flips to voided, every line item's
// quantity returns to stock, and a transaction update is queued for the
// remote store, all in one atomic unit.
func (w *Writer) Void(ctx context.Context, id int64, managerPIN string) (*domain.Transaction, error) {
	if err := w.verifyManagerPIN(managerPIN); err != nil {
		return nil, err
	}

	tx, err := w.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.TxStatusCompleted {
		return nil, fmt.Errorf("transaction %d is %s: %w", id, tx.Status, store.ErrInvalidTransaction)
	}

	updated, err := w.repo.UpdateTransactionStatus(ctx, id, domain.TxStatusVoided, tx.RefundedAmount, tx.Items,
		store.SyncIntent{EntityType: domain.EntityTransaction, Operation: domain.SyncOpUpdate})
	if err != nil {
		return nil, err
	}
	w.invalidateStock(ctx)

	log.Printf("[ledger] transaction %d voided", id)
	return updated, nil
}

// Refund credits part or all of a completed sale back to the customer.
// restock lists the items physically returned; pass nil when the goods are
// not coming back (damage, goodwill).
func (w *Writer) Refund(ctx context.Context, id int64, amount int64, restock []domain.LineItem, managerPIN string) (*domain.Transaction, error) {
	if err := w.verifyManagerPIN(managerPIN); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, store.ErrInvalidTransaction
	}

	tx, err := w.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.TxStatusCompleted && tx.Status != domain.TxStatusPartiallyRefunded {
		return nil, fmt.Errorf("transaction %d is %s: %w", id, tx.Status, store.ErrInvalidTransaction)
	}

	refunded := tx.RefundedAmount + amount
	if refunded > tx.Total {
		return nil, fmt.Errorf("refund %d exceeds remaining %d: %w", amount, tx.Total-tx.RefundedAmount, store.ErrInvalidTransaction)
	}
	status := domain.TxStatusPartiallyRefunded
	if refunded == tx.Total {
		status = domain.TxStatusFullyRefunded
	}

	updated, err := w.repo.UpdateTransactionStatus(ctx, id, status, refunded, restock,
		store.SyncIntent{EntityType: domain.EntityTransaction, Operation: domain.SyncOpUpdate})
	if err != nil {
		return nil, err
	}
	if len(restock) > 0 {
		w.invalidateStock(ctx)
	}

	log.Printf("[ledger] transaction %d refunded %d (status=%s)", id, amount, status)
	return updated, nil
}

func (w *Writer) verifyManagerPIN(pin string) error {
	if w.managerPINHash == "" {
		return errors.New("manager PIN not configured")
	}
	if bcrypt.CompareHashAndPassword([]byte(w.managerPINHash), []byte(pin)) != nil {
		return errors.New("invalid manager PIN")
	}
	return nil
}

// NetSales totals revenue across transactions the way the reports page
// counts it: voided and fully refunded sales contribute nothing, partial
// refunds contribute the unrefunded remainder.
func NetSales(transactions []domain.Transaction) int64 {
	sum := int64(0)
	for _, tx := range transactions {
		switch tx.Status {
		case domain.TxStatusVoided, domain.TxStatusFullyRefunded:
		case domain.TxStatusPartiallyRefunded:
			sum += tx.Total - tx.RefundedAmount
		default:
			sum += tx.Total
		}
	}
	return sum
}
