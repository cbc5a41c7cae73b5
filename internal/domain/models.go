package domain

import (
	"encoding/json"
	"time"
)

// Master data domain keys. Each key maps to a single serialized blob in the
// local store; writes replace the prior value wholesale.
const (
	DomainCategories     = "categories"
	DomainProducts       = "products"
	DomainPaymentMethods = "paymentMethods"
	DomainPromotions     = "promotions"
)

type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type Unit struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	ConversionToBase float64 `json:"conversionToBase"`
}

type Variant struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	SKU            string `json:"sku"`
	Barcode        string `json:"barcode,omitempty"`
	BaseUnitID     int64  `json:"baseUnitId"`
	RetailPrice    int64  `json:"retailPrice"`
	WholesalePrice int64  `json:"wholesalePrice,omitempty"`
	Cost           int64  `json:"cost"`
	Active         bool   `json:"active"`
}

// Product carries a non-negative stock counter shared by all of its
// variants. Stock is only ever decremented through the ledger writer's
// atomic sale operation.
type Product struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	CategoryID int64     `json:"categoryId"`
	Active     bool      `json:"active"`
	Variants   []Variant `json:"variants"`
	Units      []Unit    `json:"units"`
	Stock      int64     `json:"stock"`
}

type PaymentMethod struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	MethodType string `json:"methodType"`
	Enabled    bool   `json:"enabled"`
}

const (
	PaymentMethodCash         = "cash"
	PaymentMethodQRCode       = "qrCode"
	PaymentMethodBankTransfer = "bankTransfer"
)

type Promotion struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Type              string `json:"type"`
	Value             int64  `json:"value"`
	MinPurchaseAmount int64  `json:"minPurchaseAmount,omitempty"`
	ValidFrom         int64  `json:"validFrom,omitempty"`
	ValidTo           int64  `json:"validTo,omitempty"`
	Active            bool   `json:"active"`
}

const (
	PromoTypePercentage = "percentage"
	PromoTypeFixed      = "fixed"
)

type LineItem struct {
	ProductID    int64  `json:"productId"`
	VariantID    int64  `json:"variantId"`
	Quantity     int64  `json:"quantity"`
	UnitPrice    int64  `json:"unitPrice"`
	LineDiscount int64  `json:"lineDiscount"`
	Note         string `json:"note,omitempty"`
}

type PaymentEntry struct {
	MethodID int64 `json:"methodId"`
	Amount   int64 `json:"amount"`
}

const (
	TxStatusCompleted         = "completed"
	TxStatusVoided            = "voided"
	TxStatusPartiallyRefunded = "partiallyRefunded"
	TxStatusFullyRefunded     = "fullyRefunded"
)

// Transaction is an immutable sale record; only Status and RefundedAmount
// may change after creation, driven by void/refund transitions. Amounts are
// integer minor currency units. The id is assigned by the local store,
// strictly increasing, never reused.
type Transaction struct {
	ID             int64          `json:"id"`
	Items          []LineItem     `json:"items"`
	Payments       []PaymentEntry `json:"payments"`
	Subtotal       int64          `json:"subtotal"`
	Discount       int64          `json:"discount"`
	Tax            int64          `json:"tax"`
	Total          int64          `json:"total"`
	Status         string         `json:"status"`
	RefundedAmount int64          `json:"refundedAmount"`
	Timestamp      time.Time      `json:"timestamp"`
}

// StockAdjustment records a manual stock correction outside the sale path
// (receiving, shrinkage, opname). Change may be negative.
type StockAdjustment struct {
	ProductID int64  `json:"productId"`
	VariantID int64  `json:"variantId"`
	Change    int64  `json:"change"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// Sync queue entity vocabulary, shared with the remote store.
const (
	EntityCategory        = "category"
	EntityProduct         = "product"
	EntityPaymentMethod   = "paymentMethod"
	EntityPromotion       = "promotion"
	EntityTransaction     = "transaction"
	EntityStockAdjustment = "stockAdjustment"
)

const (
	SyncOpCreate = "create"
	SyncOpUpdate = "update"
)

const (
	SyncStatusPending = "pending"
	SyncStatusSynced  = "synced"
	SyncStatusFailed  = "failed"
)

// SyncQueueItem records one local mutation awaiting propagation. Status
// moves strictly pending -> synced|failed; a failed item stays retryable and
// Attempts only ever increases. The idempotency key is minted at enqueue
// time and resent on every delivery attempt so the remote side can
// de-duplicate at-least-once redeliveries.
type SyncQueueItem struct {
	ID             int64           `json:"id"`
	EntityType     string          `json:"entityType"`
	Operation      string          `json:"operation"`
	Payload        json.RawMessage `json:"payload"`
	Status         string          `json:"status"`
	Attempts       int64           `json:"attempts"`
	IdempotencyKey string          `json:"idempotencyKey"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// SyncReport summarizes one drain pass over the pending queue.
type SyncReport struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}
