package masterdata

import (
	"context"
	"encoding/json"
	"fmt"

	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/store"
)

// LoadSampleData seeds the four master data domains with a small demo
// catalog and queues a create for every entity so a later drain pushes the
// seed to the remote store.
func (c *Cache) LoadSampleData(ctx context.Context) error {
	categories := []domain.Category{
		{ID: 1, Name: "Sembako", Active: true},
		{ID: 2, Name: "Minuman", Active: true},
		{ID: 3, Name: "Snack", Active: true},
		{ID: 4, Name: "Perawatan", Active: true},
	}

	products := []domain.Product{
		{
			ID: 1, Name: "Beras Premium", CategoryID: 1, Active: true,
			Variants: []domain.Variant{
				{ID: 1, Name: "Default", SKU: "BRS-001", Barcode: "8991234567890", BaseUnitID: 1, RetailPrice: 15000, WholesalePrice: 13500, Cost: 12000, Active: true},
			},
			Units: []domain.Unit{
				{ID: 1, Name: "kg", ConversionToBase: 1},
				{ID: 2, Name: "karung", ConversionToBase: 25},
			},
			Stock: 100,
		},
		{
			ID: 2, Name: "Minyak Goreng", CategoryID: 1, Active: true,
			Variants: []domain.Variant{
				{ID: 2, Name: "Default", SKU: "MYK-001", Barcode: "8991234567891", BaseUnitID: 1, RetailPrice: 18000, WholesalePrice: 16500, Cost: 15000, Active: true},
			},
			Units: []domain.Unit{{ID: 1, Name: "liter", ConversionToBase: 1}},
			Stock: 50,
		},
		{
			ID: 3, Name: "Gula Pasir", CategoryID: 1, Active: true,
			Variants: []domain.Variant{
				{ID: 3, Name: "Default", SKU: "GUL-001", Barcode: "8991234567892", BaseUnitID: 1, RetailPrice: 14000, WholesalePrice: 12500, Cost: 11000, Active: true},
			},
			Units: []domain.Unit{{ID: 1, Name: "kg", ConversionToBase: 1}},
			Stock: 75,
		},
		{
			ID: 4, Name: "Aqua Botol", CategoryID: 2, Active: true,
			Variants: []domain.Variant{
				{ID: 4, Name: "600ml", SKU: "AQU-600", Barcode: "8991234567893", BaseUnitID: 1, RetailPrice: 3500, WholesalePrice: 3000, Cost: 2500, Active: true},
				{ID: 5, Name: "1500ml", SKU: "AQU-1500", Barcode: "8991234567894", BaseUnitID: 1, RetailPrice: 6000, WholesalePrice: 5500, Cost: 4500, Active: true},
			},
			Units: []domain.Unit{
				{ID: 1, Name: "botol", ConversionToBase: 1},
				{ID: 2, Name: "dus", ConversionToBase: 24},
			},
			Stock: 200,
		},
		{
			ID: 5, Name: "Indomie Goreng", CategoryID: 3, Active: true,
			Variants: []domain.Variant{
				{ID: 6, Name: "Default", SKU: "IND-001", Barcode: "8991234567895", BaseUnitID: 1, RetailPrice: 3000, WholesalePrice: 2700, Cost: 2400, Active: true},
			},
			Units: []domain.Unit{
				{ID: 1, Name: "pcs", ConversionToBase: 1},
				{ID: 2, Name: "dus", ConversionToBase: 40},
			},
			Stock: 500,
		},
	}

	paymentMethods := []domain.PaymentMethod{
		{ID: 1, Name: "Cash", MethodType: domain.PaymentMethodCash, Enabled: true},
		{ID: 2, Name: "QRIS", MethodType: domain.PaymentMethodQRCode, Enabled: true},
		{ID: 3, Name: "Bank Transfer", MethodType: domain.PaymentMethodBankTransfer, Enabled: true},
	}

	promotions := []domain.Promotion{
		{ID: 1, Name: "Diskon Belanja Hemat", Type: domain.PromoTypePercentage, Value: 5, MinPurchaseAmount: 50000, Active: true},
		{ID: 2, Name: "Potongan Langsung", Type: domain.PromoTypeFixed, Value: 2000, MinPurchaseAmount: 25000, Active: false},
	}

	if err := seedDomain(ctx, c, domain.DomainCategories, domain.EntityCategory, categories); err != nil {
		return err
	}
	if err := seedDomain(ctx, c, domain.DomainProducts, domain.EntityProduct, products); err != nil {
		return err
	}
	if err := seedDomain(ctx, c, domain.DomainPaymentMethods, domain.EntityPaymentMethod, paymentMethods); err != nil {
		return err
	}
	return seedDomain(ctx, c, domain.DomainPromotions, domain.EntityPromotion, promotions)
}

func seedDomain[T any](ctx context.Context, c *Cache, key, entityType string, entities []T) error {
	blob, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("encode %s seed: %w", key, err)
	}

	intents := make([]store.SyncIntent, 0, len(entities))
	for _, entity := range entities {
		payload, err := json.Marshal(entity)
		if err != nil {
			return fmt.Errorf("encode %s seed entity: %w", key, err)
		}
		intents = append(intents, store.SyncIntent{
			EntityType: entityType,
			Operation:  domain.SyncOpCreate,
			Payload:    payload,
		})
	}
	return c.SetDomain(ctx, key, blob, intents...)
}
