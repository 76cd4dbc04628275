package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/shopsmart-dev/backend-grocer/internal/db"
)

type seedProduct struct {
	Name        string
	Brand       string
	UnitCode    string
	PackageSize string
}

type seedPrice struct {
	Store         string
	Product       string
	Price         string
	Kind          string
	Percent       *string
	BundleTotal   *string
	BundleSize    *int
	OverridePrice *string
	Stock         string
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := db.MigrateUp(dbURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	storeIDs := seedStores(ctx, pool)
	productIDs := seedProducts(ctx, pool)
	seedPrices(ctx, pool, storeIDs, productIDs)

	log.Println("Seeding completed successfully!")
}

func seedStores(ctx context.Context, pool *pgxpool.Pool) map[string]string {
	stores := []string{
		"FreshMart Center",
		"GreenGrocer Plaza",
		"DailyBasket Express",
		"PriceWise Hyper",
	}

	log.Println("Seeding Stores...")
	ids := make(map[string]string, len(stores))
	for _, name := range stores {
		var id string
		err := pool.QueryRow(ctx, `SELECT id FROM stores WHERE name = $1`, name).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			err = pool.QueryRow(ctx, `INSERT INTO stores (name, active) VALUES ($1, true) RETURNING id`, name).Scan(&id)
		}
		if err != nil {
			log.Printf("Failed to seed store %s: %v", name, err)
			continue
		}
		ids[name] = id
	}
	return ids
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) map[string]string {
	products := []seedProduct{
		{"Whole Milk 1L", "DairyBest", "l", "1"},
		{"White Bread 500g", "BakeHouse", "g", "500"},
		{"Eggs 12 pack", "HappyHen", "pc", "12"},
		{"Olive Oil 750ml", "Oliva", "ml", "750"},
		{"Spaghetti 500g", "PastaPrima", "g", "500"},
		{"Tomato Sauce 400g", "PastaPrima", "g", "400"},
		{"Ground Coffee 250g", "MorningRoast", "g", "250"},
		{"Bananas 1kg", "", "kg", "1"},
		{"Chicken Breast 1kg", "FarmFresh", "kg", "1"},
		{"Greek Yogurt 500g", "DairyBest", "g", "500"},
	}

	log.Println("Seeding Products...")
	ids := make(map[string]string, len(products))
	for _, p := range products {
		var id string
		err := pool.QueryRow(ctx, `SELECT id FROM products WHERE name = $1`, p.Name).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			err = pool.QueryRow(ctx, `
				INSERT INTO products (name, brand, unit_code, package_size)
				VALUES ($1, $2, $3, $4)
				RETURNING id;
			`, p.Name, p.Brand, p.UnitCode, p.PackageSize).Scan(&id)
		}
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
			continue
		}
		ids[p.Name] = id
	}
	return ids
}

func seedPrices(ctx context.Context, pool *pgxpool.Pool, storeIDs, productIDs map[string]string) {
	num := func(v string) *string { return &v }
	size := func(v int) *int { return &v }

	prices := []seedPrice{
		{Store: "FreshMart Center", Product: "Whole Milk 1L", Price: "1.39", Kind: "none", Stock: "in_stock"},
		{Store: "GreenGrocer Plaza", Product: "Whole Milk 1L", Price: "1.55", Kind: "two_for_one", Stock: "in_stock"},
		{Store: "DailyBasket Express", Product: "Whole Milk 1L", Price: "1.45", Kind: "none", Stock: "out_of_stock"},

		{Store: "FreshMart Center", Product: "White Bread 500g", Price: "1.10", Kind: "second_half_price", Stock: "in_stock"},
		{Store: "GreenGrocer Plaza", Product: "White Bread 500g", Price: "0.99", Kind: "none", Stock: "in_stock"},

		{Store: "FreshMart Center", Product: "Eggs 12 pack", Price: "3.20", Kind: "none", Stock: "in_stock"},
		{Store: "PriceWise Hyper", Product: "Eggs 12 pack", Price: "3.60", Kind: "percent_off", Percent: num("15"), Stock: "in_stock"},

		{Store: "GreenGrocer Plaza", Product: "Olive Oil 750ml", Price: "7.95", Kind: "none", Stock: "in_stock"},
		{Store: "PriceWise Hyper", Product: "Olive Oil 750ml", Price: "8.40", Kind: "conditional_bank_price", Stock: "in_stock"},

		{Store: "FreshMart Center", Product: "Spaghetti 500g", Price: "1.25", Kind: "three_for_two", Stock: "in_stock"},
		{Store: "DailyBasket Express", Product: "Spaghetti 500g", Price: "1.15", Kind: "none", Stock: "in_stock"},

		{Store: "DailyBasket Express", Product: "Tomato Sauce 400g", Price: "1.80", Kind: "fixed_bundle", BundleTotal: num("4.50"), BundleSize: size(3), Stock: "in_stock"},
		{Store: "PriceWise Hyper", Product: "Tomato Sauce 400g", Price: "1.65", Kind: "none", Stock: "in_stock"},

		{Store: "FreshMart Center", Product: "Ground Coffee 250g", Price: "4.90", Kind: "unit_price_override", OverridePrice: num("4.49"), Stock: "in_stock"},
		{Store: "GreenGrocer Plaza", Product: "Ground Coffee 250g", Price: "4.70", Kind: "none", Stock: "in_stock"},

		{Store: "FreshMart Center", Product: "Bananas 1kg", Price: "1.60", Kind: "none", Stock: "in_stock"},
		{Store: "GreenGrocer Plaza", Product: "Bananas 1kg", Price: "1.49", Kind: "none", Stock: "in_stock"},
		{Store: "PriceWise Hyper", Product: "Bananas 1kg", Price: "1.49", Kind: "none", Stock: "in_stock"},

		{Store: "DailyBasket Express", Product: "Chicken Breast 1kg", Price: "6.80", Kind: "none", Stock: "in_stock"},
		{Store: "PriceWise Hyper", Product: "Chicken Breast 1kg", Price: "6.95", Kind: "percent_off", Percent: num("10"), Stock: "in_stock"},

		{Store: "FreshMart Center", Product: "Greek Yogurt 500g", Price: "2.30", Kind: "none", Stock: "in_stock"},
		{Store: "GreenGrocer Plaza", Product: "Greek Yogurt 500g", Price: "2.30", Kind: "none", Stock: "unknown"},
	}

	log.Println("Seeding Prices...")
	validFrom := time.Now().UTC().AddDate(0, 0, -7).Format("2006-01-02")
	for _, p := range prices {
		storeID, ok := storeIDs[p.Store]
		if !ok {
			continue
		}
		productID, ok := productIDs[p.Product]
		if !ok {
			continue
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO price_records
				(store_id, product_id, price, currency, valid_from, promo_kind,
				 promo_percent, promo_bundle_total, promo_bundle_size, promo_override_price, stock_status)
			VALUES ($1, $2, $3::numeric, 'EUR', $4::date, $5, $6::numeric, $7::numeric, $8, $9::numeric, $10)
			ON CONFLICT ON CONSTRAINT uq_price_records_window DO NOTHING;
		`, storeID, productID, p.Price, validFrom, p.Kind,
			p.Percent, p.BundleTotal, p.BundleSize, p.OverridePrice, p.Stock)
		if err != nil {
			log.Printf("Failed to seed price %s @ %s: %v", p.Product, p.Store, err)
		}
	}
}
