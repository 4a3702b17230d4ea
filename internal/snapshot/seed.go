package snapshot

import (
	"fmt"
)

// DemoSchemaDesc describes the demo telecom database for prompts and docs.
const DemoSchemaDesc = `Tables:
  customers(id INTEGER, name TEXT, plan_id INTEGER, monthly_spend REAL, status TEXT, data_used_gb REAL)
  transactions(id INTEGER, customer_id INTEGER, amount REAL, date TEXT, type TEXT)
  plans(id INTEGER, name TEXT, data_limit_gb REAL, price REAL)

Relationships:
  customers.plan_id -> plans.id
  transactions.customer_id -> customers.id

Notes:
  - status values: 'active', 'suspended', 'cancelled'
  - transaction type values: 'charge', 'payment', 'refund'
  - dates are ISO format: YYYY-MM-DD
  - data_used_gb is usage for the current billing month`

const demoDDL = `
DROP TABLE IF EXISTS transactions;
DROP TABLE IF EXISTS customers;
DROP TABLE IF EXISTS plans;

CREATE TABLE plans (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    data_limit_gb REAL NOT NULL,
    price REAL NOT NULL
);

CREATE TABLE customers (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    plan_id INTEGER REFERENCES plans(id),
    monthly_spend REAL DEFAULT 0,
    status TEXT DEFAULT 'active',
    data_used_gb REAL DEFAULT 0
);

CREATE TABLE transactions (
    id INTEGER PRIMARY KEY,
    customer_id INTEGER REFERENCES customers(id),
    amount REAL NOT NULL,
    date TEXT NOT NULL,
    type TEXT NOT NULL
);
`

type plan struct {
	ID          int
	Name        string
	DataLimitGB float64
	Price       float64
}

type customer struct {
	ID           int
	Name         string
	PlanID       int
	MonthlySpend float64
	Status       string
	DataUsedGB   float64
}

type transaction struct {
	ID         int
	CustomerID int
	Amount     float64
	Date       string
	Type       string
}

var demoPlans = []plan{
	{1, "Starter", 5.0, 29.99},
	{2, "Plus", 20.0, 49.99},
	{3, "Pro", 50.0, 79.99},
	{4, "Unlimited", 999.0, 99.99},
}

var demoCustomers = []customer{
	{1, "Alice Chen", 2, 55.00, "active", 18.5},
	{2, "Bob Torres", 1, 32.00, "active", 6.2},
	{3, "Carol Nguyen", 3, 82.00, "active", 44.1},
	{4, "Dan Okafor", 1, 29.99, "suspended", 1.0},
	{5, "Eve Martins", 4, 99.99, "active", 120.3},
	{6, "Frank Liu", 2, 51.00, "cancelled", 0.0},
	{7, "Grace Kim", 3, 80.00, "active", 52.7},
	{8, "Hugo Perez", 1, 31.00, "active", 4.4},
}

var demoTransactions = []transaction{
	{1, 1, 49.99, "2024-12-01", "charge"},
	{2, 1, 49.99, "2024-12-05", "payment"},
	{3, 2, 29.99, "2024-12-01", "charge"},
	{4, 3, 79.99, "2024-12-01", "charge"},
	{5, 3, 79.99, "2024-12-10", "payment"},
	{6, 4, 29.99, "2024-11-01", "charge"},
	{7, 5, 99.99, "2024-12-01", "charge"},
	{8, 5, 15.00, "2024-12-15", "refund"},
	{9, 7, 79.99, "2024-12-01", "charge"},
	{10, 7, 79.99, "2024-12-20", "payment"},
	{11, 8, 29.99, "2024-12-01", "charge"},
	{12, 2, 29.99, "2024-12-28", "payment"},
}

// SeedDemo creates and seeds the demo telecom database at path, for the
// one-shot CLI and for tests that need a realistic snapshot.
func SeedDemo(path string) error {
	db, err := Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(demoDDL); err != nil {
		return fmt.Errorf("seeding schema: %w", err)
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("starting seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range demoPlans {
		if _, err := tx.Exec(`INSERT INTO plans VALUES (?,?,?,?)`,
			p.ID, p.Name, p.DataLimitGB, p.Price); err != nil {
			return fmt.Errorf("seeding plans: %w", err)
		}
	}
	for _, c := range demoCustomers {
		if _, err := tx.Exec(`INSERT INTO customers VALUES (?,?,?,?,?,?)`,
			c.ID, c.Name, c.PlanID, c.MonthlySpend, c.Status, c.DataUsedGB); err != nil {
			return fmt.Errorf("seeding customers: %w", err)
		}
	}
	for _, tr := range demoTransactions {
		if _, err := tx.Exec(`INSERT INTO transactions VALUES (?,?,?,?,?)`,
			tr.ID, tr.CustomerID, tr.Amount, tr.Date, tr.Type); err != nil {
			return fmt.Errorf("seeding transactions: %w", err)
		}
	}
	return tx.Commit()
}
