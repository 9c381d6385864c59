package models

import "time"

// DefaultTenantID receives usage that cannot be attributed to any tenant.
// Dropping such events entirely would understate platform load, so they are
// credited here instead.
const DefaultTenantID = "default"

// Tenant represents a billing/usage-isolation unit. Tenants are created
// lazily the first time a usage event references their id.
type Tenant struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	PlanTier string `json:"plan_tier" db:"plan_tier"`
}

// TableName returns the table name for the Tenant model
func (Tenant) TableName() string {
	return "tenants"
}

// TenantUsage tracks per-tenant usage counters. Counters only ever move up;
// the aggregator increments them and nothing in this service decrements.
type TenantUsage struct {
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	ScansCount  int64     `json:"scans_count" db:"scans_count"`
	TokenCount  int64     `json:"token_count" db:"token_count"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// TableName returns the table name for the TenantUsage model
func (TenantUsage) TableName() string {
	return "tenant_usage"
}
