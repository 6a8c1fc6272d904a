// Package models defines the persisted domain models of the rehabilitation
// drafting backend.
//
// # Models
//
//   - User: an account of the office, with a Role deciding access
//   - PlanTemplate: saved inputs of a repayment plan, owned by one user
//   - MedianIncome: the standard median income table maintained by admins
//   - Inquiry: a contact form message, read by admins
//
// Repayment plans themselves are not persisted. They are computed per
// request by the planner package from the creditor list.
//
// # Design Principles
//
//  1. Avoid circular references: use ID strings instead of pointers
//  2. Timestamps are Unix seconds
package models
