// Package rate gates outbound Gmail API calls so the process stays
// inside self-imposed per-minute budgets. The provider silently
// penalizes bursts, so callers are delayed rather than rejected: an
// admission that would exceed the budget waits until the oldest call
// in the trailing window ages out.
package rate
