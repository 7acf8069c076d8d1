package api

import "testing"

// The subdomain sweep must finish inside the router-wide handler budget,
// otherwise the TimeoutHandler answers 503 while the sweep keeps running.
func TestProbeBudgetInsideRequestBudget(t *testing.T) {
	if probeTimeout >= requestTimeout {
		t.Fatalf("probe budget %v must be below the request budget %v", probeTimeout, requestTimeout)
	}
}
