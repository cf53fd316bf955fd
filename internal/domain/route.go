package domain

// TraversalDirection is the order in which a triangular route is walked.
type TraversalDirection string

const (
	// TraversalForward routes settlement -> A -> B -> settlement.
	TraversalForward TraversalDirection = "forward"
	// TraversalReverse routes settlement -> B -> A -> settlement.
	TraversalReverse TraversalDirection = "reverse"
)

// TriangularRoute is the best three-leg cycle found by one scanner pass.
// Produced per cycle and consumed immediately by the execution path or
// discarded; the profit floor is applied at the call site, not here.
type TriangularRoute struct {
	// LegSymbols are the venue symbols walked in order:
	// first pair (settlement leg in), middle cross pair, last pair
	// (settlement leg out).
	LegSymbols [3]string
	Direction  TraversalDirection
	// ExpectedNetBps is the compounded return of the full cycle after
	// per-leg taker fees and slippage, in basis points.
	ExpectedNetBps float64
	// MiddleBaseFirst is true when the middle cross pair is quoted as
	// A-base/B-quote, i.e. leg two sells the first asset directly.
	MiddleBaseFirst bool
}
