package enum

// ── Order lifecycle ──

const (
	OrderStatusProcessing       = "processing"
	OrderStatusCompleted        = "completed"
	OrderStatusCancelled        = "cancelled"
	OrderStatusPaymentRequested = "payment_requested"
	OrderStatusPaid             = "paid"
)

// ── Item lifecycle (flat, no sub-state) ──

const (
	ItemStatusAdded      = "added"
	ItemStatusProcessing = "processing"
	ItemStatusCompleted  = "completed"
	ItemStatusCancelled  = "cancelled"
	ItemStatusReduced    = "reduced"
	ItemStatusRemoved    = "removed"
)

// ── Order types ──

const (
	OrderTypeLocal    = "local"
	OrderTypeTakeaway = "takeaway"
)

// ── Payment methods (labels only, no transition logic) ──

const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
	PaymentMethodPix  = "pix"
)

// ── Staff roles ──

const (
	RoleManager = "MANAGER"
	RoleWaiter  = "WAITER"
	RoleKitchen = "KITCHEN"
)
