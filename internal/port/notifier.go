package port

// PurchaseNotifier receives a signal for every committed sale. Implementations
// must not block the caller and must never surface their own failures.
type PurchaseNotifier interface {
	PurchaseRecorded()
}
