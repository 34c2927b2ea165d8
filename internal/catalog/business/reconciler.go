package business

// State is what the catalog currently knows about a product.
type State struct {
	LatestPrice int64
	IsActive    bool
}

// Observation is what a pipeline has just seen for that product. A nil Price
// means the observation carried no usable price (absent or unparseable); the
// two cases are distinguished by the caller for logging only and persist
// identically.
type Observation struct {
	Price    *int64
	IsActive bool
}

// Decision tells the caller which writes are required. Zero value means
// idempotent no-op.
type Decision struct {
	Deactivate  bool
	UpdatePrice bool
	NewPrice    int64
}

// Decide is the single change-detection rule shared by the batch migrator and
// the revalidation pipeline. It is the only place that decides when a price
// ledger record is written, which keeps the "no duplicate consecutive price"
// invariant in one spot.
//
// An is_active=false observation is a status change only: the product is
// deactivated and no price is recorded. Otherwise a price is written exactly
// when it differs from the stored latest price.
func Decide(current State, observed Observation) Decision {
	if !observed.IsActive {
		if current.IsActive {
			return Decision{Deactivate: true}
		}
		return Decision{}
	}
	if observed.Price == nil {
		return Decision{}
	}
	if *observed.Price != current.LatestPrice {
		return Decision{UpdatePrice: true, NewPrice: *observed.Price}
	}
	return Decision{}
}
