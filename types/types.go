package types

// Method is the decoded token call a tracked transaction makes
type Method string

const (
	// Transfer - transfer(address to, uint256 amount)
	Transfer Method = "TRANSFER"

	// TransferFrom - transferFrom(address from, address to, uint256 amount)
	TransferFrom Method = "TRANSFER_FROM"
)

// Status is the terminal outcome of a tracked transaction
type Status string

const (
	// Mined - Transaction was included in a block and executed successfully
	Mined Status = "MINED"

	// Reverted - Transaction was included in a block but execution failed
	Reverted Status = "REVERTED"

	// Dropped - Transaction was replaced, dropped from the pool, or could not be followed
	Dropped Status = "DROPPED"
)

// TrackState is the lifecycle state of a pending record
type TrackState string

const (
	// Pending - Record is held in the registry waiting for resolution
	Pending TrackState = "PENDING"

	// Resolved - Record has left the registry
	Resolved TrackState = "RESOLVED"
)
