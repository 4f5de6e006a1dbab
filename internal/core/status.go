package core

// Status state machines for the four document types. Every status change in
// the engine goes through checkTransition against one of these tables; a
// requested move that is not listed fails with InvalidTransitionError and
// leaves the document and all stock untouched.

type POStatus string

const (
	PODraft     POStatus = "DRAFT"
	POSent      POStatus = "SENT"
	POReceived  POStatus = "RECEIVED"
	POCancelled POStatus = "CANCELLED"
)

type ASNStatus string

const (
	ASNPending    ASNStatus = "PENDING"
	ASNOnDelivery ASNStatus = "ON_DELIVERY"
	ASNArrived    ASNStatus = "ARRIVED"
	ASNProcessed  ASNStatus = "PROCESSED"
	ASNCancelled  ASNStatus = "CANCELLED"
)

type SOStatus string

const (
	SOPending    SOStatus = "PENDING"
	SOInProgress SOStatus = "IN_PROGRESS"
	SOPicked     SOStatus = "PICKED"
	SOShipped    SOStatus = "SHIPPED"
	SOCancelled  SOStatus = "CANCELLED"
)

type PickingStatus string

const (
	PickingPending    PickingStatus = "PENDING"
	PickingInProgress PickingStatus = "IN_PROGRESS"
	PickingCompleted  PickingStatus = "COMPLETED"
	PickingCancelled  PickingStatus = "CANCELLED"
)

// transitionTable maps current status to the set of statuses reachable from it.
type transitionTable map[string][]string

var poTransitions = transitionTable{
	string(PODraft): {string(POSent), string(POCancelled)},
	// SENT→RECEIVED happens automatically when an ASN is created against the
	// order; SENT→CANCELLED is allowed only while no active ASN references it
	// (enforced in CancelPO, not here).
	string(POSent):     {string(POReceived), string(POCancelled)},
	string(POReceived): {string(POSent)}, // rollback when the last active ASN is cancelled
}

var asnTransitions = transitionTable{
	string(ASNPending):    {string(ASNOnDelivery), string(ASNCancelled)},
	string(ASNOnDelivery): {string(ASNArrived)},
	string(ASNArrived):    {string(ASNProcessed)},
}

var soTransitions = transitionTable{
	string(SOPending):    {string(SOInProgress), string(SOCancelled)},
	string(SOInProgress): {string(SOPicked), string(SOCancelled)},
	string(SOPicked):     {string(SOShipped)},
}

var pickingTransitions = transitionTable{
	string(PickingPending):    {string(PickingInProgress), string(PickingCancelled)},
	string(PickingInProgress): {string(PickingCompleted), string(PickingCancelled)},
}

// checkTransition returns nil when current→requested is listed in the table,
// or an InvalidTransitionError otherwise. Terminal statuses have no entry and
// therefore reject everything.
func checkTransition(docType string, table transitionTable, current, requested string) error {
	for _, next := range table[current] {
		if next == requested {
			return nil
		}
	}
	return &InvalidTransitionError{DocType: docType, Current: current, Requested: requested}
}

// CanTransitionPO reports whether a purchase order may move between the two statuses.
func CanTransitionPO(current, requested POStatus) bool {
	return checkTransition("purchase order", poTransitions, string(current), string(requested)) == nil
}

// CanTransitionASN reports whether an ASN may move between the two statuses.
func CanTransitionASN(current, requested ASNStatus) bool {
	return checkTransition("ASN", asnTransitions, string(current), string(requested)) == nil
}

// CanTransitionSO reports whether a sales order may move between the two statuses.
func CanTransitionSO(current, requested SOStatus) bool {
	return checkTransition("sales order", soTransitions, string(current), string(requested)) == nil
}

// CanTransitionPicking reports whether a picking may move between the two statuses.
func CanTransitionPicking(current, requested PickingStatus) bool {
	return checkTransition("picking", pickingTransitions, string(current), string(requested)) == nil
}
