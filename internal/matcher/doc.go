// Package matcher scores and ranks NGOs against an event, returning the
// subset worth notifying.
//
// # Contract
//
// For each candidate NGO:
//
//	score = w1*capability + w2*geographic + w3*capacityNorm
//
// Capability and geographic matches are hard filters: a zero on either
// disqualifies the NGO outright. Alerting an organization outside its
// mandate or reach causes alert fatigue, so mismatch is disqualifying, not
// merely penalized. Capacity is normalized against the strongest surviving
// candidate, giving a same-event relative signal without a global constant.
//
// Ties rank by capacity weight descending, then NGO id ascending, so the
// output is reproducible. For the same event and the same registry snapshot
// the ranked output is always identical.
package matcher
