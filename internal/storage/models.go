package storage

// Subscription is one subscriber's persisted record, keyed by user id in the
// snapshot document. The last-notified pair tracks the de-duplication state:
// both fields empty means the user has not been notified since the rate was
// last set.
type Subscription struct {
	Rate                string `json:"rate,omitempty"`
	NotifyChannelID     int64  `json:"notify_channel_id,omitempty"`
	NotifyGuildID       int64  `json:"notify_guild_id,omitempty"`
	LastNotifiedOfferID string `json:"last_notified_offer_id,omitempty"`
	LastNotifiedRate    string `json:"last_notified_rate,omitempty"`
}

// HasRate reports whether the subscriber has a stored rate.
func (s Subscription) HasRate() bool {
	return s.Rate != ""
}

// AlreadyNotified reports whether the given (offer id, rate) pair matches the
// one last reported to this subscriber. Identity is the pair: the same plan
// id at a new price, or a new plan at a previously seen price, both count as
// fresh.
func (s Subscription) AlreadyNotified(offerID, rateDisplay string) bool {
	return s.LastNotifiedOfferID == offerID && s.LastNotifiedRate == rateDisplay
}

// MarkNotified records the offer just reported to this subscriber.
func (s *Subscription) MarkNotified(offerID, rateDisplay string) {
	s.LastNotifiedOfferID = offerID
	s.LastNotifiedRate = rateDisplay
}

// ResetNotified clears the de-duplication state so the next evaluation pass
// may notify again, even for an offer that was already reported.
func (s *Subscription) ResetNotified() {
	s.LastNotifiedOfferID = ""
	s.LastNotifiedRate = ""
}
