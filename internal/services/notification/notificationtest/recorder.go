// Package notificationtest provides an in-memory Dispatcher for tests.
package notificationtest

import (
	"context"
	"sync"

	"github.com/daya/backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is one recorded dispatch
type Event struct {
	Kind       string
	CampaignID uuid.UUID
	DCDID      uuid.UUID
	Reason     string
	Amount     decimal.Decimal
}

// Recorder captures dispatched events in order
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the recorded event kinds in order
func (r *Recorder) Kinds() []string {
	events := r.Events()
	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Count returns how many events of the given kind were recorded
func (r *Recorder) Count(kind string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Recorder) AdminsReviewRequested(ctx context.Context, campaign *models.Campaign) {
	r.add(Event{Kind: "admins_review_requested", CampaignID: campaign.ID})
}

func (r *Recorder) CampaignApproved(ctx context.Context, campaign *models.Campaign) {
	r.add(Event{Kind: "campaign_approved", CampaignID: campaign.ID})
}

func (r *Recorder) CampaignRejected(ctx context.Context, campaign *models.Campaign, reason string) {
	r.add(Event{Kind: "campaign_rejected", CampaignID: campaign.ID, Reason: reason})
}

func (r *Recorder) CampaignCompleted(ctx context.Context, campaign *models.Campaign) {
	r.add(Event{Kind: "campaign_completed", CampaignID: campaign.ID})
}

func (r *Recorder) DCDAssigned(ctx context.Context, campaign *models.Campaign, dcd *models.User) {
	r.add(Event{Kind: "dcd_assigned", CampaignID: campaign.ID, DCDID: dcd.ID})
}

func (r *Recorder) MatchingRequested(ctx context.Context, campaign *models.Campaign) {
	r.add(Event{Kind: "matching_requested", CampaignID: campaign.ID})
}

func (r *Recorder) ArtifactRequested(ctx context.Context, campaign *models.Campaign) {
	r.add(Event{Kind: "artifact_requested", CampaignID: campaign.ID})
}

func (r *Recorder) VentureShareRequested(ctx context.Context, campaign *models.Campaign, amount decimal.Decimal) {
	r.add(Event{Kind: "venture_share_requested", CampaignID: campaign.ID, Amount: amount})
}
