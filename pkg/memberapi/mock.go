package memberapi

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// NewCardRequest records a card request accepted by Mock.
type NewCardRequest struct {
	MemberID  string
	Reason    string
	RequestID string
}

// Mock serves fixed member data. Card requests are the only mutation and
// are recorded in order.
type Mock struct {
	mu       sync.Mutex
	cards    map[string]IDList
	status   map[string]IDCardStatus
	comets   map[string]CometsData
	benefits map[string]Benefits
	dental   map[string]DentalCoverage
	members  map[string]MemberStatus

	nextRequest int
	requests    []NewCardRequest
}

var _ API = (*Mock)(nil)

func NewMock() *Mock {
	return &Mock{
		cards: map[string]IDList{
			"12345": {IDs: []string{"MED-ID-12345-A", "MED-ID-12345-B"}, PrimaryID: "MED-ID-12345-A"},
		},
		status: map[string]IDCardStatus{
			"MED-ID-12345-A": {Status: "Shipped", TrackingNumber: "TRK789", EstimatedDelivery: "2025-07-08"},
		},
		comets: map[string]CometsData{
			"MED-ID-12345-A": {CometsStatus: "Active", LastUpdate: "2025-06-30", Details: "No issues detected."},
		},
		benefits: map[string]Benefits{
			benefitsKey("67890", "hmo"): {
				MemberID: "67890",
				PlanType: "HMO",
				Benefits: []string{"dental", "vision", "prescription"},
				Summary:  "Member 67890 under HMO plan has dental, vision, and prescription benefits.",
			},
		},
		dental: map[string]DentalCoverage{
			"12345": {
				MemberID: "12345",
				Active:   true,
				Summary:  "Member 12345 has active dental coverage with 80% co-insurance for preventative care.",
			},
		},
		members: map[string]MemberStatus{
			"12345": {
				MemberID: "12345",
				Status:   "active",
				Summary:  "Member 12345 is currently in active enrollment status.",
			},
		},
		nextRequest: 9876,
	}
}

func (m *Mock) ListIDCards(ctx context.Context, memberID string) (IDList, error) {
	if err := ctx.Err(); err != nil {
		return IDList{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.cards[strings.TrimSpace(memberID)]
	if !ok {
		return IDList{}, fmt.Errorf("%w: no id cards for member %s", ErrNotFound, memberID)
	}
	out.IDs = append([]string(nil), out.IDs...)
	return out, nil
}

func (m *Mock) IDCardStatus(ctx context.Context, cardID string) (IDCardStatus, error) {
	if err := ctx.Err(); err != nil {
		return IDCardStatus{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.status[strings.TrimSpace(cardID)]
	if !ok {
		return IDCardStatus{}, fmt.Errorf("%w: no status for card %s", ErrNotFound, cardID)
	}
	return out, nil
}

func (m *Mock) CometsData(ctx context.Context, cardID string) (CometsData, error) {
	if err := ctx.Err(); err != nil {
		return CometsData{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.comets[strings.TrimSpace(cardID)]
	if !ok {
		return CometsData{}, fmt.Errorf("%w: no comets data for card %s", ErrNotFound, cardID)
	}
	return out, nil
}

func (m *Mock) RequestNewIDCard(ctx context.Context, memberID, reason string) (CardRequest, error) {
	if err := ctx.Err(); err != nil {
		return CardRequest{}, err
	}
	memberID = strings.TrimSpace(memberID)
	reason = strings.TrimSpace(reason)
	if memberID == "" || reason == "" {
		return CardRequest{}, fmt.Errorf("%w: member id and reason are required", ErrInvalidRequest)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("REQ%d", m.nextRequest)
	m.nextRequest++
	m.requests = append(m.requests, NewCardRequest{MemberID: memberID, Reason: reason, RequestID: id})

	return CardRequest{
		RequestID: id,
		Status:    "Pending",
		Message:   "New ID card request submitted.",
	}, nil
}

func (m *Mock) MemberBenefits(ctx context.Context, memberID, planType string) (Benefits, error) {
	if err := ctx.Err(); err != nil {
		return Benefits{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.benefits[benefitsKey(memberID, planType)]
	if !ok {
		return Benefits{}, fmt.Errorf("%w: benefits not found for member %s plan %s", ErrNotFound, memberID, planType)
	}
	out.Benefits = append([]string(nil), out.Benefits...)
	return out, nil
}

func (m *Mock) DentalCoverage(ctx context.Context, memberID string) (DentalCoverage, error) {
	if err := ctx.Err(); err != nil {
		return DentalCoverage{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.dental[strings.TrimSpace(memberID)]
	if !ok {
		return DentalCoverage{}, fmt.Errorf("%w: dental coverage not found for member %s", ErrNotFound, memberID)
	}
	return out, nil
}

func (m *Mock) MemberStatus(ctx context.Context, memberID string) (MemberStatus, error) {
	if err := ctx.Err(); err != nil {
		return MemberStatus{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.members[strings.TrimSpace(memberID)]
	if !ok {
		return MemberStatus{}, fmt.Errorf("%w: member status not found for %s", ErrNotFound, memberID)
	}
	return out, nil
}

// Requests returns the card requests accepted so far.
func (m *Mock) Requests() []NewCardRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NewCardRequest(nil), m.requests...)
}

func benefitsKey(memberID, planType string) string {
	return strings.TrimSpace(memberID) + "|" + strings.ToLower(strings.TrimSpace(planType))
}
