// Package memberapi is the Medicare member backend the assistant's tools call
// into: an in-process mock, an HTTP client for the same endpoints and a
// handler that serves any API over HTTP.
package memberapi

import (
	"context"
	"errors"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrNotFound       = errors.New("member record not found")
	ErrUnavailable    = errors.New("member api unavailable")
	ErrInvalidRequest = errors.New("invalid member api request")
)

type IDList struct {
	IDs       []string `json:"ids"`
	PrimaryID string   `json:"primary_id"`
}

type IDCardStatus struct {
	Status            string `json:"status"`
	TrackingNumber    string `json:"tracking_number,omitempty"`
	EstimatedDelivery string `json:"estimated_delivery,omitempty"`
}

type CometsData struct {
	CometsStatus string `json:"comets_status"`
	LastUpdate   string `json:"last_update"`
	Details      string `json:"details"`
}

type CardRequest struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type Benefits struct {
	MemberID string   `json:"member_id"`
	PlanType string   `json:"plan_type"`
	Benefits []string `json:"benefits"`
	Summary  string   `json:"summary"`
}

type DentalCoverage struct {
	MemberID string `json:"member_id"`
	Active   bool   `json:"active"`
	Summary  string `json:"summary"`
}

type MemberStatus struct {
	MemberID string `json:"member_id"`
	Status   string `json:"status"`
	Summary  string `json:"summary"`
}

// API is the set of backend operations exposed as assistant tools.
type API interface {
	ListIDCards(ctx context.Context, memberID string) (IDList, error)
	IDCardStatus(ctx context.Context, cardID string) (IDCardStatus, error)
	CometsData(ctx context.Context, cardID string) (CometsData, error)
	RequestNewIDCard(ctx context.Context, memberID, reason string) (CardRequest, error)
	MemberBenefits(ctx context.Context, memberID, planType string) (Benefits, error)
	DentalCoverage(ctx context.Context, memberID string) (DentalCoverage, error)
	MemberStatus(ctx context.Context, memberID string) (MemberStatus, error)
}
