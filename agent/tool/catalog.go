package tool

import (
	"context"
	"errors"

	"github.com/spf13/cast"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	"github.com/tanpawarit/Medicare-IDCard-Assistant/pkg/memberapi"
)

const (
	ToolGetIDList         = "get_id_list"
	ToolGetIDCardStatus   = "get_id_card_status"
	ToolGetCometsData     = "get_comets_data"
	ToolRequestNewIDCard  = "request_new_id_card"
	ToolGetMemberBenefits = "get_member_benefits"
	ToolGetDentalCoverage = "get_dental_coverage_status"
	ToolGetMemberStatus   = "get_member_status"
)

var (
	memberIDParam = contractx.ParamSpec{
		Name:        "member_id",
		Type:        contractx.ParamString,
		Description: "The unique identifier for the member.",
		Required:    true,
	}
	cardIDParam = contractx.ParamSpec{
		Name:        "id",
		Type:        contractx.ParamString,
		Description: "The specific ID card number (e.g., MED-ID-12345-A).",
		Required:    true,
	}
)

// Catalog returns the Medicare member tools bound to api, in the order they
// are offered to the model.
func Catalog(api memberapi.API) []contractx.ToolDescriptor {
	return []contractx.ToolDescriptor{
		{
			Name: ToolGetIDList,
			Description: "Retrieves a list of all active Medicare ID cards associated with a given member ID. " +
				"Use this tool when the user asks to 'list my ID cards', 'what IDs do I have', or as a first step to find an ID before checking its status.",
			Params: []contractx.ParamSpec{memberIDParam},
			Func: func(ctx context.Context, args map[string]any) (any, error) {
				out, err := api.ListIDCards(ctx, cast.ToString(args["member_id"]))
				return out, backendError(err)
			},
		},
		{
			Name: ToolGetIDCardStatus,
			Description: "Retrieves the current shipping or activation status of a specific Medicare ID card. " +
				"Use this tool when the user provides a specific ID card number and asks about its 'status', 'where is it', or 'is it active'.",
			Params: []contractx.ParamSpec{cardIDParam},
			Func: func(ctx context.Context, args map[string]any) (any, error) {
				out, err := api.IDCardStatus(ctx, cast.ToString(args["id"]))
				return out, backendError(err)
			},
		},
		{
			Name: ToolGetCometsData,
			Description: "Fetches detailed COmets system data related to a specific Medicare ID card, often containing additional status, " +
				"activation, or historical information not found in basic ID card status. " +
				"Use this tool as a follow-up to get_id_card_status for more granular details, especially for activation or deeper troubleshooting.",
			Params: []contractx.ParamSpec{cardIDParam},
			Func: func(ctx context.Context, args map[string]any) (any, error) {
				out, err := api.CometsData(ctx, cast.ToString(args["id"]))
				return out, backendError(err)
			},
		},
		{
			Name: ToolRequestNewIDCard,
			Description: "Submits a request to issue and mail a new Medicare ID card to the member's registered address. " +
				"Use this tool when the user explicitly asks to 'request a new ID card', 'send me a replacement card', or 'order a new card'.",
			Params: []contractx.ParamSpec{
				memberIDParam,
				{
					Name:        "reason",
					Type:        contractx.ParamString,
					Description: "The reason for the new card request (e.g., 'lost', 'stolen', 'damaged').",
					Required:    true,
				},
			},
			Func: func(ctx context.Context, args map[string]any) (any, error) {
				out, err := api.RequestNewIDCard(ctx, cast.ToString(args["member_id"]), cast.ToString(args["reason"]))
				return out, backendError(err)
			},
		},
		{
			Name: ToolGetMemberBenefits,
			Description: "Retrieves a detailed list of benefits associated with a member's specific plan type. " +
				"Use this tool when the user asks about 'benefits', 'coverage details', or 'what's included' for a given member and plan.",
			Params: []contractx.ParamSpec{
				memberIDParam,
				{
					Name:        "plan_type",
					Type:        contractx.ParamString,
					Description: "The type of plan (e.g., 'HMO', 'PPO', 'Medicare Advantage').",
					Required:    true,
				},
			},
			Func: func(ctx context.Context, args map[string]any) (any, error) {
				out, err := api.MemberBenefits(ctx, cast.ToString(args["member_id"]), cast.ToString(args["plan_type"]))
				return out, backendError(err)
			},
		},
		{
			Name: ToolGetDentalCoverage,
			Description: "Checks the dental coverage status for a specific member. " +
				"Use this tool when the user asks specifically about 'dental coverage', 'is my dental covered'.",
			Params: []contractx.ParamSpec{memberIDParam},
			Func: func(ctx context.Context, args map[string]any) (any, error) {
				out, err := api.DentalCoverage(ctx, cast.ToString(args["member_id"]))
				return out, backendError(err)
			},
		},
		{
			Name: ToolGetMemberStatus,
			Description: "Retrieves the general enrollment status of a member (e.g., active, inactive, pending). " +
				"Use this tool when the user asks about their 'membership status', 'are they active', or general enrollment queries.",
			Params: []contractx.ParamSpec{memberIDParam},
			Func: func(ctx context.Context, args map[string]any) (any, error) {
				out, err := api.MemberStatus(ctx, cast.ToString(args["member_id"]))
				return out, backendError(err)
			},
		},
	}
}

// NewMedicareRegistry registers Catalog(api) into a fresh registry.
func NewMedicareRegistry(api memberapi.API) (*Registry, error) {
	reg := NewRegistry()
	for _, desc := range Catalog(api) {
		if err := reg.Register(desc); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func backendError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, memberapi.ErrNotFound):
		return &BackendError{Code: CodeNotFound, Message: "no matching record was found", Err: err}
	case errors.Is(err, memberapi.ErrInvalidRequest):
		return &BackendError{Code: CodeInvalidArguments, Message: "the backend rejected the request arguments", Err: err}
	case errors.Is(err, memberapi.ErrUnavailable):
		return &BackendError{Code: CodeUnavailable, Message: "the member service is temporarily unavailable", Err: err}
	default:
		return &BackendError{Code: CodeFailed, Message: "the backend operation failed", Err: err}
	}
}
