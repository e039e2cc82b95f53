// Package clinicaltrials serves study search tools backed by the
// ClinicalTrials.gov v2 API.
package clinicaltrials

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/effective-security/x/values"

	"github.com/effective-security/biomcp/mcpserver"
	"github.com/effective-security/biomcp/providers/internal/apiclient"
)

// DefaultBaseURL is the ClinicalTrials.gov API endpoint.
const DefaultBaseURL = "https://clinicaltrials.gov/api/v2"

const resultLimit = 10

// Provider implements the ClinicalTrials.gov tool set.
type Provider struct {
	client *apiclient.Client
}

// Option configures the provider.
type Option func(*Provider)

// WithClient overrides the API client, used by tests.
func WithClient(c *apiclient.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// NewProvider creates the ClinicalTrials.gov provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		client: apiclient.New(DefaultBaseURL),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterTools registers the ClinicalTrials.gov tools on the server.
func (p *Provider) RegisterTools(s *mcpserver.Server) error {
	if err := mcpserver.AddTool(s, "search_trials",
		"Search ClinicalTrials.gov for studies matching the query.", p.SearchTrials); err != nil {
		return err
	}
	if err := mcpserver.AddTool(s, "get_trial_details",
		"Get detailed information about a specific clinical trial by its NCT ID.", p.GetTrialDetails); err != nil {
		return err
	}
	if err := mcpserver.AddTool(s, "find_trials_by_condition",
		"Search for clinical trials related to a specific medical condition.", p.FindTrialsByCondition); err != nil {
		return err
	}
	return mcpserver.AddTool(s, "find_trials_by_location",
		"Search for clinical trials in a specific location.", p.FindTrialsByLocation)
}

// SearchArgs are the arguments of search_trials.
type SearchArgs struct {
	Query      string `json:"query" jsonschema:"description=Search query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return"`
}

// DetailsArgs are the arguments of get_trial_details.
type DetailsArgs struct {
	NCTID string `json:"nct_id" jsonschema:"description=The NCT identifier for the trial"`
}

// ConditionArgs are the arguments of find_trials_by_condition.
type ConditionArgs struct {
	Condition  string `json:"condition" jsonschema:"description=Medical condition or disease"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return"`
}

// LocationArgs are the arguments of find_trials_by_location.
type LocationArgs struct {
	Location   string `json:"location" jsonschema:"description=Location: city, state or country"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return"`
}

type study struct {
	ProtocolSection struct {
		IdentificationModule struct {
			NCTID         string `json:"nctId"`
			BriefTitle    string `json:"briefTitle"`
			OfficialTitle string `json:"officialTitle"`
		} `json:"identificationModule"`
		StatusModule struct {
			OverallStatus string `json:"overallStatus"`
		} `json:"statusModule"`
		PhaseModule struct {
			Phase string `json:"phase"`
		} `json:"phaseModule"`
		SponsorCollaboratorsModule struct {
			LeadSponsor struct {
				Name string `json:"name"`
			} `json:"leadSponsor"`
		} `json:"sponsorCollaboratorsModule"`
		DesignModule struct {
			StudyType      string `json:"studyType"`
			PrimaryPurpose string `json:"primaryPurpose"`
		} `json:"designModule"`
		ConditionsModule struct {
			Conditions []string `json:"conditions"`
		} `json:"conditionsModule"`
		DescriptionModule struct {
			DetailedDescription string `json:"detailedDescription"`
		} `json:"descriptionModule"`
	} `json:"protocolSection"`
}

type studiesResponse struct {
	Studies []study `json:"studies"`
}

// SearchTrials searches for studies matching a free-text query.
func (p *Provider) SearchTrials(ctx context.Context, args SearchArgs) (string, error) {
	return p.search(ctx, url.Values{
		"query.term": {args.Query},
	}, args.MaxResults)
}

// FindTrialsByCondition searches for studies on a medical condition.
func (p *Provider) FindTrialsByCondition(ctx context.Context, args ConditionArgs) (string, error) {
	return p.search(ctx, url.Values{
		"query.cond": {args.Condition},
	}, args.MaxResults)
}

// FindTrialsByLocation searches for studies in a location.
func (p *Provider) FindTrialsByLocation(ctx context.Context, args LocationArgs) (string, error) {
	return p.search(ctx, url.Values{
		"query.locn": {args.Location},
	}, args.MaxResults)
}

func (p *Provider) search(ctx context.Context, params url.Values, maxResults int) (string, error) {
	params.Set("pageSize", strconv.Itoa(values.NumbersCoalesce(maxResults, resultLimit)))
	params.Set("format", "json")

	var resp studiesResponse
	if err := p.client.GetJSON(ctx, "studies", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Studies) == 0 {
		return "No results found for your query.", nil
	}

	var formatted []string
	for _, s := range resp.Studies {
		ps := s.ProtocolSection
		formatted = append(formatted, fmt.Sprintf(
			"Title: %s\nID: %s\nStatus: %s\nPhase: %s",
			values.StringsCoalesce(ps.IdentificationModule.BriefTitle, "No title"),
			values.StringsCoalesce(ps.IdentificationModule.NCTID, "Unknown ID"),
			values.StringsCoalesce(ps.StatusModule.OverallStatus, "Unknown status"),
			values.StringsCoalesce(ps.PhaseModule.Phase, "Unknown phase"),
		))
	}
	return strings.Join(formatted, "\n\n---\n\n"), nil
}

// GetTrialDetails fetches one study by NCT id and formats its protocol
// sections.
func (p *Provider) GetTrialDetails(ctx context.Context, args DetailsArgs) (string, error) {
	var s study
	err := p.client.GetJSON(ctx, "studies/"+url.PathEscape(args.NCTID), url.Values{
		"format": {"json"},
	}, &s)
	if err != nil {
		return "", err
	}

	ps := s.ProtocolSection
	conditions := strings.Join(ps.ConditionsModule.Conditions, ", ")
	if conditions == "" {
		conditions = "None specified"
	}

	return fmt.Sprintf(
		"NCT ID: %s\n\n"+
			"Brief Title: %s\n\n"+
			"Official Title: %s\n\n"+
			"Status: %s\n\n"+
			"Phase: %s\n\n"+
			"Sponsor: %s\n\n"+
			"Study Type: %s\n\n"+
			"Primary Purpose: %s\n\n"+
			"Conditions: %s\n\n"+
			"Detailed Description: %s",
		args.NCTID,
		values.StringsCoalesce(ps.IdentificationModule.BriefTitle, "No title"),
		values.StringsCoalesce(ps.IdentificationModule.OfficialTitle, "No official title"),
		values.StringsCoalesce(ps.StatusModule.OverallStatus, "Unknown status"),
		values.StringsCoalesce(ps.PhaseModule.Phase, "Unknown phase"),
		values.StringsCoalesce(ps.SponsorCollaboratorsModule.LeadSponsor.Name, "Unknown sponsor"),
		values.StringsCoalesce(ps.DesignModule.StudyType, "Unknown type"),
		values.StringsCoalesce(ps.DesignModule.PrimaryPurpose, "Unknown purpose"),
		conditions,
		values.StringsCoalesce(ps.DescriptionModule.DetailedDescription, "No detailed description available"),
	), nil
}
